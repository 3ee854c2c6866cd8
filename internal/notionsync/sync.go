package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/dvloznov/spend-insight/internal/logger"
	"github.com/jomei/notionapi"
)

// PageSize is the number of pages requested per database query.
const PageSize = 100

// SyncResult counts what a sync did.
type SyncResult struct {
	Created int
	Updated int
	Failed  int
}

// SyncMonthlySummary upserts one page per YYYY-MM of summary.ByMonth into the
// Notion database. Months that already have a page are updated in place,
// the rest are created. Individual page failures are logged and counted;
// only a failed database query aborts the sync.
func SyncMonthlySummary(ctx context.Context, svc NotionService, databaseID string, summary domain.AggregateSummary) (SyncResult, error) {
	log := logger.FromContext(ctx)
	var res SyncResult

	if databaseID == "" {
		return res, fmt.Errorf("SyncMonthlySummary: database id is empty")
	}

	log.Info().
		Str("database_id", databaseID).
		Int("months", len(summary.ByMonth)).
		Msg("Starting monthly summary sync to Notion")

	pages, err := queryAllNotionPages(ctx, svc, databaseID)
	if err != nil {
		return res, fmt.Errorf("SyncMonthlySummary: %w", err)
	}

	existing := make(map[string]string, len(pages))
	for _, page := range pages {
		if ym := extractMonth(page); ym != "" {
			if _, seen := existing[ym]; !seen {
				existing[ym] = string(page.ID)
			}
		}
	}

	for _, m := range summary.ByMonth {
		props := MonthToNotionProperties(m)

		if pageID, ok := existing[m.YearMonth]; ok {
			if _, err := svc.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("month", m.YearMonth).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
			continue
		}

		page, err := svc.CreatePage(ctx, databaseID, props)
		if err != nil {
			log.Warn().Err(err).Str("month", m.YearMonth).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		log.Debug().Str("month", m.YearMonth).Str("page_id", string(page.ID)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("failed", res.Failed).
		Msg("Monthly summary sync completed")

	return res, nil
}

// queryAllNotionPages follows the query cursor until the database is exhausted.
func queryAllNotionPages(ctx context.Context, svc NotionService, databaseID string) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{PageSize: PageSize}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := svc.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		all = append(all, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return all, nil
}
