package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"
)

// InsertTransactionsWithClient streams rows into the transactions table. Each
// row carries its transaction_id as insert ID so retried inserts are
// de-duplicated by BigQuery on a best-effort basis.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, rows []*TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	savers := make([]*bigquery.StructSaver, 0, len(rows))
	for _, r := range rows {
		savers = append(savers, &bigquery.StructSaver{Struct: r, InsertID: r.TransactionID})
	}

	inserter := client.DatasetInProject(ds.Project, ds.Name).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, savers); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}

	return nil
}

// QueryTransactionsByDateRangeWithClient returns the transactions of
// successful imports between start and end inclusive. A transaction imported
// more than once is returned once, from its latest import.
func QueryTransactionsByDateRangeWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, start, end civil.Date) ([]*TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			t.transaction_id,
			t.import_id,
			t.transaction_date,
			t.amount,
			t.currency,
			t.direction,
			t.raw_description,
			t.category_name,
			t.statement_kind,
			t.created_ts,
			t.extra
		FROM %s t
		INNER JOIN %s i
		  ON t.import_id = i.import_id
		WHERE t.transaction_date >= @start_date
		  AND t.transaction_date <= @end_date
		  AND i.status = 'SUCCESS'
		QUALIFY ROW_NUMBER() OVER (PARTITION BY t.transaction_id ORDER BY t.created_ts DESC) = 1
		ORDER BY t.transaction_date, t.created_ts
	`, ds.Table(transactionsTable), ds.Table(importsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRange: query read: %w", err)
	}

	var rows []*TransactionRow
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByDateRange: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
