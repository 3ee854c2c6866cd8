// Package pipeline imports statements stored in GCS into BigQuery.
package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/spend-insight/internal/aggregate"
	"github.com/dvloznov/spend-insight/internal/logger"
)

// Deps are the collaborators of the import pipeline.
type Deps struct {
	Storage    StorageService
	Repo       Repository
	Classifier aggregate.Classifier // nil uses the embedded rules
}

// IngestStatementFromGCSWithDeps imports one statement. gcsURI should look
// like "gs://bucket/statements/2025/01/kaspi.pdf". format is csv, pdf or
// empty to detect it from the file name.
func IngestStatementFromGCSWithDeps(ctx context.Context, gcsURI, format string, deps Deps) (*PipelineState, error) {
	if deps.Storage == nil || deps.Repo == nil {
		return nil, fmt.Errorf("IngestStatementFromGCS: storage and repository are required")
	}

	log := logger.FromContext(ctx)
	state := &PipelineState{GCSURI: gcsURI, Format: format}

	if err := NewStatementImportPipeline(deps).Execute(ctx, state); err != nil {
		log.Error().Err(err).Str("gcs_uri", gcsURI).Str("import_id", state.ImportID()).Msg("statement import failed")
		return state, fmt.Errorf("IngestStatementFromGCS: %w", err)
	}

	log.Info().
		Str("gcs_uri", gcsURI).
		Str("import_id", state.ImportID()).
		Str("source", string(state.Result.Source)).
		Int("transactions", len(state.Result.Transactions)).
		Int("rows_dropped", state.Result.RowsDropped).
		Msg("statement imported")
	return state, nil
}
