package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/spend-insight/internal/jobs"
	"github.com/dvloznov/spend-insight/internal/logger"
	"github.com/rs/zerolog"
)

// ImportRecorder counts imported files.
type ImportRecorder interface {
	RecordImport(source string, transactions int)
}

// NewJobHandler returns the queue handler that runs the import pipeline for
// import_statement jobs. recorder may be nil.
func NewJobHandler(deps Deps, recorder ImportRecorder, log zerolog.Logger) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		importJob, ok := job.(*jobs.ImportStatementJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		jobLog := logger.WithFields(log, map[string]interface{}{
			"job_id":  importJob.JobID,
			"gcs_uri": importJob.GCSURI,
			"attempt": importJob.RetryCount + 1,
		})
		jobLog.Info().Msg("Processing import job")

		state, err := IngestStatementFromGCSWithDeps(logger.WithContext(ctx, jobLog), importJob.GCSURI, importJob.Format, deps)
		if state != nil && state.ImportID() != "" {
			importJob.ImportID = state.ImportID()
		}
		if err != nil {
			jobLog.Error().Err(err).Msg("Pipeline execution failed")
			return err
		}

		importJob.Transactions = len(state.Result.Transactions)
		if recorder != nil {
			recorder.RecordImport(string(state.Result.Source), importJob.Transactions)
		}

		jobLog.Info().
			Str("import_id", importJob.ImportID).
			Int("transactions", importJob.Transactions).
			Msg("Pipeline execution completed successfully")
		return nil
	}
}
