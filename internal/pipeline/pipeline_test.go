package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	infra "github.com/dvloznov/spend-insight/internal/infra/bigquery"
	"github.com/dvloznov/spend-insight/internal/ingest"
	"github.com/dvloznov/spend-insight/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStorageService is a mock implementation of StorageService for testing.
type MockStorageService struct {
	FetchFromGCSFunc              func(ctx context.Context, gcsURI string) ([]byte, error)
	ExtractFilenameFromGCSURIFunc func(uri string) string
}

func (m *MockStorageService) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	if m.FetchFromGCSFunc != nil {
		return m.FetchFromGCSFunc(ctx, gcsURI)
	}
	return []byte(sampleCSV), nil
}

func (m *MockStorageService) ExtractFilenameFromGCSURI(uri string) string {
	if m.ExtractFilenameFromGCSURIFunc != nil {
		return m.ExtractFilenameFromGCSURIFunc(uri)
	}
	return "statement.csv"
}

// MockRepository records what the pipeline writes.
type MockRepository struct {
	InsertImportFunc        func(ctx context.Context, row *infra.ImportRow) error
	InsertTransactionsFunc  func(ctx context.Context, rows []*infra.TransactionRow) error
	InsertInsightRunFunc    func(ctx context.Context, row *infra.InsightRunRow) error
	MarkImportSucceededFunc func(ctx context.Context, importID string, n int) error

	imports      []*infra.ImportRow
	transactions []*infra.TransactionRow
	insightRuns  []*infra.InsightRunRow
	failed       map[string]error
	succeeded    map[string]int
}

func (m *MockRepository) InsertImport(ctx context.Context, row *infra.ImportRow) error {
	if m.InsertImportFunc != nil {
		if err := m.InsertImportFunc(ctx, row); err != nil {
			return err
		}
	}
	m.imports = append(m.imports, row)
	return nil
}

func (m *MockRepository) MarkImportFailed(ctx context.Context, importID string, importErr error) {
	if m.failed == nil {
		m.failed = map[string]error{}
	}
	m.failed[importID] = importErr
}

func (m *MockRepository) MarkImportSucceeded(ctx context.Context, importID string, n int) error {
	if m.MarkImportSucceededFunc != nil {
		if err := m.MarkImportSucceededFunc(ctx, importID, n); err != nil {
			return err
		}
	}
	if m.succeeded == nil {
		m.succeeded = map[string]int{}
	}
	m.succeeded[importID] = n
	return nil
}

func (m *MockRepository) InsertTransactions(ctx context.Context, rows []*infra.TransactionRow) error {
	if m.InsertTransactionsFunc != nil {
		if err := m.InsertTransactionsFunc(ctx, rows); err != nil {
			return err
		}
	}
	m.transactions = append(m.transactions, rows...)
	return nil
}

func (m *MockRepository) InsertInsightRun(ctx context.Context, row *infra.InsightRunRow) error {
	if m.InsertInsightRunFunc != nil {
		if err := m.InsertInsightRunFunc(ctx, row); err != nil {
			return err
		}
	}
	m.insightRuns = append(m.insightRuns, row)
	return nil
}

const sampleCSV = "Дата;Описание;Сумма\n" +
	"01.02.2025;Magnum Cash&Carry;-12 500,00\n" +
	"02.02.2025;Зарплата;450000\n" +
	"03.02.2025;Yandex Taxi;-2 300\n" +
	"bad;row;x\n"

func TestIngestStatementFromGCSWithDeps_CSV(t *testing.T) {
	repo := &MockRepository{}
	storage := &MockStorageService{}

	state, err := pipeline.IngestStatementFromGCSWithDeps(context.Background(), "gs://b/statements/statement.csv", "", pipeline.Deps{Storage: storage, Repo: repo})
	require.NoError(t, err)

	assert.Equal(t, ingest.SourceCSV, state.Result.Source)
	require.Len(t, repo.imports, 1)
	imp := repo.imports[0]
	assert.Equal(t, state.ImportID(), imp.ImportID)
	assert.Equal(t, "statement.csv", imp.OriginalFilename)
	assert.Equal(t, int64(4), imp.RowsSeen)
	assert.Equal(t, int64(1), imp.RowsDropped)

	require.Len(t, repo.transactions, 3)
	categories := map[string]string{}
	for _, r := range repo.transactions {
		categories[r.RawDescription] = r.CategoryName
		assert.Equal(t, imp.ImportID, r.ImportID)
	}
	assert.Equal(t, "Продукты", categories["Magnum Cash&Carry"])
	assert.Equal(t, "Доход", categories["Зарплата"])
	assert.Equal(t, "Транспорт", categories["Yandex Taxi"])

	require.Len(t, repo.insightRuns, 1)
	assert.Equal(t, "local", repo.insightRuns[0].Source)
	assert.Equal(t, int64(450000), state.Summary.Income)
	assert.Equal(t, int64(14800), state.Summary.Expense)

	assert.Equal(t, 3, repo.succeeded[imp.ImportID])
	assert.Empty(t, repo.failed)
}

func TestIngestStatementFromGCSWithDeps_FormatOverridesExtension(t *testing.T) {
	repo := &MockRepository{}
	storage := &MockStorageService{
		FetchFromGCSFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
			return []byte("not a pdf"), nil
		},
		ExtractFilenameFromGCSURIFunc: func(uri string) string { return "upload.bin" },
	}

	_, err := pipeline.IngestStatementFromGCSWithDeps(context.Background(), "gs://b/upload.bin", "pdf", pipeline.Deps{Storage: storage, Repo: repo})
	require.Error(t, err)
	assert.Empty(t, repo.imports, "nothing is recorded for an unreadable file")
}

func TestIngestStatementFromGCSWithDeps_FetchError(t *testing.T) {
	repo := &MockRepository{}
	storage := &MockStorageService{
		FetchFromGCSFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
			return nil, errors.New("object not found")
		},
	}

	_, err := pipeline.IngestStatementFromGCSWithDeps(context.Background(), "gs://b/missing.csv", "", pipeline.Deps{Storage: storage, Repo: repo})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline step 1 failed")
	assert.Contains(t, err.Error(), "object not found")
	assert.Empty(t, repo.failed)
}

func TestIngestStatementFromGCSWithDeps_MarksFailedAfterRecord(t *testing.T) {
	tests := []struct {
		name string
		repo *MockRepository
		step string
	}{
		{
			name: "insert transactions",
			repo: &MockRepository{InsertTransactionsFunc: func(ctx context.Context, rows []*infra.TransactionRow) error {
				return errors.New("quota exceeded")
			}},
			step: "pipeline step 4 failed",
		},
		{
			name: "insight run",
			repo: &MockRepository{InsertInsightRunFunc: func(ctx context.Context, row *infra.InsightRunRow) error {
				return errors.New("quota exceeded")
			}},
			step: "pipeline step 5 failed",
		},
		{
			name: "mark succeeded",
			repo: &MockRepository{MarkImportSucceededFunc: func(ctx context.Context, id string, n int) error {
				return errors.New("quota exceeded")
			}},
			step: "pipeline step 6 failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := pipeline.IngestStatementFromGCSWithDeps(context.Background(), "gs://b/s.csv", "csv", pipeline.Deps{Storage: &MockStorageService{}, Repo: tt.repo})
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.step), err.Error())

			failure, ok := tt.repo.failed[state.ImportID()]
			require.True(t, ok, "import should be marked failed")
			assert.Contains(t, failure.Error(), "quota exceeded")
		})
	}
}

func TestIngestStatementFromGCSWithDeps_EmptyFileSucceedsWithHint(t *testing.T) {
	repo := &MockRepository{}
	storage := &MockStorageService{
		FetchFromGCSFunc: func(ctx context.Context, gcsURI string) ([]byte, error) {
			return []byte("Дата;Описание;Сумма\n"), nil
		},
	}

	state, err := pipeline.IngestStatementFromGCSWithDeps(context.Background(), "gs://b/empty.csv", "", pipeline.Deps{Storage: storage, Repo: repo})
	require.NoError(t, err)

	require.Len(t, repo.imports, 1)
	assert.Equal(t, ingest.HintCSVUnreadable, repo.imports[0].Hint)
	assert.Empty(t, repo.transactions)
	assert.Equal(t, 0, repo.succeeded[state.ImportID()])
	assert.NotEmpty(t, state.Insight.Habits)
}

func TestIngestStatementFromGCSWithDeps_MissingDeps(t *testing.T) {
	_, err := pipeline.IngestStatementFromGCSWithDeps(context.Background(), "gs://b/a.csv", "", pipeline.Deps{})
	assert.Error(t, err)
}
