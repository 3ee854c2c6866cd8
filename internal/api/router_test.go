package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/spend-insight/internal/api"
	"github.com/dvloznov/spend-insight/internal/api/handlers"
	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/dvloznov/spend-insight/internal/insight"
	"github.com/dvloznov/spend-insight/internal/jobs"
	"github.com/dvloznov/spend-insight/internal/jobs/inmemory"
	"github.com/dvloznov/spend-insight/internal/logger"
	"github.com/dvloznov/spend-insight/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statementCSV = "Дата;Назначение;Сумма\n" +
	"05.01.2025;Magnum;-20 000\n" +
	"06.01.2025;Coffee Boom;-3 500\n" +
	"07.01.2025;Зарплата;300 000\n"

// mockStorage is a mock implementation of gcs.StorageService for testing.
type mockStorage struct {
	UploadFunc func(ctx context.Context, bucket, object string, r io.Reader, contentType string) (string, error)
}

func (m *mockStorage) Upload(ctx context.Context, bucket, object string, r io.Reader, contentType string) (string, error) {
	return m.UploadFunc(ctx, bucket, object, r, contentType)
}

func (m *mockStorage) UploadFile(ctx context.Context, bucket, object, filePath string) (string, error) {
	return "", nil
}

func (m *mockStorage) FetchFromGCS(ctx context.Context, gcsURI string) ([]byte, error) {
	return nil, nil
}

func (m *mockStorage) ExtractFilenameFromGCSURI(uri string) string { return "" }

type testServer struct {
	handler  http.Handler
	sessions *session.Store
	jobStore *inmemory.Store
	queue    *inmemory.Queue
	storage  *mockStorage
}

func newTestServer(t *testing.T, analyzer handlers.Analyzer) *testServer {
	t.Helper()

	log := logger.NewWithWriter(io.Discard)
	sessions := session.NewStore()
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, jobStore)
	t.Cleanup(func() { _ = queue.Close() })
	storage := &mockStorage{}

	if analyzer == nil {
		analyzer = insight.NewAnalyzer(nil)
	}

	h := api.NewRouter(api.Options{
		Spend:    handlers.NewSpendHandler(sessions, analyzer, nil, nil, 1<<20, log),
		Sessions: handlers.NewSessionsHandler(sessions, analyzer, log),
		Imports:  handlers.NewImportsHandler(queue, storage, "statements-bucket", log),
		Jobs:     handlers.NewJobsHandler(jobStore, log),
		Health:   handlers.Health(sessions),
		Log:      log,
	})
	return &testServer{handler: h, sessions: sessions, jobStore: jobStore, queue: queue, storage: storage}
}

func (s *testServer) do(t *testing.T, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type importBody struct {
	SessionID    string                    `json:"session_id"`
	State        string                    `json:"state"`
	Hint         string                    `json:"hint"`
	Transactions []handlers.TransactionDTO `json:"transactions"`
	Summary      domain.AggregateSummary   `json:"summary"`
}

func TestImportCSV_RawBody(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodPost, "/api/spend/csv", "text/csv", strings.NewReader(statementCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body importBody
	decode(t, rec, &body)
	assert.NotEmpty(t, body.SessionID)
	assert.Equal(t, "loaded", body.State)
	assert.Equal(t, "Импортировано операций: 3", body.Hint)
	require.Len(t, body.Transactions, 3)
	assert.Equal(t, "2025-01-05", body.Transactions[0].Date)
	assert.Equal(t, int64(300000), body.Summary.Income)
	assert.Equal(t, int64(23500), body.Summary.Expense)
	assert.Equal(t, body.Summary.Income-body.Summary.Expense, body.Summary.Net)
}

func TestImportCSV_Multipart(t *testing.T) {
	srv := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "kaspi.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte(statementCSV))
	require.NoError(t, mw.Close())

	rec := srv.do(t, http.MethodPost, "/api/spend/csv", mw.FormDataContentType(), &buf)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body importBody
	decode(t, rec, &body)
	assert.Len(t, body.Transactions, 3)
}

func TestImportCSV_EmptyKeepsHint(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodPost, "/api/spend/csv", "text/csv", strings.NewReader(""))
	require.Equal(t, http.StatusOK, rec.Code)

	var body importBody
	decode(t, rec, &body)
	assert.Equal(t, "empty", body.State)
	assert.NotNil(t, body.Summary.ByMonth)
	assert.NotNil(t, body.Summary.ByCategory)
	assert.Equal(t, "Загрузите CSV или PDF (текстовый, не скан).", body.Hint)
	assert.Empty(t, body.Transactions)
}

func TestImportPDF_Unreadable(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodPost, "/api/spend/pdf", "application/pdf", strings.NewReader("definitely not a pdf"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body importBody
	decode(t, rec, &body)
	assert.Equal(t, "Из PDF ничего не извлечено. Возможно, это скан (нужен OCR).", body.Hint)
}

func TestImportPDFText(t *testing.T) {
	srv := newTestServer(t, nil)

	payload := `{"text":"12.01.25 -5 000,00 ₸ Purchases Magnum\n13.01.25 +150 000,00 ₸ Replenishment Salary"}`
	rec := srv.do(t, http.MethodPost, "/api/spend/pdf-text", "application/json", strings.NewReader(payload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body importBody
	decode(t, rec, &body)
	require.Len(t, body.Transactions, 2)
	assert.Equal(t, "Purchases", body.Transactions[0].Kind)
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodPost, "/api/spend/csv", "text/csv", strings.NewReader(statementCSV))
	require.Equal(t, http.StatusOK, rec.Code)
	var imported importBody
	decode(t, rec, &imported)

	rec = srv.do(t, http.MethodGet, "/api/sessions/"+imported.SessionID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		State            string `json:"state"`
		TransactionCount int    `json:"transaction_count"`
	}
	decode(t, rec, &got)
	assert.Equal(t, "loaded", got.State)
	assert.Equal(t, 3, got.TransactionCount)

	// Without a provider the remote request falls back to local analysis.
	rec = srv.do(t, http.MethodPost, "/api/sessions/"+imported.SessionID+"/insight?mode=remote", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var applied struct {
		State  string         `json:"state"`
		Result insight.Result `json:"result"`
	}
	decode(t, rec, &applied)
	assert.Equal(t, "local_insight", applied.State)
	assert.Equal(t, insight.SourceLocal, applied.Result.Source)
	assert.Contains(t, applied.Result.Warning, "AI недоступен")

	rec = srv.do(t, http.MethodGet, "/api/sessions/"+imported.SessionID+"/chart.png", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = srv.do(t, http.MethodGet, "/api/sessions/"+imported.SessionID+"/chart.png?kind=monthly", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionInsight_NoData(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodPost, "/api/spend/csv", "text/csv", strings.NewReader(""))
	var imported importBody
	decode(t, rec, &imported)

	rec = srv.do(t, http.MethodPost, "/api/sessions/"+imported.SessionID+"/insight", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/sessions/"+imported.SessionID+"/chart.png", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSession_NotFound(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodGet, "/api/sessions/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeAnalyzer struct {
	mode insight.Mode
	txs  []domain.Transaction
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, txs []domain.Transaction, mode insight.Mode) insight.Result {
	f.mode, f.txs = mode, txs
	return insight.Result{
		Value:  domain.Insight{Categories: []domain.InsightCategory{{Name: "Еда", Total: 10, Kind: domain.KindExpense}}, Habits: []string{"h"}},
		Source: insight.SourceRemote,
	}
}

func TestAnalyzeAI(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	srv := newTestServer(t, analyzer)

	body := `{"transactions":[{"date":"2025-01-02","description":"Magnum","amount":-1000},{"date":"01.01.2025","description":"Kaspi","amount":5000}]}`
	rec := srv.do(t, http.MethodPost, "/api/spend/ai", "application/json", strings.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res insight.Result
	decode(t, rec, &res)
	assert.Equal(t, insight.SourceRemote, res.Source)
	assert.Equal(t, insight.ModeRemote, analyzer.mode)
	require.Len(t, analyzer.txs, 2)
	assert.Equal(t, "Kaspi", analyzer.txs[0].Description, "transactions are sorted by date")
}

func TestAnalyze_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"empty list", "/api/spend/ai", `{"transactions":[]}`},
		{"missing list", "/api/spend/ai", `{}`},
		{"not json", "/api/spend/local", `transactions`},
		{"bad date", "/api/spend/local", `{"transactions":[{"date":"yesterday","amount":-1}]}`},
		{"zero amount", "/api/spend/local", `{"transactions":[{"date":"2025-01-01","amount":0}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeAnalyzer{})
			rec := srv.do(t, http.MethodPost, tt.path, "application/json", strings.NewReader(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestAnalyzeLocal(t *testing.T) {
	srv := newTestServer(t, nil)

	body := `{"transactions":[{"date":"2025-01-02","description":"Magnum","amount":-1000}]}`
	rec := srv.do(t, http.MethodPost, "/api/spend/local", "application/json", strings.NewReader(body))
	require.Equal(t, http.StatusOK, rec.Code)

	var res insight.Result
	decode(t, rec, &res)
	assert.Equal(t, insight.SourceLocal, res.Source)
	assert.Empty(t, res.Warning)
	require.NotEmpty(t, res.Value.Categories)
	assert.Equal(t, "Продукты", res.Value.Categories[0].Name)
}

func TestEnqueueImport(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodPost, "/api/imports", "application/json", strings.NewReader(`{"gcs_uri":"gs://b/statements/a.pdf","format":"pdf"}`))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var accepted map[string]string
	decode(t, rec, &accepted)
	assert.Equal(t, "pending", accepted["status"])

	rec = srv.do(t, http.MethodGet, "/api/jobs/"+accepted["job_id"], "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var job jobs.ImportStatementJob
	decode(t, rec, &job)
	assert.Equal(t, "gs://b/statements/a.pdf", job.GCSURI)
	assert.Equal(t, "pdf", job.Format)

	rec = srv.do(t, http.MethodGet, "/api/jobs?status=pending", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Count)

	rec = srv.do(t, http.MethodGet, "/api/jobs?status=done", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnqueueImport_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing uri", `{}`},
		{"not gcs", `{"gcs_uri":"https://example.com/a.csv"}`},
		{"no object", `{"gcs_uri":"gs://bucket"}`},
		{"bad format", `{"gcs_uri":"gs://b/a.csv","format":"xls"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, nil)
			rec := srv.do(t, http.MethodPost, "/api/imports", "application/json", strings.NewReader(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestUploadAndImport(t *testing.T) {
	srv := newTestServer(t, nil)
	var gotContentType string
	srv.storage.UploadFunc = func(ctx context.Context, bucket, object string, r io.Reader, contentType string) (string, error) {
		gotContentType = contentType
		return "gs://" + bucket + "/" + object, nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "statement.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, mw.Close())

	rec := srv.do(t, http.MethodPost, "/api/imports/upload", mw.FormDataContentType(), &buf)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var accepted map[string]string
	decode(t, rec, &accepted)
	assert.True(t, strings.HasPrefix(accepted["gcs_uri"], "gs://statements-bucket/statements/"))
	assert.Equal(t, "application/pdf", gotContentType)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = srv.do(t, http.MethodPost, "/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
