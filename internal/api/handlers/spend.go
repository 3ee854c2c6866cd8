package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dvloznov/spend-insight/internal/aggregate"
	"github.com/dvloznov/spend-insight/internal/api/middleware"
	"github.com/dvloznov/spend-insight/internal/categorize"
	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/dvloznov/spend-insight/internal/ingest"
	"github.com/dvloznov/spend-insight/internal/insight"
	"github.com/dvloznov/spend-insight/internal/normalize"
	"github.com/dvloznov/spend-insight/internal/session"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultMaxUploadBytes bounds an uploaded statement.
const DefaultMaxUploadBytes = 20 << 20

// SpendHandler handles statement imports and ad-hoc analysis.
type SpendHandler struct {
	sessions   *session.Store
	analyzer   Analyzer
	classifier aggregate.Classifier
	recorder   ImportRecorder
	validate   *validator.Validate
	maxUpload  int64
	log        zerolog.Logger
}

// NewSpendHandler creates a new spend handler. classifier and recorder may be nil.
func NewSpendHandler(sessions *session.Store, analyzer Analyzer, classifier aggregate.Classifier, recorder ImportRecorder, maxUpload int64, log zerolog.Logger) *SpendHandler {
	if classifier == nil {
		classifier = categorize.Default()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &SpendHandler{
		sessions:   sessions,
		analyzer:   analyzer,
		classifier: classifier,
		recorder:   recorder,
		validate:   newValidator(),
		maxUpload:  maxUpload,
		log:        log,
	}
}

type importResponse struct {
	SessionID    string                  `json:"session_id"`
	State        session.State           `json:"state"`
	Source       ingest.Source           `json:"source"`
	Hint         string                  `json:"hint"`
	RowsSeen     int                     `json:"rows_seen"`
	RowsDropped  int                     `json:"rows_dropped"`
	Transactions []TransactionDTO        `json:"transactions"`
	Summary      domain.AggregateSummary `json:"summary"`
}

// ImportCSV handles POST /api/spend/csv with a multipart "file" or a raw body.
func (h *SpendHandler) ImportCSV(w http.ResponseWriter, r *http.Request) {
	data, _, err := h.readUpload(w, r)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}
	h.respondImport(w, r, ingest.ImportCSV(string(data)))
}

// ImportPDF handles POST /api/spend/pdf with a multipart "file".
func (h *SpendHandler) ImportPDF(w http.ResponseWriter, r *http.Request) {
	data, name, err := h.readUpload(w, r)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	res, err := ingest.ImportPDF(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		// An unreadable PDF is reported through the hint.
		h.log.Warn().Err(err).Str("filename", name).Msg("PDF text extraction failed")
	}
	h.respondImport(w, r, res)
}

// ImportPDFText handles POST /api/spend/pdf-text with {"text": "..."} or a
// plain text body of already extracted statement lines.
func (h *SpendHandler) ImportPDFText(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	text := string(body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		text = req.Text
	}

	h.respondImport(w, r, ingest.ImportStatementText(text))
}

type analyzeRequest struct {
	Transactions []TransactionDTO `json:"transactions" validate:"min=1,dive"`
}

// AnalyzeAI handles POST /api/spend/ai. The remote analysis falls back to
// the local one, so the response is always 200 for a valid request.
func (h *SpendHandler) AnalyzeAI(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, insight.ModeRemote)
}

// AnalyzeLocal handles POST /api/spend/local.
func (h *SpendHandler) AnalyzeLocal(w http.ResponseWriter, r *http.Request) {
	h.analyze(w, r, insight.ModeLocal)
}

func (h *SpendHandler) analyze(w http.ResponseWriter, r *http.Request, mode insight.Mode) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if isTooLarge(err) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Transactions) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "transactions are required")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	txs, err := fromDTOs(req.Transactions)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.analyzer.Analyze(r.Context(), txs, mode)
	middleware.WriteJSON(w, http.StatusOK, result)
}

func fromDTOs(in []TransactionDTO) ([]domain.Transaction, error) {
	txs := make([]domain.Transaction, 0, len(in))
	for i, d := range in {
		date, ok := normalize.ParseDate(d.Date)
		if !ok {
			return nil, fmt.Errorf("transactions[%d].date is not a valid date", i)
		}
		txs = append(txs, domain.Transaction{
			Date:        date,
			Description: strings.TrimSpace(d.Description),
			Amount:      decimal.NewFromFloat(d.Amount),
			Kind:        d.Kind,
		})
	}
	ingest.SortByDate(txs)
	return txs, nil
}

func (h *SpendHandler) respondImport(w http.ResponseWriter, r *http.Request, res ingest.ImportResult) {
	s := session.New()
	s.Load(res, h.classifier)
	if err := h.sessions.Save(r.Context(), s); err != nil {
		h.log.Error().Err(err).Msg("Failed to save session")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	h.recorder.RecordImport(string(res.Source), len(res.Transactions))
	h.log.Info().
		Str("session_id", s.ID).
		Str("source", string(res.Source)).
		Int("transactions", len(res.Transactions)).
		Int("rows_dropped", res.RowsDropped).
		Msg("Statement imported")

	middleware.WriteJSON(w, http.StatusOK, importResponse{
		SessionID:    s.ID,
		State:        s.State,
		Source:       res.Source,
		Hint:         res.Hint,
		RowsSeen:     res.RowsSeen,
		RowsDropped:  res.RowsDropped,
		Transactions: toDTOs(res.Transactions),
		Summary:      s.Summary,
	})
}

// readUpload returns the "file" part of a multipart form, or the raw body.
func (h *SpendHandler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			return nil, "", err
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		return data, header.Filename, err
	}

	data, err := io.ReadAll(r.Body)
	return data, "", err
}

func (h *SpendHandler) writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case isTooLarge(err) || errors.Is(err, multipart.ErrMessageTooLarge):
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
	case errors.Is(err, http.ErrMissingFile):
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
	default:
		h.log.Warn().Err(err).Msg("Failed to read upload")
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read upload")
	}
}
