// Package handlers implements the HTTP endpoints of the API server.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/dvloznov/spend-insight/internal/insight"
	"github.com/go-playground/validator/v10"
)

// Analyzer produces insights for a list of transactions.
type Analyzer interface {
	Analyze(ctx context.Context, txs []domain.Transaction, mode insight.Mode) insight.Result
}

// ImportRecorder counts imported files.
type ImportRecorder interface {
	RecordImport(source string, transactions int)
}

type nopRecorder struct{}

func (nopRecorder) RecordImport(string, int) {}

// TransactionDTO is the JSON shape of a transaction.
type TransactionDTO struct {
	Date        string  `json:"date" validate:"required"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount" validate:"required"`
	Kind        string  `json:"kind,omitempty"`
}

func toDTOs(txs []domain.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, TransactionDTO{
			Date:        tx.Date.String(),
			Description: tx.Description,
			Amount:      tx.Amount.InexactFloat64(),
			Kind:        tx.Kind,
		})
	}
	return out
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage flattens validator errors into one line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Namespace()+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
