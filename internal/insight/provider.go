package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/spend-insight/internal/domain"
	"github.com/dvloznov/spend-insight/internal/ingest"
)

// DefaultMaxTransactions is how many of the most recent transactions are sent
// to a remote provider.
const DefaultMaxTransactions = 200

// maxDescriptionRunes bounds each description sent to a remote provider.
const maxDescriptionRunes = 140

// CompactTx is the wire form of one transaction for remote analysis.
type CompactTx struct {
	D string  `json:"d"`
	A float64 `json:"a"`
}

// Provider produces an Insight remotely.
type Provider interface {
	Insight(ctx context.Context, txs []CompactTx) (domain.Insight, error)
}

// Compact keeps the limit most recent transactions, truncates descriptions and
// drops everything but the amount.
func Compact(txs []domain.Transaction, limit int) []CompactTx {
	sorted := make([]domain.Transaction, len(txs))
	copy(sorted, txs)
	ingest.SortByDate(sorted)

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}

	out := make([]CompactTx, 0, len(sorted))
	for _, tx := range sorted {
		out = append(out, CompactTx{
			D: truncateRunes(tx.Description, maxDescriptionRunes),
			A: tx.Amount.InexactFloat64(),
		})
	}
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

const systemPrompt = "Ты — финансовый аналитик банка. Тебе дан список операций: d — описание, a — сумма (отрицательные — расходы). " +
	"Сгруппируй их по категориям (например: \"Продукты\", \"Кафе\", \"Транспорт\", \"Подписки\", \"Коммунальные\", \"Здоровье\", \"Переводы\", \"Другое\"). " +
	"Верни строго JSON вида: {\"categories\":[{\"name\":string,\"total\":number,\"kind\":\"expense\"|\"income\",\"examples\":string[]}],\"habits\":string[]}. " +
	"categories — топ-10 по расходам и доходам. habits — 5–10 советов, как сократить траты и выработать полезные финансовые привычки."

// userPrompt renders the transactions for the user turn.
func userPrompt(txs []CompactTx) (string, error) {
	payload, err := json.Marshal(txs)
	if err != nil {
		return "", fmt.Errorf("userPrompt: marshal transactions: %w", err)
	}
	return "Операции: " + string(payload), nil
}

// decodeInsight parses model text into an Insight, tolerating code fences
// and chatter around the JSON object.
func decodeInsight(raw string) (domain.Insight, error) {
	clean := cleanModelJSON(raw)
	if clean == "" {
		return domain.Insight{}, fmt.Errorf("%w: empty model output", ErrInvalidInsight)
	}

	var insight domain.Insight
	if err := json.Unmarshal([]byte(clean), &insight); err != nil {
		return domain.Insight{}, fmt.Errorf("%w: %v", ErrInvalidInsight, err)
	}
	return insight, nil
}

// cleanModelJSON strips Markdown fences and keeps the text from the first '{'
// to the last '}'.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return ""
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = strings.TrimSpace(s[:idx])
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
