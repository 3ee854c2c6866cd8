package bigquery

import "fmt"

// Table names inside the dataset.
const (
	importsTable      = "imports"
	transactionsTable = "transactions"
	insightRunsTable  = "insight_runs"
	dateFormat        = "2006-01-02"
)

// Dataset locates the tables of one deployment.
type Dataset struct {
	Project string
	Name    string
}

// Table returns the backquoted fully qualified name of table.
func (d Dataset) Table(table string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.Project, d.Name, table)
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	const maxLen = 2000
	msg := err.Error()
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
