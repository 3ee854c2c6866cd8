package ingest

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuessDelimiter(t *testing.T) {
	tests := []struct {
		name string
		line string
		want rune
	}{
		{name: "commas", line: "date,description,amount", want: ','},
		{name: "semicolons", line: "Дата;Описание;Сумма", want: ';'},
		{name: "tie goes to comma", line: "a;b,c", want: ','},
		{name: "semicolon majority with decimal commas", line: "05.01.2024;Magnum;-1500,50;KZT", want: ';'},
		{name: "no delimiters", line: "header", want: ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GuessDelimiter(tt.line))
		})
	}
}

func TestParseRecords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   [][]string
		wantOK bool
	}{
		{
			name:   "quoted delimiter stays in field",
			input:  "date,description,amount\n2024-01-05,\"Magnum, Astana\",-15000\n",
			want:   [][]string{{"date", "description", "amount"}, {"2024-01-05", "Magnum, Astana", "-15000"}},
			wantOK: true,
		},
		{
			name:   "semicolons with crlf and blank lines",
			input:  "Дата;Сумма\r\n\r\n05.01.2024 ; -1 500,00 \r\n",
			want:   [][]string{{"Дата", "Сумма"}, {"05.01.2024", "-1 500,00"}},
			wantOK: true,
		},
		{
			name:   "quotes are stripped",
			input:  "\"a\",\"b\"\n\"1\",\"2\"",
			want:   [][]string{{"a", "b"}, {"1", "2"}},
			wantOK: true,
		},
		{
			name:   "trailing empty field is kept",
			input:  "a,b,c\n1,2,",
			want:   [][]string{{"a", "b", "c"}, {"1", "2", ""}},
			wantOK: true,
		},
		{name: "header only", input: "date,description,amount\n", wantOK: false},
		{name: "empty", input: "", wantOK: false},
		{name: "whitespace only", input: " \n\t\n", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRecords(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveHeaders(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   ColumnMap
	}{
		{
			name:   "english unified amount",
			header: []string{"Date", "Description", "Amount", "Currency"},
			want:   ColumnMap{Date: 0, Description: 1, Amount: 2, Credit: NotFound, Debit: NotFound, Currency: 3},
		},
		{
			name:   "russian credit and debit",
			header: []string{"Дата операции", "Контрагент", "Поступление", "Списание", "Валюта"},
			want:   ColumnMap{Date: 0, Description: 1, Amount: NotFound, Credit: 2, Debit: 3, Currency: 4},
		},
		{
			name:   "first match wins per role",
			header: []string{"Posting date", "Value date", "Details", "Total"},
			want:   ColumnMap{Date: 0, Description: 2, Amount: 3, Credit: NotFound, Debit: NotFound, Currency: NotFound},
		},
		{
			name:   "nothing recognized",
			header: []string{"foo", "bar"},
			want:   ColumnMap{Date: NotFound, Description: NotFound, Amount: NotFound, Credit: NotFound, Debit: NotFound, Currency: NotFound},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveHeaders(tt.header))
		})
	}
}

func TestBuildTransactions(t *testing.T) {
	records, ok := ParseRecords("date,description,amount\n" +
		"2024-01-07,Salary,300000\n" +
		"2024-01-05,Magnum Grocery,-15000\n" +
		"not a date,Broken,-100\n" +
		"2024-01-06,Zero,0\n" +
		"2024-01-08,,-250\n" +
		"2024-01-09,Garbage,abc\n")
	require.True(t, ok)

	txs := BuildTransactions(records)
	require.Len(t, txs, 3)

	assert.Equal(t, civil.Date{Year: 2024, Month: time.January, Day: 5}, txs[0].Date)
	assert.Equal(t, "Magnum Grocery", txs[0].Description)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(-15000)))
	assert.Equal(t, map[string]string{"date": "2024-01-05", "description": "Magnum Grocery", "amount": "-15000"}, txs[0].Raw)

	assert.Equal(t, "Salary", txs[1].Description)
	assert.True(t, txs[1].IsIncome())

	assert.Equal(t, placeholderDescription, txs[2].Description)
}

func TestBuildTransactions_CreditDebitColumns(t *testing.T) {
	records, ok := ParseRecords("Дата;Назначение;Приход;Расход\n" +
		"05.02.2024;Kaspi перевод;50 000;\n" +
		"06.02.2024;Small;;3 200,50\n" +
		"07.02.2024;Пусто;;\n")
	require.True(t, ok)

	txs := BuildTransactions(records)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(50000)))
	assert.True(t, txs[1].Amount.Equal(decimal.RequireFromString("-3200.50")))
}

func TestBuildTransactions_FallbackColumns(t *testing.T) {
	records := [][]string{
		{"when", "what", "сумма"},
		{"2024-03-01", "Bolt ride", "-1200"},
	}

	txs := BuildTransactions(records)
	require.Len(t, txs, 1)
	assert.Equal(t, "Bolt ride", txs[0].Description)
}

func TestBuildTransactions_NoAmountColumnDropsEverything(t *testing.T) {
	records := [][]string{
		{"date", "description"},
		{"2024-03-01", "Bolt ride"},
	}
	assert.Empty(t, BuildTransactions(records))
}

func TestParseStatementLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantOK   bool
		wantDate civil.Date
		wantAmt  string
		wantDesc string
		wantKind string
	}{
		{
			name:     "purchase with two digit year",
			line:     "05.01.24 - 15 000,00 ₸ Purchases Magnum Astana",
			wantOK:   true,
			wantDate: civil.Date{Year: 2024, Month: time.January, Day: 5},
			wantAmt:  "-15000",
			wantDesc: "Magnum Astana",
			wantKind: "Purchases",
		},
		{
			name:     "replenishment four digit year",
			line:     "12.02.2024 + 250 000.00 ₸ Replenishment   Salary   February",
			wantOK:   true,
			wantDate: civil.Date{Year: 2024, Month: time.February, Day: 12},
			wantAmt:  "250000",
			wantDesc: "Salary February",
			wantKind: "Replenishment",
		},
		{
			name:     "case insensitive kind without currency",
			line:     "01.03.24 -1 000,50 transfers Айгерим К.",
			wantOK:   true,
			wantDate: civil.Date{Year: 2024, Month: time.March, Day: 1},
			wantAmt:  "-1000.50",
			wantDesc: "Айгерим К.",
			wantKind: "Transfers",
		},
		{
			name:     "non breaking spaces",
			line:     "05.01.24 - 15 000,00 ₸ Purchases Magnum",
			wantOK:   true,
			wantDate: civil.Date{Year: 2024, Month: time.January, Day: 5},
			wantAmt:  "-15000",
			wantDesc: "Magnum",
			wantKind: "Purchases",
		},
		{name: "header line", line: "Дата Сумма Операция Детали", wantOK: false},
		{name: "unknown kind", line: "05.01.24 - 100,00 ₸ Cashback Magnum", wantOK: false},
		{name: "invalid date", line: "31.02.24 - 100,00 ₸ Purchases Magnum", wantOK: false},
		{name: "zero amount", line: "05.01.24 + 0,00 ₸ Others Adjustment", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, ok := ParseStatementLine(tt.line)
			require.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				return
			}
			assert.Equal(t, tt.wantDate, tx.Date)
			assert.True(t, decimal.RequireFromString(tt.wantAmt).Equal(tx.Amount), "amount %s", tx.Amount)
			assert.Equal(t, tt.wantDesc, tx.Description)
			assert.Equal(t, tt.wantKind, tx.Kind)
		})
	}
}

func TestImportCSV(t *testing.T) {
	t.Run("scenario", func(t *testing.T) {
		res := ImportCSV("date,description,amount\n2024-01-05,Magnum Grocery,-15000\n2024-01-07,Salary,300000")
		assert.Equal(t, SourceCSV, res.Source)
		assert.NotEmpty(t, res.ID)
		assert.Len(t, res.Transactions, 2)
		assert.Equal(t, 2, res.RowsSeen)
		assert.Equal(t, 0, res.RowsDropped)
		assert.Equal(t, "Импортировано операций: 2", res.Hint)
	})

	t.Run("empty input", func(t *testing.T) {
		res := ImportCSV("  ")
		assert.True(t, res.Empty())
		assert.Equal(t, HintNoInput, res.Hint)
	})

	t.Run("header only", func(t *testing.T) {
		res := ImportCSV("date,description,amount")
		assert.True(t, res.Empty())
		assert.Equal(t, HintCSVUnreadable, res.Hint)
	})

	t.Run("every row dropped", func(t *testing.T) {
		res := ImportCSV("date,description,amount\nnope,x,1\n2024-01-01,y,0")
		assert.True(t, res.Empty())
		assert.Equal(t, 2, res.RowsDropped)
		assert.Equal(t, HintCSVUnreadable, res.Hint)
	})
}

func TestImportStatementText(t *testing.T) {
	text := "Выписка по карте\n" +
		"07.01.24 + 300 000,00 ₸ Replenishment Зарплата\n" +
		"05.01.24 - 15 000,00 ₸ Purchases Magnum Astana\n" +
		"Итого\n"

	res := ImportStatementText(text)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, SourcePDF, res.Source)
	assert.Equal(t, "Magnum Astana", res.Transactions[0].Description, "sorted by date")
	assert.Equal(t, 4, res.RowsSeen)
	assert.Equal(t, 2, res.RowsDropped)

	empty := ImportStatementText("scanned image, no text\n")
	assert.True(t, empty.Empty())
	assert.Equal(t, HintPDFEmpty, empty.Hint)
}

func TestDetectSource(t *testing.T) {
	assert.Equal(t, SourcePDF, DetectSource("Statement.PDF", ""))
	assert.Equal(t, SourcePDF, DetectSource("upload", "application/pdf"))
	assert.Equal(t, SourceCSV, DetectSource("export.csv", "text/csv"))
}

func TestFingerprint(t *testing.T) {
	a, ok := ParseStatementLine("05.01.24 - 15 000,00 ₸ Purchases Magnum Astana")
	require.True(t, ok)
	b, ok := ParseStatementLine("05.01.2024 - 15000.00 Purchases magnum   astana")
	require.True(t, ok)

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 64)

	b.Amount = b.Amount.Add(decimal.NewFromInt(1))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
