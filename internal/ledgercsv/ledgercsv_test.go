package ledgercsv

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"budgetapp/internal/models"

	"github.com/alecthomas/assert/v2"
)

func readAll(t *testing.T, input string) ([]Record, []error) {
	t.Helper()
	r, err := NewReader(strings.NewReader(input))
	assert.NoError(t, err)

	var records []Record
	var errs []error
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}

func TestReader_EnglishHeader(t *testing.T) {
	input := "Date,Type,Category,Description,Amount\n" +
		"2024-01-05,Expense,Food,Lunch,12.50\n" +
		"2024-01-06,Income,Salary,,1000\n"

	records, errs := readAll(t, input)
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, []Record{
		{Line: 1, Date: "2024-01-05", Type: "Expense", Category: "Food", Description: "Lunch", Amount: "12.50"},
		{Line: 2, Date: "2024-01-06", Type: "Income", Category: "Salary", Description: "", Amount: "1000"},
	}, records)
}

func TestReader_RussianHeaderAnyOrder(t *testing.T) {
	input := "\ufeffСумма,Категория,Дата,Тип,Описание\n" +
		"\"12,50\",Продукты,05.01.2024,Расход,Хлеб\n"
	records, errs := readAll(t, input)
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, 1, len(records))
	assert.Equal(t, "12,50", records[0].Amount)
	assert.Equal(t, "Продукты", records[0].Category)
	assert.Equal(t, "05.01.2024", records[0].Date)
	assert.Equal(t, "Расход", records[0].Type)
}

func TestReader_SkipsBlankLinesWithoutCountingThem(t *testing.T) {
	input := "date,type,category,description,amount\n" +
		"2024-01-05,expense,Food,,1\n" +
		",,,,\n" +
		"2024-01-06,expense,Food,,2\n"

	records, _ := readAll(t, input)
	assert.Equal(t, 2, len(records))
	assert.Equal(t, 2, records[1].Line)
}

func TestReader_ShortRowsYieldEmptyFields(t *testing.T) {
	records, errs := readAll(t, "Date,Type,Category,Description,Amount\n2024-01-05,expense\n")
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, "", records[0].Amount)
	assert.Equal(t, "", records[0].Category)
}

func TestNewReader_EmptyInput(t *testing.T) {
	_, err := NewReader(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	today := time.Date(2024, 3, 15, 17, 42, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), ParseDate("2024-01-05", today))
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), ParseDate("05.01.2024", today))
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), ParseDate("yesterday", today))
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), ParseDate("", today))
}

func TestClassifier(t *testing.T) {
	c := NewClassifier()
	assert.Equal(t, models.TransactionTypeIncome, c.Classify("Income"))
	assert.Equal(t, models.TransactionTypeIncome, c.Classify("Other income"))
	assert.Equal(t, models.TransactionTypeIncome, c.Classify("Доход"))
	assert.Equal(t, models.TransactionTypeExpense, c.Classify("Расход"))
	assert.Equal(t, models.TransactionTypeExpense, c.Classify(""))
	assert.Equal(t, models.TransactionTypeExpense, c.Classify("revenue"))

	extended := NewClassifier(" Revenue ", "")
	assert.Equal(t, models.TransactionTypeIncome, extended.Classify("REVENUE"))
	assert.Equal(t, []string{"income", "доход", "revenue"}, extended.Markers())
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	assert.NoError(t, w.Write(ExportRow{Date: "2024-01-06", Type: "Income", Category: "Salary", Description: "Jan, paid", Amount: "1000.00"}))
	assert.NoError(t, w.Write(ExportRow{Date: "2024-01-05", Type: "Expense", Category: "Food", Amount: "12.50"}))
	assert.NoError(t, w.Flush())

	want := "Date,Type,Category,Description,Amount\n" +
		"2024-01-06,Income,Salary,\"Jan, paid\",1000.00\n" +
		"2024-01-05,Expense,Food,,12.50\n"
	assert.Equal(t, want, buf.String())
}

func TestWriter_EmptyExportStillHasHeader(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, NewWriter(&buf).Flush())
	assert.Equal(t, "Date,Type,Category,Description,Amount\n", buf.String())
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	assert.NoError(t, w.Write(ExportRow{Date: "2024-01-05", Type: "Expense", Category: "Food", Description: "Lunch", Amount: "12.50"}))
	assert.NoError(t, w.Flush())

	records, errs := readAll(t, buf.String())
	assert.Equal(t, 0, len(errs))
	assert.Equal(t, Record{Line: 1, Date: "2024-01-05", Type: "Expense", Category: "Food", Description: "Lunch", Amount: "12.50"}, records[0])
}
