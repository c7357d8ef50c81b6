package form

import (
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/MSMEPredictor/models"
)

func validValues() url.Values {
	v := url.Values{}
	v.Set("monthly_sales", "250000")
	v.Set("stock_value", "80000")
	v.Set("num_customers", "420")
	v.Set("monthly_expenses", "190000")
	v.Set("monthly_profit", "-1500.5")
	v.Set("num_employees", "12")
	v.Set("avg_transaction_value", " 595.5 ")
	v.Set("return_rate", "0.03")
	v.Set("marketing_spend", "1.5e4")
	return v
}

func TestParseManual_Valid(t *testing.T) {
	req, f := ParseManual(validValues())
	require.True(t, f.Valid())

	assert.Equal(t, models.PredictionRequest{
		MonthlySales:        250000,
		StockValue:          80000,
		NumCustomers:        420,
		MonthlyExpenses:     190000,
		MonthlyProfit:       -1500.5,
		NumEmployees:        12,
		AvgTransactionValue: 595.5,
		ReturnRate:          0.03,
		MarketingSpend:      15000,
	}, req)
	assert.Equal(t, "595.5", f.Values["avg_transaction_value"])
}

func TestParseManual_InvalidFields(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
	}{
		{"missing", "monthly_sales", ""},
		{"blank", "stock_value", "   "},
		{"letters", "num_customers", "many"},
		{"trailing garbage", "monthly_expenses", "12abc"},
		{"nan", "monthly_profit", "NaN"},
		{"infinity", "num_employees", "Inf"},
		{"overflow", "return_rate", "1e400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := validValues()
			values.Set(tt.field, tt.value)

			_, f := ParseManual(values)
			assert.False(t, f.Valid())
			assert.Equal(t, FieldErrors{tt.field: MsgInvalidNumber}, f.Errors)
		})
	}
}

func TestParseManual_EmptyFormFlagsEveryField(t *testing.T) {
	_, f := ParseManual(url.Values{})
	assert.Len(t, f.Errors, len(models.PredictionFields))
	for _, name := range models.PredictionFields {
		assert.Equal(t, MsgInvalidNumber, f.Errors[name])
	}
}

func TestManualForm_Fields(t *testing.T) {
	values := validValues()
	values.Del("return_rate")
	_, f := ParseManual(values)

	fields := f.Fields()
	require.Len(t, fields, 9)
	assert.Equal(t, "monthly_sales", fields[0].Name)
	assert.Equal(t, "Monthly Sales", fields[0].Label)
	assert.Equal(t, "Enter monthly sales", fields[0].Placeholder)
	assert.Equal(t, "250000", fields[0].Value)
	assert.Equal(t, "Avg Transaction Value", fields[6].Label)
	assert.Equal(t, "return_rate", fields[7].Name)
	assert.Equal(t, MsgInvalidNumber, fields[7].Error)
	assert.Empty(t, fields[8].Error)
}

func fileHeader(name, contentType string) *multipart.FileHeader {
	h := make(textproto.MIMEHeader)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &multipart.FileHeader{Filename: name, Header: h}
}

func TestIsCSV(t *testing.T) {
	assert.True(t, IsCSV("data.csv", ""))
	assert.True(t, IsCSV("data.csv", "application/vnd.ms-excel"))
	assert.True(t, IsCSV("export", "text/csv"))
	assert.True(t, IsCSV("export.txt", "text/csv; charset=utf-8"))
	assert.False(t, IsCSV("data.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	assert.False(t, IsCSV("data.csv.exe", "application/octet-stream"))
	assert.False(t, IsCSV("DATA.CSV", "application/octet-stream"))
}

func TestFileSelection(t *testing.T) {
	var s FileSelection

	assert.False(t, s.Select(fileHeader("report.pdf", "application/pdf")))
	assert.Nil(t, s.File)
	assert.Equal(t, MsgNotCSV, s.Error)
	assert.False(t, s.Ready())
	assert.Equal(t, MsgNotCSV, s.Error)

	assert.True(t, s.Select(fileHeader("shops.csv", "text/csv")))
	assert.NotNil(t, s.File)
	assert.Empty(t, s.Error)
	assert.True(t, s.Ready())

	// a rejected file drops the previous selection
	assert.False(t, s.Select(fileHeader("notes.txt", "text/plain")))
	assert.Nil(t, s.File)

	s.Reset()
	assert.False(t, s.Select(nil))
	assert.False(t, s.Ready())
	assert.Equal(t, MsgNoFile, s.Error)
}

func TestCountRows(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"header only", "monthly_sales,stock_value\n", 0},
		{"two rows", "monthly_sales,stock_value\n1,2\n3,4\n", 2},
		{"no trailing newline", "a,b\n1,2", 1},
		{"blank lines skipped", "a,b\n\n1,2\n\n3,4\n", 2},
		{"ragged rows", "a,b,c\n1,2\n3,4,5,6\n", 2},
		{"quoted newline", "a,b\n\"multi\nline\",2\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := CountRows(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestCountRows_Malformed(t *testing.T) {
	_, err := CountRows(strings.NewReader("a,b\n\"unterminated,2\n"))
	assert.Error(t, err)
}
