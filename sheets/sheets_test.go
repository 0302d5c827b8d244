package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSpreadsheetID(t *testing.T) {
	assert.Equal(t, "1AbC_dEf",
		ExtractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC_dEf/edit#gid=0"))
	assert.Equal(t, "1AbC_dEf", ExtractSpreadsheetID("1AbC_dEf"))
	assert.Equal(t, "xyz", ExtractSpreadsheetID("  https://docs.google.com/spreadsheets/d/xyz "))
}

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", ColumnLetter(1))
	assert.Equal(t, "K", ColumnLetter(11))
	assert.Equal(t, "Z", ColumnLetter(26))
	assert.Equal(t, "AA", ColumnLetter(27))
	assert.Equal(t, "AB", ColumnLetter(28))
}

func TestResolveResultColumns(t *testing.T) {
	headers := []string{"Nombre", "Apellido", "DNI", "Tipo", "Función", "Sector", "Valor", "Cantidad", "Mail", "Resultado", "Código"}
	status, code := resolveResultColumns(headers)
	assert.Equal(t, 10, status)
	assert.Equal(t, 11, code)
}

func TestResolveResultColumnsFallback(t *testing.T) {
	headers := []string{"Nombre", "Apellido", "DNI"}
	status, code := resolveResultColumns(headers)
	assert.Equal(t, 4, status, "appended after the last header")
	assert.Equal(t, 5, code, "appended after the status column")
}

func TestRowFromRecord(t *testing.T) {
	headers := headerRow([]interface{}{"Nombre", "Apellido", "DNI", "Valor", "Código"})
	cols := headerIndex(headers)

	row := rowFromRecord(cols, []interface{}{"Ana", "García", float64(30123456), "$1.500", "#77"}, 2)
	assert.Equal(t, 2, row.Index)
	assert.Equal(t, "Ana", row.FirstName)
	assert.Equal(t, "30123456", row.Document, "numeric cells render without decimals")
	assert.Equal(t, "$1.500", row.PriceTier)
	assert.Equal(t, "#77", row.ResultCode)

	short := rowFromRecord(cols, []interface{}{"Solo"}, 3)
	assert.Equal(t, "Solo", short.FirstName)
	assert.Equal(t, "", short.Document, "missing trailing cells read empty")
}

func TestCellString(t *testing.T) {
	assert.Equal(t, "texto", cellString("texto"))
	assert.Equal(t, "42", cellString(float64(42)))
	assert.Equal(t, "1.5", cellString(1.5))
	assert.Equal(t, "", cellString(nil))
	assert.Equal(t, "true", cellString(true))
}
