// Package sheets reads emission rows from a Google Sheet and writes the
// status and result-code columns back, keyed by header names.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"ticketera/pos"
)

// Header names the batch flow depends on.
const (
	headerFirstName   = "Nombre"
	headerLastName    = "Apellido"
	headerDocument    = "DNI"
	headerDocType     = "Tipo"
	headerPerformance = "Función"
	headerSector      = "Sector"
	headerPrice       = "Valor"
	headerQuantity    = "Cantidad"
	headerEmail       = "Mail"
	headerStatus      = "Resultado"
	headerCode        = "Código"
)

// Client wraps one spreadsheet.
type Client struct {
	srv           *gsheets.Service
	spreadsheetID string
}

// NewClient authenticates with a service account JSON file and binds to
// the spreadsheet referenced by sheetURL (full URL or bare id).
func NewClient(ctx context.Context, credentialsFile, sheetURL string) (*Client, error) {
	srv, err := gsheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build sheets service: %w", err)
	}
	id := ExtractSpreadsheetID(sheetURL)
	if id == "" {
		return nil, fmt.Errorf("no spreadsheet id in %q", sheetURL)
	}
	return &Client{srv: srv, spreadsheetID: id}, nil
}

// ExtractSpreadsheetID pulls the document id out of a pasted sheet URL. A
// string without the /d/ marker is assumed to already be an id.
func ExtractSpreadsheetID(sheetURL string) string {
	s := strings.TrimSpace(sheetURL)
	if _, after, ok := strings.Cut(s, "/d/"); ok {
		id, _, _ := strings.Cut(after, "/")
		return id
	}
	return s
}

// Worksheet is one tab, bound to batch processing. It satisfies
// batch.Sheet.
type Worksheet struct {
	client *Client
	title  string

	// 1-based column numbers for write-back, resolved from the header
	// row (appended columns when the headers are absent).
	statusCol int
	codeCol   int
}

// Worksheet opens a tab and resolves its write-back columns from the
// header row.
func (c *Client) Worksheet(ctx context.Context, title string) (*Worksheet, error) {
	values, err := c.fetch(ctx, title)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("worksheet %q is empty", title)
	}
	headers := headerRow(values[0])
	statusCol, codeCol := resolveResultColumns(headers)
	return &Worksheet{client: c, title: title, statusCol: statusCol, codeCol: codeCol}, nil
}

func (c *Client) fetch(ctx context.Context, title string) ([][]interface{}, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, title).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("could not read worksheet %q: %w", title, err)
	}
	return resp.Values, nil
}

// Name implements batch.Sheet.
func (w *Worksheet) Name() string { return w.title }

// Rows re-reads the tab and maps records by header. Sheet row numbers are
// 1-based with the header on row 1, so data starts at 2.
func (w *Worksheet) Rows(ctx context.Context) ([]pos.Row, error) {
	values, err := w.client.fetch(ctx, w.title)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("worksheet %q is empty", w.title)
	}
	headers := headerRow(values[0])
	cols := headerIndex(headers)

	rows := make([]pos.Row, 0, len(values)-1)
	for i, record := range values[1:] {
		rows = append(rows, rowFromRecord(cols, record, i+2))
	}
	return rows, nil
}

// WriteResult implements batch.Sheet. code is only written when present,
// so error statuses never clobber an existing identifier column.
func (w *Worksheet) WriteResult(ctx context.Context, rowIndex int, status, code string) error {
	if err := w.updateCell(ctx, rowIndex, w.statusCol, status); err != nil {
		return err
	}
	if code != "" {
		return w.updateCell(ctx, rowIndex, w.codeCol, code)
	}
	return nil
}

func (w *Worksheet) updateCell(ctx context.Context, row, col int, value string) error {
	rangeA1 := fmt.Sprintf("%s!%s%d", w.title, ColumnLetter(col), row)
	_, err := w.client.srv.Spreadsheets.Values.
		Update(w.client.spreadsheetID, rangeA1, &gsheets.ValueRange{Values: [][]interface{}{{value}}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("could not update %s: %w", rangeA1, err)
	}
	return nil
}

// ColumnLetter converts a 1-based column number to its A1 letter(s).
func ColumnLetter(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// resolveResultColumns finds the 1-based status and code columns,
// falling back to columns appended after the last header.
func resolveResultColumns(headers []string) (statusCol, codeCol int) {
	statusCol = len(headers) + 1
	codeCol = len(headers) + 2
	for i, h := range headers {
		switch h {
		case headerStatus:
			statusCol = i + 1
		case headerCode:
			codeCol = i + 1
		}
	}
	return statusCol, codeCol
}

func headerRow(record []interface{}) []string {
	headers := make([]string, len(record))
	for i, v := range record {
		headers[i] = strings.TrimSpace(cellString(v))
	}
	return headers
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[h] = i
	}
	return idx
}

// rowFromRecord maps one record onto the walker's row shape. Missing
// trailing cells read as empty.
func rowFromRecord(cols map[string]int, record []interface{}, index int) pos.Row {
	field := func(header string) string {
		i, ok := cols[header]
		if !ok || i >= len(record) {
			return ""
		}
		return cellString(record[i])
	}
	return pos.Row{
		Index:        index,
		FirstName:    field(headerFirstName),
		LastName:     field(headerLastName),
		Document:     field(headerDocument),
		DocumentType: field(headerDocType),
		Performance:  field(headerPerformance),
		Sector:       field(headerSector),
		PriceTier:    field(headerPrice),
		Quantity:     field(headerQuantity),
		Email:        field(headerEmail),
		Status:       field(headerStatus),
		ResultCode:   field(headerCode),
	}
}

// cellString renders a sheet cell as text. The API can hand back numbers
// for unformatted cells; whole floats drop the decimal point so a DNI
// cell never becomes "30123456.000000".
func cellString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case bool:
		return fmt.Sprintf("%v", val)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
