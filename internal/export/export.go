// Package export writes lead lists as CSV or XLSX.
package export

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a user-supplied format name to a Format. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("export: unsupported format %q", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns the download file name for f.
func (f Format) Filename() string {
	return "leads." + string(f)
}

// Columns is the header row of every export.
var Columns = []string{"Name", "Phone", "Message", "WhatsApp Link", "Status"}

const sheetName = "Leads"

func leadRow(l model.Lead) []string {
	return []string{
		model.Deref(l.Name),
		l.Phone,
		model.Deref(l.Message),
		model.Deref(l.WALink),
		string(l.Status),
	}
}

// Write encodes leads to w in format f.
func Write(w io.Writer, f Format, leads []model.Lead) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, leads)
	case FormatXLSX:
		return WriteXLSX(w, leads)
	default:
		return eris.Errorf("export: unsupported format %q", f)
	}
}

// WriteCSV writes leads as CSV with a header row.
func WriteCSV(w io.Writer, leads []model.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, l := range leads {
		if err := cw.Write(leadRow(l)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// WriteXLSX writes leads as a single-sheet workbook.
func WriteXLSX(w io.Writer, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	addRow(sheet, Columns)
	for _, l := range leads {
		addRow(sheet, leadRow(l))
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, v := range cells {
		row.AddCell().SetString(v)
	}
}

// Lister is the slice of the lead store an export reads from.
type Lister interface {
	ListLeads(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error)
}

// pageSize is the ListLeads page used while collecting an export.
const pageSize = 500

// Collect pages through every lead matching filter, newest first. Limit and
// Offset on filter are ignored.
func Collect(ctx context.Context, st Lister, filter store.LeadFilter) ([]model.Lead, error) {
	var all []model.Lead
	filter.Offset = 0
	filter.Limit = pageSize
	for {
		page, err := st.ListLeads(ctx, filter)
		if err != nil {
			return nil, eris.Wrap(err, "export: list leads")
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		filter.Offset += pageSize
	}
}
