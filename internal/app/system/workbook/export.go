// internal/app/system/workbook/export.go
//
// Package workbook encodes the roster as an .xlsx download and decodes
// uploaded .xlsx rosters into a header-first grid.
package workbook

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dalemusser/membersverify/internal/domain/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// SheetName is the worksheet the export writes.
const SheetName = "All Members"

// ContentType is the MIME type of an .xlsx file.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type column struct {
	header string
	width  float64
	value  func(m models.Member) any
}

func dateCell(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

var columns = []column{
	{"assocCode", 15, func(m models.Member) any { return m.AssocCode }},
	{"association", 50, func(m models.Member) any { return m.Association }},
	{"associationLiveDate", 25, func(m models.Member) any { return dateCell(m.AssociationLiveDate) }},
	{"associationManager", 25, func(m models.Member) any { return m.AssociationManager }},
	{"boardMember", 25, func(m models.Member) any { return m.BoardMember }},
	{"memberRole", 25, func(m models.Member) any { return m.MemberRole }},
	{"memberType", 25, func(m models.Member) any { return m.MemberType }},
	{"termStart", 25, func(m models.Member) any { return dateCell(m.TermStart) }},
	{"termEnd", 25, func(m models.Member) any { return dateCell(m.TermEnd) }},
	{"firstName", 20, func(m models.Member) any { return m.FirstName }},
	{"lastName", 20, func(m models.Member) any { return m.LastName }},
	{"homeAddress", 30, func(m models.Member) any { return m.HomeAddress }},
	{"homeCity", 20, func(m models.Member) any { return m.HomeCity }},
	{"homeState", 10, func(m models.Member) any { return m.HomeState }},
	{"homeZip", 10, func(m models.Member) any { return m.HomeZip }},
	{"mailingAddress", 30, func(m models.Member) any { return m.MailingAddress }},
	{"mailingCity", 20, func(m models.Member) any { return m.MailingCity }},
	{"mailingState", 10, func(m models.Member) any { return m.MailingState }},
	{"mailingZip", 10, func(m models.Member) any { return m.MailingZip }},
	{"primaryEmail", 30, func(m models.Member) any { return m.PrimaryEmail }},
	{"primaryPhone", 15, func(m models.Member) any { return m.PrimaryPhone }},
	{"identification", 30, func(m models.Member) any { return m.Identification }},
	{"dob", 25, func(m models.Member) any { return m.DOB }},
	{"idImage", 50, func(m models.Member) any { return m.IDImage }},
}

// Headers returns the export column titles in order.
func Headers() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.header
	}
	return out
}

// Record renders m as text cells in Headers order, for CSV export. Dates
// are written as YYYY-MM-DD.
func Record(m models.Member) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		switch v := c.value(m).(type) {
		case nil:
		case time.Time:
			out[i] = v.Format("2006-01-02")
		case string:
			out[i] = v
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

// ImageSource loads the bytes of an ID image for embedding.
type ImageSource interface {
	Fetch(ctx context.Context, url string) (data []byte, ext string, err error)
}

// Options controls an export.
type Options struct {
	// Images, when set, embeds each row's ID image in an extra column.
	Images ImageSource
	Logger *zap.Logger
}

// Writer builds an export one member at a time.
type Writer struct {
	f         *excelize.File
	row       int
	images    ImageSource
	log       *zap.Logger
	dateStyle int
	imageCol  string
	embedded  int
}

// NewWriter creates the workbook and writes the header row.
func NewWriter(opts Options) (*Writer, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	w := &Writer{f: f, row: 1, images: opts.Images, log: log}

	style, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("date style: %w", err)
	}
	w.dateStyle = style

	header := make([]any, 0, len(columns)+1)
	for i, c := range columns {
		header = append(header, c.header)
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, name, name, c.width); err != nil {
			f.Close()
			return nil, fmt.Errorf("column width: %w", err)
		}
	}
	if w.images != nil {
		w.imageCol, _ = excelize.ColumnNumberToName(len(columns) + 1)
		header = append(header, "idImagePreview")
		_ = f.SetColWidth(SheetName, w.imageCol, w.imageCol, 30)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("header row: %w", err)
	}
	return w, nil
}

// Add appends m as the next row. Image failures are logged and the row is
// kept without a picture.
func (w *Writer) Add(ctx context.Context, m models.Member) error {
	w.row++
	cell, _ := excelize.CoordinatesToCellName(1, w.row)
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = c.value(m)
	}
	if err := w.f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", w.row, err)
	}
	for i, v := range values {
		if t, ok := v.(time.Time); ok && !t.IsZero() {
			name, _ := excelize.CoordinatesToCellName(i+1, w.row)
			_ = w.f.SetCellStyle(SheetName, name, name, w.dateStyle)
		}
	}

	if w.images != nil && m.IDImage != "" {
		w.embed(ctx, m)
	}
	return nil
}

func (w *Writer) embed(ctx context.Context, m models.Member) {
	data, ext, err := w.images.Fetch(ctx, m.IDImage)
	if err != nil {
		w.log.Warn("skipping id image in export",
			zap.String("member_id", m.ID.Hex()), zap.Error(err))
		return
	}
	cell := fmt.Sprintf("%s%d", w.imageCol, w.row)
	err = w.f.AddPictureFromBytes(SheetName, cell, &excelize.Picture{
		Extension: ext,
		File:      data,
		Format:    &excelize.GraphicOptions{AutoFit: true, LockAspectRatio: true},
	})
	if err != nil {
		w.log.Warn("could not embed id image",
			zap.String("member_id", m.ID.Hex()), zap.Error(err))
		return
	}
	_ = w.f.SetRowHeight(SheetName, w.row, 120)
	w.embedded++
}

// Rows is the number of member rows written.
func (w *Writer) Rows() int { return w.row - 1 }

// Embedded is the number of images placed in the sheet.
func (w *Writer) Embedded() int { return w.embedded }

// WriteTo serializes the workbook.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	return w.f.WriteTo(out)
}

// Close releases the workbook's temporary resources.
func (w *Writer) Close() error { return w.f.Close() }
