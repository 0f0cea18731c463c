package workbook

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/membersverify/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type staticImages struct {
	data []byte
	err  error
}

func (s staticImages) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	return s.data, ".png", s.err
}

func export(t *testing.T, opts Options, members ...models.Member) *excelize.File {
	t.Helper()
	w, err := NewWriter(opts)
	require.NoError(t, err)
	defer w.Close()
	for _, m := range members {
		require.NoError(t, w.Add(context.Background(), m))
	}
	assert.Equal(t, len(members), w.Rows())

	var buf bytes.Buffer
	_, err = w.WriteTo(&buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestExport_HeaderAndRows(t *testing.T) {
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	f := export(t, Options{},
		models.Member{ID: primitive.NewObjectID(), AssocCode: "OAK", Association: "Oak Hills", FirstName: "Jane", TermEnd: &end, PrimaryEmail: "jane@example.com", Identification: "D123"},
		models.Member{ID: primitive.NewObjectID(), AssocCode: "PINE", FirstName: "John"},
	)

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, Headers(), rows[0])
	assert.Len(t, rows[0], 24)
	assert.Equal(t, "OAK", rows[1][0])
	assert.Equal(t, "Oak Hills", rows[1][1])
	assert.Equal(t, "jane@example.com", rows[1][19])
	assert.Equal(t, "D123", rows[1][21])
	assert.Equal(t, "PINE", rows[2][0])

	raw, err := f.GetCellValue(SheetName, "I2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "45838", raw)
}

func TestExport_EmbedsImages(t *testing.T) {
	f := export(t, Options{Images: staticImages{data: tinyPNG(t)}},
		models.Member{ID: primitive.NewObjectID(), AssocCode: "OAK", IDImage: "https://img/1.png"},
		models.Member{ID: primitive.NewObjectID(), AssocCode: "PINE"},
	)

	header, err := f.GetCellValue(SheetName, "Y1")
	require.NoError(t, err)
	assert.Equal(t, "idImagePreview", header)

	pics, err := f.GetPictures(SheetName, "Y2")
	require.NoError(t, err)
	assert.Len(t, pics, 1)

	pics, err = f.GetPictures(SheetName, "Y3")
	require.NoError(t, err)
	assert.Empty(t, pics)
}

func TestExport_ImageFailureKeepsRow(t *testing.T) {
	w, err := NewWriter(Options{Images: staticImages{err: errors.New("404")}})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Add(context.Background(), models.Member{AssocCode: "OAK", IDImage: "https://img/x.png"}))
	assert.Equal(t, 1, w.Rows())
	assert.Equal(t, 0, w.Embedded())
}

func TestReadGrid_RoundTrip(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Assoc Code", "First Name", "Term End"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"OAK", "Jane", 45292}))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	f.Close()

	grid, err := ReadGrid(&buf)
	require.NoError(t, err)
	require.Len(t, grid, 2)
	assert.Equal(t, []string{"Assoc Code", "First Name", "Term End"}, grid[0])
	assert.Equal(t, []string{"OAK", "Jane", "45292"}, grid[1])
}

func TestReadGrid_NotAWorkbook(t *testing.T) {
	_, err := ReadGrid(bytes.NewReader([]byte("plain text")))
	assert.Error(t, err)
}

func TestHTTPImages(t *testing.T) {
	pngData := tinyPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write(pngData)
		case "/doc.pdf":
			_, _ = w.Write([]byte("%PDF-1.4\n"))
		case "/big":
			_, _ = w.Write(bytes.Repeat([]byte{0x89}, 64))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	h := &HTTPImages{Client: srv.Client(), MaxBytes: 32}
	_, _, err := h.Fetch(context.Background(), srv.URL+"/big")
	assert.ErrorContains(t, err, "larger than")

	h.MaxBytes = MaxImageBytes
	data, ext, err := h.Fetch(context.Background(), srv.URL+"/ok.png")
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)
	assert.Equal(t, pngData, data)

	_, _, err = h.Fetch(context.Background(), srv.URL+"/doc.pdf")
	assert.Error(t, err)

	_, _, err = h.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "404")
}

func TestRecord(t *testing.T) {
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	rec := Record(models.Member{AssocCode: "OAK", FirstName: "Ada", TermEnd: &end})

	require.Len(t, rec, len(Headers()))
	assert.Equal(t, "OAK", rec[0])
	assert.Equal(t, "", rec[2], "missing dates stay empty")
	assert.Equal(t, "2025-06-30", rec[8])
	assert.Equal(t, "Ada", rec[9])
}
