// Package catalogfile reads product import files and writes catalog exports.
package catalogfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"

	"github.com/rl1809/storefront/internal/core/domain"
)

const tagSeparator = "|"

var requiredColumns = []string{"name", "description", "price", "tags"}

var ErrMissingColumn = errors.New("missing column")

// header maps column names to their positions.
type header map[string]int

func newHeader(cells []string) (header, error) {
	h := header{}
	for i, c := range cells {
		h[strings.ToLower(strings.TrimSpace(c))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return h, nil
}

func (h header) get(record []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (h header) row(record []string, line int) (domain.ProductImport, error) {
	price, err := decimal.NewFromString(h.get(record, "price"))
	if err != nil {
		return domain.ProductImport{}, fmt.Errorf("line %d: price: %w", line, err)
	}
	var tags []string
	for _, t := range strings.Split(h.get(record, "tags"), tagSeparator) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return domain.ProductImport{
		Name:          h.get(record, "name"),
		Description:   h.get(record, "description"),
		Price:         price,
		Tags:          tags,
		ImageFilename: h.get(record, "image_filename"),
	}, nil
}

// ReadCSV parses a CSV import with a header row. The image_filename column
// is optional.
func ReadCSV(r io.Reader) ([]domain.ProductImport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	first, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h, err := newHeader(first)
	if err != nil {
		return nil, err
	}

	var rows []domain.ProductImport
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row, err := h.row(record, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadXLSX parses the first sheet of a workbook laid out like the CSV
// import.
func ReadXLSX(r io.ReaderAt, size int64) ([]domain.ProductImport, error) {
	file, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if len(file.Sheets) == 0 || len(file.Sheets[0].Rows) == 0 {
		return nil, fmt.Errorf("workbook is empty")
	}
	sheet := file.Sheets[0]

	h, err := newHeader(cellStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}
	var rows []domain.ProductImport
	for i, xr := range sheet.Rows[1:] {
		record := cellStrings(xr)
		if isBlank(record) {
			continue
		}
		row, err := h.row(record, i+2)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cellStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	out := make([]string, 0, len(row.Cells))
	for _, c := range row.Cells {
		out = append(out, c.String())
	}
	return out
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

var exportHeader = []string{"ID", "Name", "Slug", "Description", "Price", "State", "InStock", "Tags", "UpdatedAt"}

// WriteXLSX writes the products as a single-sheet workbook.
func WriteXLSX(w io.Writer, products []domain.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeader {
		headerRow.AddCell().SetString(h)
	}
	for _, p := range products {
		tags := make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			tags = append(tags, t.Name)
		}

		row := sheet.AddRow()
		row.AddCell().SetString(p.ID)
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Slug)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetString(string(p.State))
		row.AddCell().SetBool(p.InStock)
		row.AddCell().SetString(strings.Join(tags, tagSeparator))
		row.AddCell().SetString(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return file.Write(w)
}
