package catalogfile

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/rl1809/storefront/internal/core/domain"
)

const sampleCSV = `name,description,price,tags,image_filename
The cathedral and the bazaar,A book about open source,10.00,Open source|Programming,cathedral.jpg
Pride and Prejudice,A classic,2.00,Fiction,pride.jpg
`

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "The cathedral and the bazaar", rows[0].Name)
	assert.True(t, rows[0].Price.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, []string{"Open source", "Programming"}, rows[0].Tags)
	assert.Equal(t, []string{"Fiction"}, rows[1].Tags)
	assert.Equal(t, "cathedral.jpg", rows[0].ImageFilename)
	assert.Equal(t, "pride.jpg", rows[1].ImageFilename)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("name,price\nx,1\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadCSV(strings.NewReader("name,description,price,tags\nx,y,cheap,z\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestXLSXRoundTrip(t *testing.T) {
	products := []domain.Product{{
		ID:          "p1",
		Name:        "Widget",
		Slug:        "widget",
		Description: "blue",
		Price:       decimal.RequireFromString("3.5"),
		State:       domain.CatalogStateActive,
		InStock:     true,
		Tags:        []domain.ProductTag{{Name: "Tools"}, {Name: "Blue"}},
		UpdatedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, products))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)
	rows := file.Sheets[0].Rows
	require.Len(t, rows, 2)
	assert.Equal(t, "Name", rows[0].Cells[1].String())
	assert.Equal(t, "3.50", rows[1].Cells[4].String())
	assert.Equal(t, "Tools|Blue", rows[1].Cells[7].String())
}

func TestReadXLSX(t *testing.T) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Import")
	require.NoError(t, err)
	for _, record := range [][]string{
		{"name", "description", "price", "tags"},
		{"Lamp", "desk lamp", "19.99", "Home|Light"},
		{"", "", "", ""},
	} {
		row := sheet.AddRow()
		for _, v := range record {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, file.Write(&buf))

	rows, err := ReadXLSX(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Lamp", rows[0].Name)
	assert.Equal(t, []string{"Home", "Light"}, rows[0].Tags)
	assert.Empty(t, rows[0].ImageFilename)
}
