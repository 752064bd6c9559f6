package output

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/law-makers/ammocrawl/pkg/models"
)

func sampleProducts() []models.Product {
	return []models.Product{
		{
			Title:            "Federal 9mm Luger 115gr FMJ - 50 Rounds",
			Website:          "Kir Ammo",
			Link:             "https://shop.test/p/1",
			Image:            "https://shop.test/img/1.jpg",
			Manufacturer:     "Federal",
			Caliber:          "9mm Luger",
			OriginalPrice:    models.MustMoney("14.99"),
			CPR:              models.MustMoney("0.30"),
			RoundsPerPackage: 50,
		},
		{
			Title:         "Tula 9mm 115gr Steel | 1000rd",
			Website:       "Lucky Gunner",
			Link:          "https://shop.test/p/2",
			Manufacturer:  "Tula",
			Caliber:       "9mm Luger",
			SteelCasing:   true,
			OriginalPrice: models.MustMoney("229.00"),
			CPR:           models.MustMoney("0.23"),
		},
	}
}

func TestFormatFor(t *testing.T) {
	tests := map[string]Format{
		"out.json":       FormatJSON,
		"out.CSV":        FormatCSV,
		"deals.md":       FormatMarkdown,
		"deals.markdown": FormatMarkdown,
		"deals.xlsx":     FormatXLSX,
		"prices.db":      FormatSQLite,
		"prices.sqlite":  FormatSQLite,
	}
	for path, want := range tests {
		got, err := FormatFor(path)
		if err != nil || got != want {
			t.Errorf("FormatFor(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
	_, err := FormatFor("out.txt")
	assert.Error(t, err)
	assert.Error(t, Save(sampleProducts(), filepath.Join(t.TempDir(), "out.txt")))
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, Save(sampleProducts(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"cpr": "0.30"`)
	assert.Contains(t, string(data), `"original_price": "229.00"`)

	var back []models.Product
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 2)
	assert.True(t, back[0].CPR.Equal(models.MustMoney("0.30")))
	assert.Equal(t, 50, back[0].RoundsPerPackage)
}

func TestSaveJSONEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, SaveJSON(nil, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestSaveCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, Save(sampleProducts(), path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "14.99", rows[1][4])
	assert.Equal(t, "0.30", rows[1][5])
	assert.Equal(t, "50", rows[1][6])
	assert.Equal(t, "", rows[2][6], "direct per-round rows have no pack size")
	assert.Equal(t, "true", rows[2][7])
}

func TestMarkdown(t *testing.T) {
	out, err := Markdown(sampleProducts())
	require.NoError(t, err)

	assert.Contains(t, out, "# Ammo prices")
	assert.Contains(t, out, "2 products")
	assert.Contains(t, out, "[Federal 9mm Luger 115gr FMJ - 50 Rounds](https://shop.test/p/1)")
	assert.Contains(t, out, "Tula 9mm 115gr Steel / 1000rd")
	assert.Contains(t, out, "$0.30")
	assert.Contains(t, out, "|")

	path := filepath.Join(t.TempDir(), "deals.md")
	require.NoError(t, Save(sampleProducts(), path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out+"\n", string(data))
}

func TestRenderTable(t *testing.T) {
	markup, err := RenderTable(sampleProducts()[:1])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(markup, "<table><thead><tr><th>Caliber</th>"))
	assert.Contains(t, markup, `<a href="https://shop.test/p/1">`)
	assert.Contains(t, markup, "<td>$14.99</td>")
}

func TestSaveXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deals.xlsx")
	require.NoError(t, Save(sampleProducts(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "caliber", rows[0][0])
	assert.Equal(t, "Federal 9mm Luger 115gr FMJ - 50 Rounds", rows[1][3])

	v, err := f.GetCellValue(sheetName, "F2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "0.3", v)
}

func TestSaveSQLiteUpserts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.db")
	products := sampleProducts()
	require.NoError(t, Save(products, path))

	products[0].OriginalPrice = models.MustMoney("13.99")
	products[0].CPR = models.MustMoney("0.28")
	require.NoError(t, Save(products, path))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&n))
	assert.Equal(t, 2, n)

	var price, cpr string
	require.NoError(t, db.QueryRow(`SELECT original_price, cpr FROM products WHERE link = ?`, "https://shop.test/p/1").Scan(&price, &cpr))
	assert.Equal(t, "13.99", price)
	assert.Equal(t, "0.28", cpr)
}
