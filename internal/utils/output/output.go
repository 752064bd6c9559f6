// Package output writes the products of a run to disk.
package output

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/law-makers/ammocrawl/pkg/models"
)

// Format is an output file format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatXLSX     Format = "xlsx"
	FormatSQLite   Format = "db"
)

// Columns is the column order shared by the tabular writers.
var Columns = []string{
	"caliber", "website", "manufacturer", "title", "price", "cpr", "rounds",
	"steel_casing", "remanufactured", "link", "image",
}

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "xlsx":
		return FormatXLSX, nil
	case "db", "sqlite", "sqlite3":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("unsupported output format for %q", path)
}

// Save writes products to path in the format implied by its extension.
func Save(products []models.Product, path string) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}
	switch f {
	case FormatJSON:
		return SaveJSON(products, path)
	case FormatCSV:
		return SaveCSV(products, path)
	case FormatMarkdown:
		return SaveMarkdown(products, path)
	case FormatXLSX:
		return SaveXLSX(products, path)
	default:
		return SaveSQLite(products, path)
	}
}

func record(p models.Product) []string {
	rounds := ""
	if p.RoundsPerPackage > 0 {
		rounds = strconv.Itoa(p.RoundsPerPackage)
	}
	return []string{
		p.Caliber, p.Website, p.Manufacturer, p.Title,
		p.OriginalPrice.String(), p.CPR.String(), rounds,
		strconv.FormatBool(p.SteelCasing), strconv.FormatBool(p.Remanufactured),
		p.Link, p.Image,
	}
}
