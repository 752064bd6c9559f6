package output

import (
	"encoding/csv"
	"os"

	"github.com/law-makers/ammocrawl/pkg/models"
)

// SaveCSV writes products to a CSV file with a header row.
func SaveCSV(products []models.Product, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, p := range products {
		if err := writer.Write(record(p)); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}
