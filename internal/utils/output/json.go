package output

import (
	"encoding/json"
	"os"

	"github.com/law-makers/ammocrawl/pkg/models"
)

// SaveJSON writes products as an indented JSON array. Money values are
// two-decimal strings.
func SaveJSON(products []models.Product, filepath string) error {
	if products == nil {
		products = []models.Product{}
	}
	content, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, append(content, '\n'), 0644)
}
