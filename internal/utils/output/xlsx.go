package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/law-makers/ammocrawl/pkg/models"
)

const sheetName = "Products"

// SaveXLSX writes products to a single-sheet workbook. Price and CPR are
// numeric cells formatted as currency.
func SaveXLSX(products []models.Product, filepath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", bold); err != nil {
		return err
	}

	for i, p := range products {
		price, _ := p.OriginalPrice.Decimal().Float64()
		cpr, _ := p.CPR.Decimal().Float64()
		var rounds interface{}
		if p.RoundsPerPackage > 0 {
			rounds = p.RoundsPerPackage
		}
		row := []interface{}{
			p.Caliber, p.Website, p.Manufacturer, p.Title,
			price, cpr, rounds,
			p.SteelCasing, p.Remanufactured,
			p.Link, p.Image,
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cellRef, &row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	if len(products) > 0 {
		money, err := f.NewStyle(&excelize.Style{NumFmt: 7})
		if err != nil {
			return err
		}
		last := len(products) + 1
		if err := f.SetCellStyle(sheetName, "E2", fmt.Sprintf("F%d", last), money); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	if err := f.AutoFilter(sheetName, fmt.Sprintf("A1:%s%d", lastCol, len(products)+1), nil); err != nil {
		return err
	}
	return f.SaveAs(filepath)
}
