package output

import (
	"fmt"
	"os"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"

	"github.com/law-makers/ammocrawl/pkg/models"
)

// Markdown renders products as a GitHub-flavored Markdown table.
func Markdown(products []models.Product) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	// Pipes inside a title would split the cell.
	converter.AddRules(md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			href, ok := selec.Attr("href")
			if !ok {
				return nil
			}
			text := strings.ReplaceAll(strings.TrimSpace(selec.Text()), "|", "/")
			str := fmt.Sprintf("[%s](%s)", text, href)
			return &str
		},
	})

	table, err := RenderTable(products)
	if err != nil {
		return "", err
	}
	page := fmt.Sprintf("<h1>Ammo prices</h1><p>%d products</p>%s", len(products), table)
	return converter.ConvertString(page)
}

// SaveMarkdown writes the Markdown table to filepath.
func SaveMarkdown(products []models.Product, filepath string) error {
	mdStr, err := Markdown(products)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, []byte(mdStr+"\n"), 0644)
}
