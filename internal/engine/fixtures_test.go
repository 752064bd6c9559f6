package engine

import (
	"fmt"
	"strings"

	"github.com/law-makers/ammocrawl/pkg/models"
)

const shopURL = "https://shop.test/9mm"

// brands resolves a title to the first alias it contains.
type brands map[string]string

func (b brands) Resolve(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	for alias, name := range b {
		if strings.Contains(lower, alias) {
			return name, true
		}
	}
	return "", false
}

var testBrands = brands{"federal": "Federal", "blazer": "Blazer", "pmc": "PMC", "tula": "Tula"}

func testDescriptor() models.SiteDescriptor {
	return models.SiteDescriptor{
		ID:           "testshop",
		Name:         "Test Shop",
		Container:    "ul.products",
		Row:          "li.product",
		Title:        models.Field{Selector: "h2.title"},
		Link:         models.Field{Selector: "a.link"},
		Image:        models.Field{Selector: "img"},
		Manufacturer: models.ManufacturerSource{FromTitle: true},
		Price: models.PriceFields{
			Sale:    models.Field{Selector: ".price .sale"},
			Regular: models.Field{Selector: ".price .regular"},
		},
		OutOfStock:       &models.OutOfStock{Selector: ".stock", Text: "out of stock"},
		PlaceholderImage: "placeholder",
		Pagination:       models.Pagination{Kind: models.PaginationNone},
	}
}

func productRow(id int, title, sale, regular string) string {
	return fmt.Sprintf(`<li class="product">
  <a class="link" href="/p/%d"><img src="/img/%d.jpg"></a>
  <h2 class="title">%s</h2>
  <div class="price"><span class="sale">%s</span><span class="regular">%s</span></div>
</li>`, id, id, title, sale, regular)
}

func listing(rows ...string) string {
	return `<html><body><ul class="products">` + strings.Join(rows, "\n") + `</ul></body></html>`
}

func withNext(page, next string) string {
	return strings.Replace(page, "</body>", next+"</body>", 1)
}

// goodRows returns n valid rows numbered from first.
func goodRows(first, n int) []string {
	var rows []string
	for i := first; i < first+n; i++ {
		rows = append(rows, productRow(i, fmt.Sprintf("Blazer Brass 9mm 115gr FMJ %d - 50 Rounds", i), "", "$19.99"))
	}
	return rows
}
