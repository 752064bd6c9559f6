package output

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/law-makers/ammocrawl/pkg/models"
)

var tableHeader = []string{"Caliber", "Website", "Manufacturer", "Title", "Price", "CPR", "Rounds", "Steel", "Reman"}

// ProductTable builds an HTML table of products in input order.
func ProductTable(products []models.Product) *html.Node {
	table := element(atom.Table)

	head := element(atom.Thead)
	tr := element(atom.Tr)
	for _, h := range tableHeader {
		tr.AppendChild(cell(atom.Th, h))
	}
	head.AppendChild(tr)
	table.AppendChild(head)

	body := element(atom.Tbody)
	for _, p := range products {
		tr := element(atom.Tr)
		tr.AppendChild(cell(atom.Td, p.Caliber))
		tr.AppendChild(cell(atom.Td, p.Website))
		tr.AppendChild(cell(atom.Td, p.Manufacturer))

		title := element(atom.Td)
		if p.Link != "" {
			a := element(atom.A)
			a.Attr = []html.Attribute{{Key: "href", Val: p.Link}}
			a.AppendChild(&html.Node{Type: html.TextNode, Data: p.Title})
			title.AppendChild(a)
		} else {
			title.AppendChild(&html.Node{Type: html.TextNode, Data: p.Title})
		}
		tr.AppendChild(title)

		tr.AppendChild(cell(atom.Td, "$"+p.OriginalPrice.String()))
		tr.AppendChild(cell(atom.Td, "$"+p.CPR.String()))
		rounds := ""
		if p.RoundsPerPackage > 0 {
			rounds = strconv.Itoa(p.RoundsPerPackage)
		}
		tr.AppendChild(cell(atom.Td, rounds))
		tr.AppendChild(cell(atom.Td, yesNo(p.SteelCasing)))
		tr.AppendChild(cell(atom.Td, yesNo(p.Remanufactured)))
		body.AppendChild(tr)
	}
	table.AppendChild(body)
	return table
}

// RenderTable renders ProductTable as markup.
func RenderTable(products []models.Product) (string, error) {
	var b strings.Builder
	if err := html.Render(&b, ProductTable(products)); err != nil {
		return "", err
	}
	return b.String(), nil
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}

func cell(a atom.Atom, text string) *html.Node {
	n := element(a)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
