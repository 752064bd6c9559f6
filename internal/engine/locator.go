package engine

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/ammocrawl/pkg/models"
)

// Fragment is one product row on a page.
type Fragment struct {
	Index int
	Sel   *goquery.Selection
}

// ParsePage parses rendered markup.
func ParsePage(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// LocateRows parses markup and returns the rows described by d.
func LocateRows(markup string, d models.SiteDescriptor) ([]Fragment, error) {
	doc, err := ParsePage(markup)
	if err != nil {
		return nil, err
	}
	return locate(doc, d)
}

// locate applies the container path and then the row path. A missing
// container or an empty container is a structure mismatch.
func locate(doc *goquery.Document, d models.SiteDescriptor) ([]Fragment, error) {
	container := doc.Selection
	if d.Container != "" {
		container = doc.Find(d.Container)
		if container.Length() == 0 {
			return nil, NewEngineError(ErrCodeStructureMismatch, "container not found", nil).
				WithDetail("site", d.ID).
				WithDetail("selector", d.Container)
		}
	}

	rows := container.Find(d.Row)
	if rows.Length() == 0 {
		return nil, NewEngineError(ErrCodeStructureMismatch, "no rows in container", nil).
			WithDetail("site", d.ID).
			WithDetail("selector", d.Row)
	}

	out := make([]Fragment, 0, rows.Length())
	rows.Each(func(i int, s *goquery.Selection) {
		out = append(out, Fragment{Index: i, Sel: s})
	})
	return out, nil
}
