package engine

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/law-makers/ammocrawl/internal/pricing"
	urlutil "github.com/law-makers/ammocrawl/internal/utils/url"
	"github.com/law-makers/ammocrawl/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// SkipReason says why a row produced no product.
type SkipReason string

const (
	SkipMissingField        SkipReason = "missing_field"
	SkipOutOfStock          SkipReason = "out_of_stock"
	SkipPlaceholderImage    SkipReason = "placeholder_image"
	SkipUnknownManufacturer SkipReason = "unknown_manufacturer"
	SkipExcluded            SkipReason = "excluded"
	SkipPriceUnparseable    SkipReason = "price_unparseable"
	SkipPriceRange          SkipReason = "price_range"
	SkipPackSizeUnknown     SkipReason = "pack_size_unknown"
	SkipZeroPackSize        SkipReason = "zero_pack_size"
	SkipFault               SkipReason = "fault"
)

// Outcome is the result of extracting one row: a Product when Skip is
// empty, otherwise nothing but the reason.
type Outcome struct {
	Product models.Product
	Skip    SkipReason
	Detail  string
}

// OK reports whether the row produced a product.
func (o Outcome) OK() bool { return o.Skip == "" }

func skip(reason SkipReason, format string, args ...interface{}) Outcome {
	return Outcome{Skip: reason, Detail: fmt.Sprintf(format, args...)}
}

// Extractor maps row fragments of one site to products. It holds no
// mutable state; Extract may be called any number of times on any row.
type Extractor struct {
	desc     models.SiteDescriptor
	pack     *regexp.Regexp
	resolver ManufacturerResolver
	caliber  string
}

// NewExtractor validates the descriptor's field paths and compiles its pack
// pattern. resolver may be nil only when the site publishes no manufacturer.
func NewExtractor(d models.SiteDescriptor, resolver ManufacturerResolver, caliber string) (*Extractor, error) {
	if d.Title.Selector == "" {
		return nil, NewEngineError(ErrCodeInvalidDescriptor, "title selector is required", nil).WithDetail("site", d.ID)
	}
	if d.Price.Sale.IsZero() && d.Price.Regular.IsZero() && len(d.Price.Candidates) == 0 {
		return nil, NewEngineError(ErrCodeInvalidDescriptor, "no price field", nil).WithDetail("site", d.ID)
	}
	if d.Manufacturer.Enabled() && resolver == nil {
		return nil, NewEngineError(ErrCodeInvalidDescriptor, "manufacturer field without a resolver", nil).WithDetail("site", d.ID)
	}
	pack, err := pricing.CompilePackPattern(d.PackPattern)
	if err != nil {
		return nil, NewEngineError(ErrCodeInvalidDescriptor, "bad pack pattern", err).WithDetail("site", d.ID)
	}
	return &Extractor{desc: d, pack: pack, resolver: resolver, caliber: caliber}, nil
}

// Extract builds a product from row. pageURL resolves relative links when
// the descriptor has no base URL. A panic while reading the row is turned
// into a SkipFault outcome.
func (e *Extractor) Extract(row *goquery.Selection, pageURL string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = skip(SkipFault, "panic: %v", r)
		}
	}()

	d := e.desc
	if d.SkipIf != "" && (row.Is(d.SkipIf) || row.Find(d.SkipIf).Length() > 0) {
		return skip(SkipExcluded, "matches %q", d.SkipIf)
	}

	title := fieldValue(row, d.Title, "")
	if title == "" {
		return skip(SkipMissingField, "title")
	}
	lowerTitle := strings.ToLower(title)
	for _, ex := range d.ExcludeTitle {
		if ex != "" && strings.Contains(lowerTitle, strings.ToLower(ex)) {
			return skip(SkipExcluded, "title contains %q", ex)
		}
	}

	if oos := d.OutOfStock; oos != nil && oos.Selector != "" {
		marker := row.Find(oos.Selector)
		if marker.Length() > 0 {
			if oos.Text == "" || strings.Contains(strings.ToLower(squash(marker.Text())), strings.ToLower(oos.Text)) {
				return skip(SkipOutOfStock, "marker %q", oos.Selector)
			}
		}
	}

	base := pageURL
	if d.BaseURL != "" {
		base = d.BaseURL
	}

	href := fieldValue(row, d.Link, "href")
	if href == "" {
		return skip(SkipMissingField, "link")
	}
	link, err := urlutil.Absolute(base, href)
	if err != nil {
		return skip(SkipMissingField, "link: %v", err)
	}

	var image string
	if !d.Image.IsZero() {
		src := imageSource(row, d.Image)
		if src == "" {
			return skip(SkipPlaceholderImage, "no image")
		}
		if d.PlaceholderImage != "" && strings.Contains(strings.ToLower(src), strings.ToLower(d.PlaceholderImage)) {
			return skip(SkipPlaceholderImage, "%s", src)
		}
		if image, err = urlutil.Absolute(base, src); err != nil {
			return skip(SkipPlaceholderImage, "image: %v", err)
		}
	}

	var manufacturer string
	if d.Manufacturer.Enabled() {
		raw := title
		if !d.Manufacturer.FromTitle {
			raw = fieldValue(row, d.Manufacturer.Field, "")
		}
		if raw == "" {
			return skip(SkipMissingField, "manufacturer")
		}
		name, ok := e.resolver.Resolve(raw)
		if !ok {
			return skip(SkipUnknownManufacturer, "%q", raw)
		}
		manufacturer = name
	}

	in := pricing.Input{
		Title:       title,
		Sale:        fieldValue(row, d.Price.Sale, ""),
		Regular:     fieldValue(row, d.Price.Regular, ""),
		RoundsText:  fieldValue(row, d.Rounds, ""),
		PackPattern: e.pack,
	}
	for _, c := range d.Price.Candidates {
		in.Candidates = append(in.Candidates, fieldValue(row, c, ""))
	}
	if d.PerRound != nil {
		in.PerRound = fieldValue(row, d.PerRound.Field, "")
		in.PerRoundUnit = d.PerRound.Unit
	}

	q, err := pricing.Normalize(in)
	if err != nil {
		return skip(pricingReason(err), "%v", err)
	}

	return Outcome{Product: models.Product{
		Title:            title,
		Website:          d.Name,
		Link:             link,
		Image:            image,
		Manufacturer:     manufacturer,
		Caliber:          e.caliber,
		SteelCasing:      strings.Contains(lowerTitle, "steel"),
		Remanufactured:   strings.Contains(lowerTitle, "reman"),
		OriginalPrice:    q.Price,
		CPR:              q.CPR,
		RoundsPerPackage: q.Rounds,
	}}
}

func pricingReason(err error) SkipReason {
	switch {
	case errors.Is(err, pricing.ErrPriceRange):
		return SkipPriceRange
	case errors.Is(err, pricing.ErrMissingPrice):
		return SkipMissingField
	case errors.Is(err, pricing.ErrZeroPackSize):
		return SkipZeroPackSize
	case errors.Is(err, pricing.ErrNoPackSize):
		return SkipPackSizeUnknown
	}
	return SkipPriceUnparseable
}

// fieldValue reads f inside row. An empty selector reads the row itself.
// The attribute defaults to defAttr, and to the node text when both are empty.
func fieldValue(row *goquery.Selection, f models.Field, defAttr string) string {
	if f.IsZero() && defAttr == "" {
		return ""
	}
	sel := row
	if f.Selector != "" {
		sel = row.Find(f.Selector).First()
	}
	if sel.Length() == 0 {
		return ""
	}
	attr := f.Attr
	if attr == "" {
		attr = defAttr
	}
	if attr == "" || attr == "text" {
		return squash(sel.Text())
	}
	v, _ := sel.Attr(attr)
	return strings.TrimSpace(v)
}

// imageSource tries the configured attribute, then src, data-src and srcset.
func imageSource(row *goquery.Selection, f models.Field) string {
	if f.Attr != "" {
		return fieldValue(row, f, "")
	}
	sel := row
	if f.Selector != "" {
		sel = row.Find(f.Selector).First()
	}
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v, ok := sel.Attr(attr); ok && strings.TrimSpace(v) != "" && !strings.HasPrefix(v, "data:") {
			return strings.TrimSpace(v)
		}
	}
	if v, ok := sel.Attr("srcset"); ok {
		return urlutil.FirstSrcset(v)
	}
	return ""
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// fragmentHTML renders a row for debug logs, truncated to limit bytes.
func fragmentHTML(row *goquery.Selection, limit int) string {
	if row == nil || len(row.Nodes) == 0 {
		return ""
	}
	var b bytes.Buffer
	if err := html.Render(&b, row.Nodes[0]); err != nil {
		log.Debug().Err(err).Msg("Render row fragment")
		return ""
	}
	s := squash(b.String())
	if len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "…"
	}
	return s
}
