package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is one normalized listing. Values are built once by the extractor
// and never mutated afterwards.
type Product struct {
	Title          string `json:"title" yaml:"title"`
	Website        string `json:"website" yaml:"website"`
	Link           string `json:"link" yaml:"link"`
	Image          string `json:"image,omitempty" yaml:"image,omitempty"`
	Manufacturer   string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Caliber        string `json:"caliber,omitempty" yaml:"caliber,omitempty"`
	SteelCasing    bool   `json:"steel_casing" yaml:"steel_casing"`
	Remanufactured bool   `json:"remanufactured" yaml:"remanufactured"`
	OriginalPrice  Money  `json:"original_price" yaml:"original_price"`
	CPR            Money  `json:"cpr" yaml:"cpr"`
	// RoundsPerPackage is zero when the site published the per-round price directly.
	RoundsPerPackage int `json:"rounds_per_package,omitempty" yaml:"rounds_per_package,omitempty"`
}

// Money is a US dollar amount rounded to cents.
type Money struct {
	d decimal.Decimal
}

// NewMoney rounds d to two decimal places.
func NewMoney(d decimal.Decimal) Money {
	return Money{d: d.Round(2)}
}

// MustMoney parses s and panics on failure. Intended for tests and fixtures.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("models: invalid money %q: %v", s, err))
	}
	return NewMoney(d)
}

// Decimal returns the underlying rounded value.
func (m Money) Decimal() decimal.Decimal { return m.d }

// String formats the amount with exactly two decimal places.
func (m Money) String() string { return m.d.StringFixed(2) }

// Equal reports whether both amounts are the same number of cents.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.d.IsZero() }

// MarshalJSON encodes the amount as a two-decimal string ("0.40").
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts either a quoted or bare number.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*m = NewMoney(d)
	return nil
}

// MarshalYAML encodes the amount as a two-decimal string.
func (m Money) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// PaginationKind selects how a site moves from one listing page to the next.
type PaginationKind string

const (
	// PaginationNone scrapes only the landing page.
	PaginationNone PaginationKind = "none"
	// PaginationLinkFollow follows the href of a "next page" anchor.
	PaginationLinkFollow PaginationKind = "link"
	// PaginationClickAdvance clicks a "next" control while it is visible.
	PaginationClickAdvance PaginationKind = "click"
	// PaginationInfiniteScroll scrolls until the offset stops changing.
	PaginationInfiniteScroll PaginationKind = "scroll"
)

// WaitPolicy is the navigation settle condition.
type WaitPolicy string

const (
	WaitLoad        WaitPolicy = "load"
	WaitNetworkIdle WaitPolicy = "network_idle"
)

// Field locates one value inside a row fragment. An empty Attr reads text.
type Field struct {
	Selector string `yaml:"selector" json:"selector"`
	Attr     string `yaml:"attr,omitempty" json:"attr,omitempty"`
}

// IsZero reports whether the field is unset.
func (f Field) IsZero() bool { return f.Selector == "" && f.Attr == "" }

// PerRoundUnit tells the normalizer how to read a direct per-round field.
type PerRoundUnit string

const (
	PerRoundAuto    PerRoundUnit = "auto"
	PerRoundCents   PerRoundUnit = "cents"
	PerRoundDollars PerRoundUnit = "dollars"
)

// PriceFields groups the price-bearing nodes of a row.
type PriceFields struct {
	Sale    Field `yaml:"sale,omitempty" json:"sale,omitempty"`
	Regular Field `yaml:"regular,omitempty" json:"regular,omitempty"`
	// Candidates are tried in order; the last numeric node wins.
	Candidates []Field `yaml:"candidates,omitempty" json:"candidates,omitempty"`
}

// PerRoundField is a site-published cost per round.
type PerRoundField struct {
	Field `yaml:",inline"`
	Unit  PerRoundUnit `yaml:"unit,omitempty" json:"unit,omitempty"`
}

// ManufacturerSource says where the raw brand text comes from.
type ManufacturerSource struct {
	Field     `yaml:",inline"`
	FromTitle bool `yaml:"from_title,omitempty" json:"from_title,omitempty"`
}

// Enabled reports whether the site publishes a manufacturer at all.
func (m ManufacturerSource) Enabled() bool { return m.FromTitle || m.Selector != "" }

// OutOfStock marks rows that are listed but not purchasable.
type OutOfStock struct {
	Selector string `yaml:"selector" json:"selector"`
	// Text, when set, must appear in the marker text (case-insensitive).
	Text string `yaml:"text,omitempty" json:"text,omitempty"`
}

// Pagination is the descriptor's paging section.
type Pagination struct {
	Kind PaginationKind `yaml:"kind" json:"kind"`
	// Next is the anchor (link) or control (click) selector.
	Next string `yaml:"next,omitempty" json:"next,omitempty"`
}

// SiteDescriptor is the static structural description of one storefront.
type SiteDescriptor struct {
	ID      string     `yaml:"id" json:"id"`
	Name    string     `yaml:"name" json:"name"`
	BaseURL string     `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Wait    WaitPolicy `yaml:"wait,omitempty" json:"wait,omitempty"`
	// Ready is awaited after every navigation before the DOM is read.
	Ready      string     `yaml:"ready,omitempty" json:"ready,omitempty"`
	Container  string     `yaml:"container" json:"container"`
	Row        string     `yaml:"row" json:"row"`
	Pagination Pagination `yaml:"pagination" json:"pagination"`

	Title        Field              `yaml:"title" json:"title"`
	Link         Field              `yaml:"link" json:"link"`
	Image        Field              `yaml:"image,omitempty" json:"image,omitempty"`
	Manufacturer ManufacturerSource `yaml:"manufacturer,omitempty" json:"manufacturer,omitempty"`
	Price        PriceFields        `yaml:"price" json:"price"`
	PerRound     *PerRoundField     `yaml:"per_round,omitempty" json:"per_round,omitempty"`
	Rounds       Field              `yaml:"rounds,omitempty" json:"rounds,omitempty"`
	// PackPattern overrides the default pack-size regexp; group 1 is the count.
	PackPattern string `yaml:"pack_pattern,omitempty" json:"pack_pattern,omitempty"`

	OutOfStock       *OutOfStock `yaml:"out_of_stock,omitempty" json:"out_of_stock,omitempty"`
	SkipIf           string      `yaml:"skip_if,omitempty" json:"skip_if,omitempty"`
	PlaceholderImage string      `yaml:"placeholder_image,omitempty" json:"placeholder_image,omitempty"`
	ExcludeTitle     []string    `yaml:"exclude_title,omitempty" json:"exclude_title,omitempty"`
}

// Target pairs a site descriptor with the listing URL to start from.
type Target struct {
	Site SiteDescriptor
	URL  string
}
