// Package pricing turns the raw price and quantity text of a listing into a
// unit price and a cost per round.
package pricing

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/law-makers/ammocrawl/pkg/models"
	"github.com/shopspring/decimal"
)

var (
	ErrPriceRange   = errors.New("price is a range or placeholder")
	ErrNotNumeric   = errors.New("no numeric value in price text")
	ErrNoPackSize   = errors.New("pack size not found")
	ErrZeroPackSize = errors.New("pack size is zero")
	ErrPerRoundUnit = errors.New("unknown per-round unit")
	ErrMissingPrice = errors.New("no price text")
)

var (
	numberRe  = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?|\.\d+`)
	integerRe = regexp.MustCompile(`\d[\d,]*`)

	// DefaultPackPattern finds an integer next to a unit token ("50 rds",
	// "20pk", "50/box", "50/"), or a container word followed by the count
	// ("Case 1000", "box of 50"). A slash followed by a digit or a dot is a
	// caliber like ".223/5.56", not a count. The leftmost match wins.
	DefaultPackPattern = regexp.MustCompile(`(?i)(\d[\d,]*)\s*-?\s*(?:rounds?\b|rnds?\b|rds?\b|ct\b|count\b|bx\b|box(?:es)?\b|pk\b|pack\b|/(?:[^\d.]|$))|(?:case|bucket|box|pack)\s*(?:of\s+)?(\d[\d,]*)\b`)

	hundred = decimal.NewFromInt(100)
)

const dashes = "-–—"

// ParsePrice reads a dollar amount such as "$1,299.99". Any dash in the text
// means the site rendered a range or a placeholder and the price is rejected.
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrMissingPrice
	}
	if strings.ContainsAny(s, dashes) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrPriceRange, s)
	}
	return firstNumber(s)
}

// ParsePerRound reads a published per-round price. Ranges use the first
// value. Cents are truncated to a whole cent before conversion to dollars.
func ParsePerRound(raw string, unit models.PerRoundUnit) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrMissingPrice
	}
	if i := strings.IndexAny(s, dashes); i > 0 {
		s = s[:i]
	}

	if unit == "" || unit == models.PerRoundAuto {
		unit = models.PerRoundDollars
		lower := strings.ToLower(s)
		if strings.Contains(lower, "¢") || strings.Contains(lower, "cent") {
			unit = models.PerRoundCents
		}
	}

	n, err := firstNumber(s)
	if err != nil {
		return decimal.Zero, err
	}

	switch unit {
	case models.PerRoundCents:
		return n.Truncate(0).Div(hundred), nil
	case models.PerRoundDollars:
		return n.Round(2), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrPerRoundUnit, unit)
	}
}

// PackSize finds the number of rounds in text using pattern, or
// DefaultPackPattern when pattern is nil. The first non-empty capture group
// holds the count.
func PackSize(text string, pattern *regexp.Regexp) (int, error) {
	if pattern == nil {
		pattern = DefaultPackPattern
	}
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return 0, ErrNoPackSize
	}
	for _, g := range m[1:] {
		if g != "" {
			return atoi(g)
		}
	}
	return 0, ErrNoPackSize
}

// Rounds reads a dedicated quantity field such as "50" or "1,000 rds".
func Rounds(text string) (int, error) {
	g := integerRe.FindString(text)
	if g == "" {
		return 0, ErrNoPackSize
	}
	return atoi(g)
}

// CompilePackPattern compiles a site override. The pattern must have at
// least one capture group.
func CompilePackPattern(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("pack pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("pack pattern %q has no capture group", expr)
	}
	return re, nil
}

// CostPerRound divides price by rounds and rounds to cents.
func CostPerRound(price decimal.Decimal, rounds int) (models.Money, error) {
	if rounds <= 0 {
		return models.Money{}, ErrZeroPackSize
	}
	return models.NewMoney(price.Div(decimal.NewFromInt(int64(rounds)))), nil
}

func firstNumber(s string) (decimal.Decimal, error) {
	tok := numberRe.FindString(s)
	if tok == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	if tok[0] == '.' {
		tok = "0" + tok
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(tok, ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	return d, nil
}

func atoi(g string) (int, error) {
	n, err := strconv.Atoi(strings.ReplaceAll(g, ",", ""))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNoPackSize, g)
	}
	if n == 0 {
		return 0, ErrZeroPackSize
	}
	return n, nil
}
