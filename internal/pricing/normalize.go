package pricing

import (
	"regexp"
	"strings"

	"github.com/law-makers/ammocrawl/pkg/models"
)

// Input is the raw text a row offers for pricing. Empty strings mean the
// node was absent.
type Input struct {
	Title   string
	Sale    string
	Regular string
	// Candidates are price nodes in document order.
	Candidates []string

	PerRound     string
	PerRoundUnit models.PerRoundUnit

	RoundsText  string
	PackPattern *regexp.Regexp
}

// Quote is the normalized result for one row.
type Quote struct {
	Price  models.Money
	CPR    models.Money
	Rounds int // zero on the direct path
}

// Normalize resolves the unit price and the cost per round.
//
// A sale price wins over the regular price. When neither is present the last
// non-empty candidate is used. A published per-round price is preferred over
// a derived one; otherwise the pack size comes from RoundsText or the title.
func Normalize(in Input) (Quote, error) {
	price, err := ParsePrice(selectPrice(in))
	if err != nil {
		return Quote{}, err
	}
	q := Quote{Price: models.NewMoney(price)}

	if strings.TrimSpace(in.PerRound) != "" {
		cpr, err := ParsePerRound(in.PerRound, in.PerRoundUnit)
		if err != nil {
			return Quote{}, err
		}
		q.CPR = models.NewMoney(cpr)
		return q, nil
	}

	var rounds int
	if strings.TrimSpace(in.RoundsText) != "" {
		rounds, err = Rounds(in.RoundsText)
	} else {
		rounds, err = PackSize(in.Title, in.PackPattern)
	}
	if err != nil {
		return Quote{}, err
	}

	q.CPR, err = CostPerRound(price, rounds)
	if err != nil {
		return Quote{}, err
	}
	q.Rounds = rounds
	return q, nil
}

func selectPrice(in Input) string {
	if s := strings.TrimSpace(in.Sale); s != "" {
		return s
	}
	if s := strings.TrimSpace(in.Regular); s != "" {
		return s
	}
	for i := len(in.Candidates) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(in.Candidates[i]); s != "" {
			return s
		}
	}
	return ""
}
