// Package sites holds the storefront descriptors the engine is driven by.
package sites

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/law-makers/ammocrawl/internal/pricing"
	"github.com/law-makers/ammocrawl/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed sites.yaml
var builtin []byte

// ErrUnknownSite is returned by Lookup for an id with no descriptor.
var ErrUnknownSite = errors.New("no scraper found for website")

type document struct {
	Sites []models.SiteDescriptor `yaml:"sites"`
}

// Registry maps site ids to descriptors. It is not mutated once a run
// starts.
type Registry struct {
	sites map[string]models.SiteDescriptor
}

// Builtin returns the embedded registry.
func Builtin() (*Registry, error) {
	return Parse(builtin)
}

// Parse reads a YAML document with a top-level sites list.
func Parse(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse sites: %w", err)
	}
	r := &Registry{sites: make(map[string]models.SiteDescriptor, len(doc.Sites))}
	for _, d := range doc.Sites {
		if err := r.add(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadFile merges the descriptors in path over r. A descriptor with an
// existing id replaces it.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sites file: %w", err)
	}
	extra, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for id, d := range extra.sites {
		r.sites[id] = d
	}
	return nil
}

// Lookup returns the descriptor for id. Ids are case-insensitive.
func (r *Registry) Lookup(id string) (models.SiteDescriptor, error) {
	d, ok := r.sites[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return models.SiteDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownSite, id)
	}
	return d, nil
}

// IDs lists the registered ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.sites))
	for id := range r.sites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len is the number of registered sites.
func (r *Registry) Len() int { return len(r.sites) }

func (r *Registry) add(d models.SiteDescriptor) error {
	d.ID = strings.ToLower(strings.TrimSpace(d.ID))
	if err := Validate(d); err != nil {
		return err
	}
	if _, dup := r.sites[d.ID]; dup {
		return fmt.Errorf("site %q defined twice", d.ID)
	}
	if d.Wait == "" {
		d.Wait = models.WaitNetworkIdle
	}
	if d.Pagination.Kind == "" {
		d.Pagination.Kind = models.PaginationNone
	}
	r.sites[d.ID] = d
	return nil
}

// Validate checks the fields every descriptor needs.
func Validate(d models.SiteDescriptor) error {
	var problems []string
	if d.ID == "" {
		problems = append(problems, "id is required")
	}
	if d.Name == "" {
		problems = append(problems, "name is required")
	}
	if d.Row == "" {
		problems = append(problems, "row selector is required")
	}
	if d.Title.Selector == "" {
		problems = append(problems, "title selector is required")
	}
	if d.Price.Sale.IsZero() && d.Price.Regular.IsZero() && len(d.Price.Candidates) == 0 {
		problems = append(problems, "at least one price field is required")
	}
	switch d.Wait {
	case "", models.WaitLoad, models.WaitNetworkIdle:
	default:
		problems = append(problems, fmt.Sprintf("unknown wait policy %q", d.Wait))
	}
	switch d.Pagination.Kind {
	case "", models.PaginationNone, models.PaginationInfiniteScroll:
	case models.PaginationLinkFollow, models.PaginationClickAdvance:
		if d.Pagination.Next == "" {
			problems = append(problems, fmt.Sprintf("%s pagination needs a next selector", d.Pagination.Kind))
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown pagination kind %q", d.Pagination.Kind))
	}
	if d.PerRound != nil {
		switch d.PerRound.Unit {
		case "", models.PerRoundAuto, models.PerRoundCents, models.PerRoundDollars:
		default:
			problems = append(problems, fmt.Sprintf("unknown per_round unit %q", d.PerRound.Unit))
		}
	}
	if _, err := pricing.CompilePackPattern(d.PackPattern); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("site %q: %s", d.ID, strings.Join(problems, "; "))
	}
	return nil
}
