// Package manufacturer maps the brand text found on listings to canonical
// manufacturer names.
package manufacturer

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	"gopkg.in/yaml.v3"
)

//go:embed manufacturers.yaml
var builtin []byte

// DefaultThreshold is the Jaro-Winkler similarity a misspelled brand needs
// to be accepted.
const DefaultThreshold = 0.92

// fuzzy matching only looks at the leading words of the text and only at
// aliases at least this long.
const (
	fuzzyWords    = 4
	fuzzyMinAlias = 5
)

// Manufacturer is one canonical brand and the spellings that mean it.
type Manufacturer struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

type document struct {
	Manufacturers []Manufacturer `yaml:"manufacturers"`
}

type alias struct {
	text string
	name string
}

// Table resolves brand text. It is read-only after construction and safe
// for concurrent use.
type Table struct {
	aliases   []alias
	names     []string
	threshold float64
}

// Default returns the built-in table.
func Default() *Table {
	t, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("manufacturer: built-in table: %v", err))
	}
	return t
}

// Parse reads a YAML document with a top-level manufacturers list.
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse manufacturers: %w", err)
	}
	return New(doc.Manufacturers)
}

// LoadFile reads a table from path.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manufacturers: %w", err)
	}
	return Parse(data)
}

// New builds a table. Every name is also an alias of itself.
func New(ms []Manufacturer) (*Table, error) {
	t := &Table{threshold: DefaultThreshold}
	seen := map[string]string{}
	for _, m := range ms {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, fmt.Errorf("manufacturer without a name")
		}
		t.names = append(t.names, name)
		for _, a := range append([]string{name}, m.Aliases...) {
			n := normalize(a)
			if n == "" {
				continue
			}
			if prev, ok := seen[n]; ok {
				if prev != name {
					return nil, fmt.Errorf("alias %q claimed by both %s and %s", a, prev, name)
				}
				continue
			}
			seen[n] = name
			t.aliases = append(t.aliases, alias{text: n, name: name})
		}
	}
	sort.SliceStable(t.aliases, func(i, j int) bool {
		return len(t.aliases[i].text) > len(t.aliases[j].text)
	})
	sort.Strings(t.names)
	return t, nil
}

// Merge returns a table holding t's entries overridden by other's. An alias
// defined by both resolves to other's name.
func (t *Table) Merge(other *Table) *Table {
	out := &Table{threshold: t.threshold}
	taken := map[string]bool{}
	for _, a := range other.aliases {
		taken[a.text] = true
		out.aliases = append(out.aliases, a)
	}
	for _, a := range t.aliases {
		if !taken[a.text] {
			out.aliases = append(out.aliases, a)
		}
	}
	sort.SliceStable(out.aliases, func(i, j int) bool {
		return len(out.aliases[i].text) > len(out.aliases[j].text)
	})

	names := map[string]bool{}
	for _, a := range out.aliases {
		names[a.name] = true
	}
	for n := range names {
		out.names = append(out.names, n)
	}
	sort.Strings(out.names)
	return out
}

// WithThreshold returns a copy using a different fuzzy threshold. A value
// of 1 or more disables fuzzy matching.
func (t *Table) WithThreshold(th float64) *Table {
	cp := *t
	cp.threshold = th
	return &cp
}

// Names lists the canonical names, sorted.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Resolve finds the canonical manufacturer in raw. Whole-word alias matches
// are tried first; the earliest match wins and, among matches at the same
// position, the longest alias. Failing that, the leading words are compared
// to the aliases by Jaro-Winkler similarity.
func (t *Table) Resolve(raw string) (string, bool) {
	norm := normalize(raw)
	if norm == "" {
		return "", false
	}

	padded := " " + norm + " "
	best, bestPos := "", -1
	for _, a := range t.aliases {
		pos := strings.Index(padded, " "+a.text+" ")
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos {
			best, bestPos = a.name, pos
		}
	}
	if bestPos >= 0 {
		return best, true
	}

	if t.threshold >= 1 {
		return "", false
	}
	return t.fuzzy(norm)
}

func (t *Table) fuzzy(norm string) (string, bool) {
	words := strings.Fields(norm)
	if len(words) > fuzzyWords {
		words = words[:fuzzyWords]
	}
	var phrases []string
	for i, w := range words {
		phrases = append(phrases, w)
		if i+1 < len(words) {
			phrases = append(phrases, w+" "+words[i+1])
		}
	}

	var best string
	var bestScore float64
	for _, p := range phrases {
		if len(p) < fuzzyMinAlias {
			continue
		}
		for _, a := range t.aliases {
			if len(a.text) < fuzzyMinAlias {
				continue
			}
			score := matchr.JaroWinkler(p, a.text, false)
			if score > bestScore {
				best, bestScore = a.name, score
			}
		}
	}
	if bestScore >= t.threshold {
		return best, true
	}
	return "", false
}

// normalize lower-cases s and folds every run of non-alphanumerics into a
// single space.
func normalize(s string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
