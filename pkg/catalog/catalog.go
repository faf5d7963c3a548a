// Package catalog holds the timezone names offered as input suggestions.
package catalog

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// DefaultLimit is the number of suggestions returned when no limit is given.
const DefaultLimit = 20

// Lister fetches timezone names from the time service.
type Lister interface {
	ListTimezones(ctx context.Context) ([]string, error)
}

// Catalog is an ordered, read-only list of timezone names.
type Catalog struct {
	names []string
}

// New builds a catalog from names. Blank and duplicate entries are dropped;
// the remaining order is kept as given.
func New(names []string) *Catalog {
	trimmed := lo.Map(names, func(n string, _ int) string { return strings.TrimSpace(n) })
	nonEmpty := lo.Filter(trimmed, func(n string, _ int) bool { return n != "" })
	return &Catalog{names: lo.Uniq(nonEmpty)}
}

// Load fetches the catalog. A failed fetch is logged and yields an empty
// catalog; it never stops startup.
func Load(ctx context.Context, lister Lister, logger *slog.Logger) *Catalog {
	names, err := lister.ListTimezones(ctx)
	if err != nil {
		logger.Warn("failed to load timezones", "error", err)
		return New(nil)
	}
	c := New(names)
	logger.Debug("timezones loaded", "count", c.Len())
	return c
}

// Names returns a copy of the catalog in order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.names...)
}

// Len returns the number of names.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Contains reports whether name is in the catalog, ignoring case.
func (c *Catalog) Contains(name string) bool {
	if c == nil {
		return false
	}
	return lo.ContainsBy(c.names, func(n string) bool { return strings.EqualFold(n, name) })
}

// Search returns up to limit names containing query, case-insensitively.
// Prefix matches come first, then the rest alphabetically. An empty query
// returns the first limit names in catalog order.
func (c *Catalog) Search(query string, limit int) []string {
	if c == nil {
		return nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if len(c.names) <= limit {
			return c.Names()
		}
		return append([]string(nil), c.names[:limit]...)
	}

	q := strings.ToLower(query)
	matches := make([]match, 0, 32)
	for _, name := range c.names {
		lower := strings.ToLower(name)
		if !strings.Contains(lower, q) {
			continue
		}
		matches = append(matches, match{
			name:     name,
			isPrefix: strings.HasPrefix(lower, q) || strings.Contains(lower, "/"+q),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].isPrefix != matches[j].isPrefix {
			return matches[i].isPrefix
		}
		return matches[i].name < matches[j].name
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return lo.Map(matches, func(m match, _ int) string { return m.name })
}

type match struct {
	name     string
	isPrefix bool
}
