package provider

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/yllada/vpn-provider-cli/common"
)

// Placeholder entry that always opens a country catalog.
const (
	PlaceholderCode = " "
	PlaceholderName = "Select a country..."
)

// Entry is one country of a catalog.
type Entry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Catalog is an ordered country code -> display name mapping. The first
// entry is always the placeholder; codes are unique and insertion order is
// display order.
type Catalog struct {
	codes []string
	names map[string]string
}

// NewCatalog returns a catalog holding only the placeholder.
func NewCatalog() *Catalog {
	return &Catalog{
		codes: []string{PlaceholderCode},
		names: map[string]string{PlaceholderCode: PlaceholderName},
	}
}

// Add inserts code, or renames it in place when already present. The
// placeholder cannot be replaced.
func (c *Catalog) Add(code, name string) {
	if code == PlaceholderCode {
		return
	}
	if _, ok := c.names[code]; !ok {
		c.codes = append(c.codes, code)
	}
	c.names[code] = name
}

// Len returns the number of entries including the placeholder.
func (c *Catalog) Len() int {
	return len(c.codes)
}

// Name returns the display name for code.
func (c *Catalog) Name(code string) (string, bool) {
	name, ok := c.names[code]
	return name, ok
}

// Entries returns all entries in display order.
func (c *Catalog) Entries() []Entry {
	entries := make([]Entry, len(c.codes))
	for i, code := range c.codes {
		entries[i] = Entry{Code: code, Name: c.names[code]}
	}
	return entries
}

// Countries returns the entries without the placeholder.
func (c *Catalog) Countries() []Entry {
	return c.Entries()[1:]
}

// Rules are the country parsing settings from the override document.
type Rules struct {
	Pattern string
	Replace string
	Slice   int
}

// CountryParser turns raw countries output into catalog entries.
type CountryParser interface {
	Parse(lines []string, rules Rules) ([]Entry, error)
}

// ParserFunc adapts a function to CountryParser.
type ParserFunc func(lines []string, rules Rules) ([]Entry, error)

// Parse implements CountryParser.
func (f ParserFunc) Parse(lines []string, rules Rules) ([]Entry, error) {
	return f(lines, rules)
}

var (
	parsers   = make(map[string]CountryParser)
	parsersMu sync.RWMutex
)

func init() {
	RegisterParser(common.ParserCSV, ParserFunc(parseCSV))
	RegisterParser(common.ParserTokens, ParserFunc(parseTokens))
}

// RegisterParser makes a parser available under kind.
// Panics if kind is empty or already registered.
func RegisterParser(kind string, parser CountryParser) {
	parsersMu.Lock()
	defer parsersMu.Unlock()

	if kind == "" {
		panic("country parser kind must not be empty")
	}
	if _, exists := parsers[kind]; exists {
		panic(fmt.Sprintf("country parser already registered: %s", kind))
	}
	parsers[kind] = parser
}

// LookupParser returns the parser registered under kind.
func LookupParser(kind string) (CountryParser, bool) {
	parsersMu.RLock()
	defer parsersMu.RUnlock()
	p, ok := parsers[kind]
	return p, ok
}

// ParserKinds returns the registered kinds, sorted.
func ParserKinds() []string {
	parsersMu.RLock()
	defer parsersMu.RUnlock()

	kinds := make([]string, 0, len(parsers))
	for kind := range parsers {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Countries runs the countries command and parses it with the parser the
// provider declares. Providers without a known parser kind yield only the
// placeholder.
func (a *Adapter) Countries(ctx context.Context, p Provider) (*Catalog, error) {
	out, runErr := a.run(ctx, p, common.ItemCountries, a.commandTimeout)

	catalog := NewCatalog()
	parser, ok := LookupParser(p.Parser)
	if !ok {
		if p.Parser != "" {
			a.log.Warn("%s: unknown country parser %q", p.Name, p.Parser)
		}
		return catalog, runErr
	}

	entries, err := parser.Parse(out.Lines, a.rules(p))
	if err != nil {
		return catalog, fmt.Errorf("%s countries: %w", p.Name, err)
	}
	for _, e := range entries {
		catalog.Add(e.Code, e.Name)
	}
	return catalog, runErr
}

func (a *Adapter) rules(p Provider) Rules {
	slice, _ := strconv.Atoi(strings.TrimSpace(a.overrides.Resolve(p.ID, common.GroupRegex, common.ItemSlice)))
	return Rules{
		Pattern: a.overrides.Resolve(p.ID, common.GroupRegex, common.ItemPattern),
		Replace: a.overrides.Resolve(p.ID, common.GroupRegex, common.ItemReplace),
		Slice:   slice,
	}
}

// parseCSV skips the first Slice lines, rewrites every remaining line with
// Pattern/Replace into "code,name" and splits it on commas. A negative
// Slice counts from the end.
func parseCSV(lines []string, rules Rules) ([]Entry, error) {
	re, err := compilePattern(rules.Pattern)
	if err != nil {
		return nil, err
	}
	replace := expandTemplate(rules.Replace)

	start := rules.Slice
	if start < 0 {
		start = max(len(lines)+start, 0)
	}
	if start >= len(lines) {
		return nil, nil
	}

	entries := make([]Entry, 0, len(lines)-start)
	for _, line := range lines[start:] {
		parts := strings.Split(re.ReplaceAllString(line, replace), ",")
		e := Entry{Code: strings.TrimSpace(parts[0])}
		if e.Code == "" {
			continue
		}
		if len(parts) > 1 {
			e.Name = strings.TrimSpace(parts[1])
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// parseTokens reads a comma separated country list. Every line is
// sanitized on its own with all whitespace removed, and line breaks
// separate tokens like commas do. Multi-word names must use underscores;
// underscores become spaces in the display name only.
func parseTokens(lines []string, _ Rules) ([]Entry, error) {
	var entries []Entry
	for _, line := range SanitizeLines(lines, `\s`) {
		for _, token := range strings.Split(line, ",") {
			if token == "" {
				continue
			}
			entries = append(entries, Entry{Code: token, Name: strings.ReplaceAll(token, "_", " ")})
		}
	}
	return entries, nil
}
