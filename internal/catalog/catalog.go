package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gateworks/periphmon/internal/device"
	"github.com/gateworks/periphmon/internal/discovery"
)

// Catalog is the set of non-empty categories and their devices, in the fixed
// category order LED, GPIO, HWMON, PWM.
type Catalog struct {
	groups []*Group
	index  map[device.Category]*Group
}

// Build reads the discovery source once per category and builds the catalog.
//
// A category whose read fails is left out and reported in a *DiscoveryError;
// the remaining categories are still returned. When every read fails the
// catalog is nil.
func Build(ctx context.Context, src discovery.Source) (*Catalog, error) {
	c := newCatalog()
	var failed *DiscoveryError

	for _, cat := range device.Categories {
		lines, err := src.Lines(ctx)
		if err != nil {
			if failed == nil {
				failed = &DiscoveryError{Source: describe(src)}
			}
			failed.add(cat, err)
			continue
		}
		c.addGroup(cat, lines)
	}

	if failed != nil {
		if failed.Complete() {
			return nil, failed
		}
		return c, failed
	}
	return c, nil
}

// FromLines builds a catalog from lines already read
func FromLines(lines []string) *Catalog {
	c := newCatalog()
	for _, cat := range device.Categories {
		c.addGroup(cat, lines)
	}
	return c
}

func newCatalog() *Catalog {
	return &Catalog{index: make(map[device.Category]*Group)}
}

// addGroup filters lines for one category and appends the group if it is
// not empty.
func (c *Catalog) addGroup(cat device.Category, lines []string) {
	group := &Group{Category: cat}
	byName := make(map[string]*Record)

	for _, line := range lines {
		key, value, ok := parseLine(line)
		if !ok {
			continue
		}
		name, attr, ok := deviceName(key, cat.Prefix())
		if !ok {
			continue
		}

		if rec, exists := byName[name]; exists {
			if attr != "" {
				rec.Attrs[attr] = value
			}
			continue
		}

		rec := &Record{
			Category: cat,
			Name:     name,
			RawLine:  line,
			Prop:     value,
			Attrs:    make(map[string]string),
			Position: len(group.Records),
		}
		if attr != "" {
			rec.Attrs[attr] = value
		}
		byName[name] = rec
		group.Records = append(group.Records, rec)
	}

	if len(group.Records) == 0 {
		return
	}
	c.groups = append(c.groups, group)
	c.index[cat] = group
}

// Categories returns the categories present, in display order
func (c *Catalog) Categories() []device.Category {
	out := make([]device.Category, len(c.groups))
	for i, g := range c.groups {
		out[i] = g.Category
	}
	return out
}

// Groups returns the groups, in display order
func (c *Catalog) Groups() []*Group {
	out := make([]*Group, len(c.groups))
	copy(out, c.groups)
	return out
}

// Group returns the group of a category, or nil if the category is absent
func (c *Catalog) Group(cat device.Category) *Group {
	return c.index[cat]
}

// Has reports whether the category has at least one device
func (c *Catalog) Has(cat device.Category) bool {
	_, ok := c.index[cat]
	return ok
}

// Record returns the record at a position, or nil
func (c *Catalog) Record(cat device.Category, pos int) *Record {
	g := c.index[cat]
	if g == nil || pos < 0 || pos >= len(g.Records) {
		return nil
	}
	return g.Records[pos]
}

// Find returns the record with the given name, or nil
func (c *Catalog) Find(cat device.Category, name string) *Record {
	g := c.index[cat]
	if g == nil {
		return nil
	}
	for _, r := range g.Records {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Records returns every record in display order
func (c *Catalog) Records() []*Record {
	var out []*Record
	for _, g := range c.groups {
		out = append(out, g.Records...)
	}
	return out
}

// Len returns the total number of records
func (c *Catalog) Len() int {
	n := 0
	for _, g := range c.groups {
		n += len(g.Records)
	}
	return n
}

// parseLine splits a discovery line into key and value. Accepted shapes:
//
//	[hw.gpio.dio0]: [1]        getprop output
//	gpio.gpio1.value=[1]
//	gpio.gpio1.value=1
func parseLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false
	}

	if strings.HasPrefix(line, "[") {
		end := strings.Index(line, "]")
		if end < 0 {
			return "", "", false
		}
		key = line[1:end]
		value = bracketed(line[end+1:])
		return key, value, key != ""
	}

	if eq := strings.Index(line, "="); eq >= 0 {
		key = strings.TrimSpace(line[:eq])
		rest := strings.TrimSpace(line[eq+1:])
		if v, found := bracketedOK(rest); found {
			value = v
		} else {
			value = rest
		}
		return key, value, key != ""
	}

	return line, "", true
}

// bracketed returns the text between the last '[' and the last ']'
func bracketed(s string) string {
	v, _ := bracketedOK(s)
	return v
}

func bracketedOK(s string) (string, bool) {
	start := strings.LastIndex(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start+1 : end], true
}

// deviceName finds prefix at a key-segment boundary and returns the segment
// after it as the device name, plus any remaining attribute path.
func deviceName(key, prefix string) (name, attr string, ok bool) {
	var rest string
	switch {
	case strings.HasPrefix(key, prefix):
		rest = key[len(prefix):]
	default:
		i := strings.Index(key, "."+prefix)
		if i < 0 {
			return "", "", false
		}
		rest = key[i+1+len(prefix):]
	}

	name, attr, _ = strings.Cut(rest, ".")
	if name == "" {
		return "", "", false
	}
	return name, attr, true
}

func describe(src discovery.Source) string {
	if s, ok := src.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", src)
}

// DiscoveryError reports categories whose device list could not be read.
type DiscoveryError struct {
	Source     string
	Categories []device.Category
	Err        error // all underlying errors, joined
}

func (e *DiscoveryError) add(cat device.Category, err error) {
	e.Categories = append(e.Categories, cat)
	e.Err = errors.Join(e.Err, fmt.Errorf("%s: %w", cat, err))
}

// Error implements the error interface
func (e *DiscoveryError) Error() string {
	names := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		names[i] = c.String()
	}
	return fmt.Sprintf("discovery from %s failed for %s: %v", e.Source, strings.Join(names, ", "), e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// Complete reports whether every category failed, leaving no catalog
func (e *DiscoveryError) Complete() bool {
	return len(e.Categories) == len(device.Categories)
}
