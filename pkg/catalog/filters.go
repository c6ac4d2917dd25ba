package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalidFilter is returned for unknown keys or out-of-range values.
var ErrInvalidFilter = errors.New("invalid filter")

// Filters is the set of search criteria. A zero value means "no search".
type Filters struct {
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Code      string `json:"code,omitempty" yaml:"code,omitempty"`
	Color     string `json:"color,omitempty" yaml:"color,omitempty"`
	Type      string `json:"type,omitempty" yaml:"type,omitempty"`
	Rarity    string `json:"rarity,omitempty" yaml:"rarity,omitempty"`
	Attribute string `json:"attribute,omitempty" yaml:"attribute,omitempty"`
	Family    string `json:"family,omitempty" yaml:"family,omitempty"`

	Cost    *int `json:"cost,omitempty" yaml:"cost,omitempty"`
	Power   *int `json:"power,omitempty" yaml:"power,omitempty"`
	Counter *int `json:"counter,omitempty" yaml:"counter,omitempty"`
}

// filterKeys lists the recognized keys in query order.
var filterKeys = []string{
	"name", "code", "color", "type", "rarity", "attribute", "family",
	"cost", "power", "counter",
}

// IsEmpty reports whether no criterion is set.
// Whitespace-only strings count as unset. A numeric criterion set to 0 is a
// real search (cost:0), not an unset field.
func (f Filters) IsEmpty() bool {
	for _, s := range f.stringFields() {
		if strings.TrimSpace(*s) != "" {
			return false
		}
	}
	return f.Cost == nil && f.Power == nil && f.Counter == nil
}

// Validate rejects negative numeric criteria.
func (f Filters) Validate() error {
	for key, v := range map[string]*int{"cost": f.Cost, "power": f.Power, "counter": f.Counter} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s must be >= 0 (got %d)", ErrInvalidFilter, key, *v)
		}
	}
	return nil
}

// Normalized returns a copy with surrounding whitespace trimmed.
func (f Filters) Normalized() Filters {
	out := f
	for _, s := range out.stringFields() {
		*s = strings.TrimSpace(*s)
	}
	return out
}

// Query encodes the set criteria as URL query parameters.
func (f Filters) Query() url.Values {
	q := url.Values{}
	n := f.Normalized()
	for _, key := range filterKeys {
		if v, ok := n.get(key); ok {
			q.Set(key, v)
		}
	}
	return q
}

// String renders the filters in the same syntax ParseFilters accepts.
func (f Filters) String() string {
	n := f.Normalized()
	parts := make([]string, 0, len(filterKeys))
	for _, key := range filterKeys {
		v, ok := n.get(key)
		if !ok {
			continue
		}
		if strings.ContainsAny(v, " \t\"") {
			v = quote(v)
		}
		parts = append(parts, key+":"+v)
	}
	return strings.Join(parts, " ")
}

// ParseFilters parses search input such as
//
//	luffy color:red cost:5 family:"Straw Hat Crew"
//
// Bare words are joined into the name criterion.
func ParseFilters(input string) (Filters, error) {
	var f Filters
	tokens, err := tokenize(input)
	if err != nil {
		return f, err
	}

	var nameWords []string
	for _, tok := range tokens {
		key, value, found := strings.Cut(tok, ":")
		if !found {
			nameWords = append(nameWords, tok)
			continue
		}
		if err := f.set(strings.ToLower(key), value); err != nil {
			return Filters{}, err
		}
	}

	if len(nameWords) > 0 {
		name := strings.Join(nameWords, " ")
		if f.Name != "" {
			name = f.Name + " " + name
		}
		f.Name = name
	}

	if err := f.Validate(); err != nil {
		return Filters{}, err
	}
	return f, nil
}

func (f *Filters) stringFields() []*string {
	return []*string{&f.Name, &f.Code, &f.Color, &f.Type, &f.Rarity, &f.Attribute, &f.Family}
}

func (f Filters) get(key string) (string, bool) {
	var s string
	var n *int
	switch key {
	case "name":
		s = f.Name
	case "code":
		s = f.Code
	case "color":
		s = f.Color
	case "type":
		s = f.Type
	case "rarity":
		s = f.Rarity
	case "attribute":
		s = f.Attribute
	case "family":
		s = f.Family
	case "cost":
		n = f.Cost
	case "power":
		n = f.Power
	case "counter":
		n = f.Counter
	}
	if n != nil {
		return strconv.Itoa(*n), true
	}
	return s, s != ""
}

func (f *Filters) set(key, value string) error {
	switch key {
	case "name":
		f.Name = value
	case "code":
		f.Code = value
	case "color":
		f.Color = value
	case "type":
		f.Type = value
	case "rarity":
		f.Rarity = value
	case "attribute":
		f.Attribute = value
	case "family":
		f.Family = value
	case "cost", "power", "counter":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number (got %q)", ErrInvalidFilter, key, value)
		}
		switch key {
		case "cost":
			f.Cost = &n
		case "power":
			f.Power = &n
		default:
			f.Counter = &n
		}
	default:
		return fmt.Errorf("%w: unknown key %q", ErrInvalidFilter, key)
	}
	return nil
}

// quote wraps v in double quotes, escaping quotes and backslashes.
func quote(v string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range v {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// tokenize splits on whitespace, keeping double-quoted runs together.
// Inside quotes a backslash escapes the next character.
func tokenize(input string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inQuote := false
	escaped := false
	hasToken := false

	for _, r := range input {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && inQuote:
			escaped = true
		case r == '"':
			inQuote = !inQuote
			hasToken = true
		case (r == ' ' || r == '\t') && !inQuote:
			if hasToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				hasToken = false
			}
		default:
			cur.WriteRune(r)
			hasToken = true
		}
	}
	if inQuote || escaped {
		return nil, fmt.Errorf("%w: unterminated quote", ErrInvalidFilter)
	}
	if hasToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// IntPtr is a convenience for building numeric criteria.
func IntPtr(n int) *int {
	return &n
}
