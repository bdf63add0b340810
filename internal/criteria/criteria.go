// Package criteria holds the user-editable screening filter.
//
// Every edit is bounds-checked before it is accepted. A rejected edit leaves
// the previously accepted value in place and is reported as the field's active
// validation failure until a later valid edit clears it.
package criteria

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/wonny/valuescreener/internal/contracts"
)

// Field names as sent on the wire
const (
	FieldIndexName = "index_name"
	FieldPEMax     = "pe_max"
	FieldPBMax     = "pb_max"
	FieldDEMax     = "de_max"
	FieldROEMin    = "roe_min"
)

// DefaultIndex is the index preselected on a fresh page
const DefaultIndex = "CAC 40 (France)"

// MaxIndexNameLen bounds the index name field
const MaxIndexNameLen = 100

// Criteria is the current filter state.
// ⭐ SSOT: 스크리닝 조건은 이 구조체만 사용
type Criteria struct {
	IndexName string  `yaml:"index_name" json:"index_name"`
	PEMax     float64 `yaml:"pe_max" json:"pe_max"`
	PBMax     float64 `yaml:"pb_max" json:"pb_max"`
	DEMax     float64 `yaml:"de_max" json:"de_max"`
	ROEMin    float64 `yaml:"roe_min" json:"roe_min"`
}

// Default returns the initial criteria of a screening page
func Default() Criteria {
	return Criteria{
		IndexName: DefaultIndex,
		PEMax:     15,
		PBMax:     1.5,
		DEMax:     100,
		ROEMin:    0.12,
	}
}

// Request converts the criteria into the POST /screening body
func (c Criteria) Request() contracts.ScreeningRequest {
	return contracts.ScreeningRequest{
		IndexName: c.IndexName,
		PEMax:     c.PEMax,
		PBMax:     c.PBMax,
		DEMax:     c.DEMax,
		ROEMin:    c.ROEMin,
	}
}

// FromRequest rebuilds criteria from a stored request (history replay)
func FromRequest(r contracts.ScreeningRequest) Criteria {
	return Criteria{
		IndexName: r.IndexName,
		PEMax:     r.PEMax,
		PBMax:     r.PBMax,
		DEMax:     r.DEMax,
		ROEMin:    r.ROEMin,
	}
}

// Hash returns a stable fingerprint of the criteria (canonical JSON)
func (c Criteria) Hash() string {
	b, _ := json.Marshal(c)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// Bounds is the inclusive range of a numeric field
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether v is inside the range
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// numericField describes one bounded numeric criterion
type numericField struct {
	name   string
	bounds Bounds
	get    func(*Criteria) float64
	set    func(*Criteria, float64)
}

// numericFields is the field registry, in form order
var numericFields = []numericField{
	{
		name:   FieldPEMax,
		bounds: Bounds{0, 1000},
		get:    func(c *Criteria) float64 { return c.PEMax },
		set:    func(c *Criteria, v float64) { c.PEMax = v },
	},
	{
		name:   FieldPBMax,
		bounds: Bounds{0, 100},
		get:    func(c *Criteria) float64 { return c.PBMax },
		set:    func(c *Criteria, v float64) { c.PBMax = v },
	},
	{
		name:   FieldDEMax,
		bounds: Bounds{0, 10000},
		get:    func(c *Criteria) float64 { return c.DEMax },
		set:    func(c *Criteria, v float64) { c.DEMax = v },
	},
	{
		name:   FieldROEMin,
		bounds: Bounds{-1, 10},
		get:    func(c *Criteria) float64 { return c.ROEMin },
		set:    func(c *Criteria, v float64) { c.ROEMin = v },
	},
}

// aliases maps alternative field names to canonical ones
var aliases = map[string]string{
	"debt_to_equity_max": FieldDEMax,
}

// CanonicalField resolves aliases; unknown names are returned unchanged
func CanonicalField(name string) string {
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}

// FieldBounds returns the bounds of a numeric field
func FieldBounds(name string) (Bounds, bool) {
	if f, ok := lookupNumeric(CanonicalField(name)); ok {
		return f.bounds, true
	}
	return Bounds{}, false
}

// Fields lists all field names in form order
func Fields() []string {
	names := []string{FieldIndexName}
	for _, f := range numericFields {
		names = append(names, f.name)
	}
	return names
}

func lookupNumeric(name string) (numericField, bool) {
	for _, f := range numericFields {
		if f.name == name {
			return f, true
		}
	}
	return numericField{}, false
}
