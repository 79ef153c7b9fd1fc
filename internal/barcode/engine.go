// Package barcode locates framed barcode reads in rendered stream text and
// checks them against a variant's format table.
package barcode

import (
	"fmt"
	"regexp"

	"github.com/allbin/scanprov/internal/variant"
)

// Outcome is the verdict of a single validation. None of them is an error.
type Outcome int

const (
	NoBarcodeFound Outcome = iota
	MatchedFormat
	PartialMatch
	Suppressed
	NoMatch
)

func (o Outcome) String() string {
	switch o {
	case MatchedFormat:
		return "matched"
	case PartialMatch:
		return "partial"
	case Suppressed:
		return "suppressed"
	case NoMatch:
		return "no-match"
	default:
		return "not-found"
	}
}

// grammars are scanned in this order and the last match of the last
// grammar that matched is the one validated.
var grammars = []struct {
	name string
	re   *regexp.Regexp
}{
	{"stx-etx", regexp.MustCompile(`\[STX\](.*?)\[ETX\]`)},
	{"cr-ht", regexp.MustCompile(`(.*?)\[CR\]\[HT\]`)},
	{"stx-cr", regexp.MustCompile(`\[STX\](.*?)\[CR\]`)},
}

var boxSerial = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// Match is a framed read found in the text.
type Match struct {
	Grammar string
	Framed  string
	Payload string
}

// Locate returns the authoritative framed read in text, if any.
func Locate(text string) (Match, bool) {
	var last Match
	found := false
	for _, g := range grammars {
		for _, m := range g.re.FindAllStringSubmatch(text, -1) {
			last = Match{Grammar: g.name, Framed: m[0], Payload: m[1]}
			found = true
		}
	}
	return last, found
}

// Result describes one validation.
type Result struct {
	Outcome  Outcome
	FormatID string
	Match    Match
}

// Message is the operator line for the result. Suppressed results have none.
func (r Result) Message() string {
	switch r.Outcome {
	case MatchedFormat:
		return fmt.Sprintf("\n●%s読み取りOK\n", r.FormatID)
	case PartialMatch:
		return fmt.Sprintf("●%s読み取りNG\n", r.FormatID)
	case NoMatch:
		return "●バーコード読み取りNG\n"
	case NoBarcodeFound:
		return "●バーコードデータが見つかりません\n"
	default:
		return ""
	}
}

// Engine validates reads against a registry.
type Engine struct {
	registry *variant.Registry
}

func NewEngine(registry *variant.Registry) *Engine {
	return &Engine{registry: registry}
}

// Validate checks the latest framed read in text against the formats of
// variantID. An exact match is recorded in scanned, which may be nil.
func (e *Engine) Validate(text, variantID string, scanned *Set) (Result, error) {
	d, err := e.registry.Lookup(variantID)
	if err != nil {
		return Result{}, err
	}

	m, ok := Locate(text)
	if !ok {
		return Result{Outcome: NoBarcodeFound}, nil
	}

	for _, f := range d.Formats {
		if m.Framed == f.Framed() {
			if scanned != nil {
				scanned.Add(f.ID)
			}
			return Result{Outcome: MatchedFormat, FormatID: f.ID, Match: m}, nil
		}
	}

	// A reference payload is reported as a partial match even when it is
	// also serial-shaped; suppression only applies to unknown payloads.
	for _, f := range e.registry.Reference() {
		if m.Payload == f.Data {
			return Result{Outcome: PartialMatch, FormatID: f.ID, Match: m}, nil
		}
	}

	if boxSerial.MatchString(m.Payload) {
		return Result{Outcome: Suppressed, Match: m}, nil
	}
	return Result{Outcome: NoMatch, Match: m}, nil
}

// Completeness reports which required formats are still unscanned.
type Completeness struct {
	Required int
	Missing  []string
}

// All reports whether every required format was scanned.
func (c Completeness) All() bool {
	return len(c.Missing) == 0
}

// Message is the operator text for the report.
func (c Completeness) Message() string {
	if c.All() {
		return fmt.Sprintf("●%d種読み取りOK\n", c.Required)
	}
	var s string
	for _, id := range c.Missing {
		s += fmt.Sprintf("●%sを読んでいません\n", id)
	}
	return s
}

// CheckCompleteness compares scanned against the variant's required list.
func (e *Engine) CheckCompleteness(variantID string, scanned *Set) (Completeness, error) {
	d, err := e.registry.Lookup(variantID)
	if err != nil {
		return Completeness{}, err
	}

	c := Completeness{Required: len(d.Required)}
	for _, id := range d.Required {
		if scanned == nil || !scanned.Has(id) {
			c.Missing = append(c.Missing, id)
		}
	}
	return c, nil
}
