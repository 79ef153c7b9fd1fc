// Package variant holds the per-device configuration the engine consumes by
// key: line speeds, command payloads, expected responses and barcode tables.
package variant

import (
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/allbin/scanprov/internal/codec"
	"github.com/allbin/scanprov/serial"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
)

//go:embed variants.toml
var defaultTable []byte

var ErrUnknownVariant = errors.New("unknown variant")

// Format is one expected barcode encoding. Prefix and suffix are in token
// notation because they are compared against rendered stream text.
type Format struct {
	ID     string `toml:"id" validate:"required"`
	Prefix string `toml:"prefix"`
	Data   string `toml:"data" validate:"required"`
	Suffix string `toml:"suffix" validate:"required"`
}

// Framed is the full text a correctly framed read of this format renders to.
func (f Format) Framed() string {
	return f.Prefix + f.Data + f.Suffix
}

// Descriptor is the resolved configuration of one variant.
type Descriptor struct {
	ID           string
	BaudRate     int
	NeedsReopen  bool
	WakePayload  []byte
	WritePayload []byte
	// VerifyPayload queries the settings WritePayload sets.
	VerifyPayload  []byte
	ExpectedVerify string
	Formats        []Format
	Required       []string

	WriteSettle  time.Duration
	VerifySettle time.Duration
	WritePace    time.Duration
	VerifyPace   time.Duration
}

// Format returns the format with the given id.
func (d *Descriptor) Format(id string) (Format, bool) {
	for _, f := range d.Formats {
		if f.ID == id {
			return f, true
		}
	}
	return Format{}, false
}

// Registry maps variant ids to descriptors, in file order.
type Registry struct {
	InitialBaud      int
	RevisionCommand  []byte
	PartialReference string

	order []string
	byID  map[string]*Descriptor
}

// Duration decodes TOML strings such as "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type tableFile struct {
	InitialBaud      int         `toml:"initial_baud" validate:"required"`
	RevisionCommand  string      `toml:"revision_command" validate:"required"`
	PartialReference string      `toml:"partial_reference" validate:"required"`
	Variants         []entryFile `toml:"variant" validate:"required,min=1,dive"`
}

type entryFile struct {
	ID           string   `toml:"id" validate:"required"`
	Baud         int      `toml:"baud"`
	NeedsReopen  bool     `toml:"needs_reopen"`
	Wake         string   `toml:"wake" validate:"required_if=NeedsReopen true"`
	Write        string   `toml:"write" validate:"required"`
	Verify       string   `toml:"verify" validate:"required"`
	Expected     string   `toml:"expected" validate:"required"`
	WriteSettle  Duration `toml:"write_settle" validate:"gte=0"`
	VerifySettle Duration `toml:"verify_settle" validate:"gte=0"`
	WritePace    Duration `toml:"write_pace" validate:"gte=0"`
	VerifyPace   Duration `toml:"verify_pace" validate:"gte=0"`
	Formats      []Format `toml:"format" validate:"dive"`
	Required     []string `toml:"required"`
}

const (
	defaultSettle = 500 * time.Millisecond
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the registry built into the binary.
func Default() *Registry {
	r, err := Parse(defaultTable)
	if err != nil {
		panic(fmt.Sprintf("built-in variant table: %v", err))
	}
	return r
}

// LoadFile reads a registry from a TOML file.
func LoadFile(fs afero.Fs, path string) (*Registry, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variants file: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse decodes and validates a registry table.
func Parse(data []byte) (*Registry, error) {
	var tf tableFile
	if err := toml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse variants: %w", err)
	}
	if err := validate.Struct(tf); err != nil {
		return nil, fmt.Errorf("invalid variants: %w", err)
	}
	if !serial.ValidBaudRate(tf.InitialBaud) {
		return nil, fmt.Errorf("initial_baud %d: %w", tf.InitialBaud, serial.ErrInvalidBaudRate)
	}

	r := &Registry{
		InitialBaud:      tf.InitialBaud,
		RevisionCommand:  codec.Expand(tf.RevisionCommand),
		PartialReference: tf.PartialReference,
		byID:             make(map[string]*Descriptor, len(tf.Variants)),
	}

	for _, e := range tf.Variants {
		if _, dup := r.byID[e.ID]; dup {
			return nil, fmt.Errorf("variant %s declared twice", e.ID)
		}
		d, err := e.descriptor(tf.InitialBaud)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", e.ID, err)
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}

	if _, ok := r.byID[r.PartialReference]; !ok {
		return nil, fmt.Errorf("partial_reference %s: %w", r.PartialReference, ErrUnknownVariant)
	}
	return r, nil
}

func (e entryFile) descriptor(initialBaud int) (*Descriptor, error) {
	baud := e.Baud
	if baud == 0 {
		baud = initialBaud
	}
	if !serial.ValidBaudRate(baud) {
		return nil, fmt.Errorf("baud %d: %w", baud, serial.ErrInvalidBaudRate)
	}
	if !e.NeedsReopen && baud != initialBaud {
		return nil, fmt.Errorf("baud %d differs from initial %d but needs_reopen is false", baud, initialBaud)
	}

	d := &Descriptor{
		ID:             e.ID,
		BaudRate:       baud,
		NeedsReopen:    e.NeedsReopen,
		WritePayload:   codec.Expand(e.Write),
		VerifyPayload:  codec.Expand(e.Verify),
		ExpectedVerify: e.Expected,
		Formats:        e.Formats,
		WriteSettle:    orDefault(e.WriteSettle, defaultSettle),
		VerifySettle:   orDefault(e.VerifySettle, defaultSettle),
		WritePace:      time.Duration(e.WritePace),
		VerifyPace:     time.Duration(e.VerifyPace),
	}
	if e.NeedsReopen {
		d.WakePayload = codec.Expand(e.Wake)
	}

	seen := make(map[string]bool, len(e.Formats))
	for _, f := range e.Formats {
		if seen[f.ID] {
			return nil, fmt.Errorf("format %s declared twice", f.ID)
		}
		seen[f.ID] = true
	}

	if len(e.Required) == 0 {
		for _, f := range e.Formats {
			d.Required = append(d.Required, f.ID)
		}
	} else {
		for _, id := range e.Required {
			if !seen[id] {
				return nil, fmt.Errorf("required format %s is not declared", id)
			}
		}
		d.Required = e.Required
	}
	return d, nil
}

func orDefault(d Duration, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return time.Duration(d)
}

// Lookup resolves a variant id.
func (r *Registry) Lookup(id string) (*Descriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, id)
	}
	return d, nil
}

// IDs lists the variant ids in declaration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Reference returns the formats used for payload-only partial matches.
func (r *Registry) Reference() []Format {
	return r.byID[r.PartialReference].Formats
}
