package codec

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// Decoder turns raw chunks into text. Each chunk is decoded on its own, so
// a character split across two reads decodes as replacement characters.
type Decoder struct {
	name string
	enc  encoding.Encoding
}

// NewDecoder returns a decoder for the named encoding. An empty name
// means UTF-8.
func NewDecoder(name string) (*Decoder, error) {
	switch strings.ToLower(name) {
	case "", "utf-8", "utf8":
		return &Decoder{name: "utf-8", enc: unicode.UTF8}, nil
	case "shift_jis", "sjis", "shift-jis":
		return &Decoder{name: "shift_jis", enc: japanese.ShiftJIS}, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	canonical, _ := htmlindex.Name(enc)
	return &Decoder{name: canonical, enc: enc}, nil
}

// Name is the canonical encoding name.
func (d *Decoder) Name() string {
	return d.name
}

// Decode converts one chunk to UTF-8 text.
func (d *Decoder) Decode(chunk []byte) string {
	out, err := d.enc.NewDecoder().Bytes(chunk)
	if err != nil {
		return string(bytes.ToValidUTF8(chunk, []byte("\uFFFD")))
	}
	return string(out)
}

// Render decodes a chunk and makes its control bytes visible.
func (d *Decoder) Render(chunk []byte) string {
	return Visualize(d.Decode(chunk))
}
