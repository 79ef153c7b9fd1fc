package barcode

import (
	"testing"

	"github.com/allbin/scanprov/internal/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newEngine() *Engine {
	return NewEngine(variant.Default())
}

func TestLocate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		found   bool
		grammar string
		framed  string
		payload string
	}{
		{"empty", "", false, "", "", ""},
		{"plain text", "●16J設定書き込み開始\n", false, "", "", ""},
		{"stx etx", "[STX]QR TEST[ETX]", true, "stx-etx", "[STX]QR TEST[ETX]", "QR TEST"},
		{"cr ht", "DM TEST[CR][HT]", true, "cr-ht", "DM TEST[CR][HT]", "DM TEST"},
		{"stx cr", "[STX]CODE39[CR]", true, "stx-cr", "[STX]CODE39[CR]", "CODE39"},
		{
			name:    "last of one grammar",
			text:    "[STX]QR TEST[ETX]\n[STX]PDF417 TEST[ETX]\n",
			found:   true,
			grammar: "stx-etx",
			framed:  "[STX]PDF417 TEST[ETX]",
			payload: "PDF417 TEST",
		},
		{
			name:    "later grammar wins over later text",
			text:    "[STX]012345[CR]\n[STX]QR TEST[ETX]\n",
			found:   true,
			grammar: "stx-cr",
			framed:  "[STX]012345[CR]",
			payload: "012345",
		},
		{
			name:    "cr ht match spans from line start",
			text:    "noise QR TEST[CR][HT]",
			found:   true,
			grammar: "cr-ht",
			framed:  "noise QR TEST[CR][HT]",
			payload: "noise QR TEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, ok := Locate(tt.text)
			require.Equal(t, tt.found, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.grammar, m.Grammar)
			assert.Equal(t, tt.framed, m.Framed)
			assert.Equal(t, tt.payload, m.Payload)
		})
	}
}

func TestValidateOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		variant string
		text    string
		outcome Outcome
		format  string
		message string
	}{
		{"matched 17W", "17W", "[STX]QR TEST[ETX]", MatchedFormat, "QR-17W", "\n●QR-17W読み取りOK\n"},
		{"matched 16J", "16J", "\nPDF417 TEST[CR][HT]", MatchedFormat, "PDF417-16J", "\n●PDF417-16J読み取りOK\n"},
		{"matched 16C", "16C", "[STX]12345[CR]", MatchedFormat, "Codabar-16C", "\n●Codabar-16C読み取りOK\n"},
		{"partial framing", "17W", "QR TEST[CR][HT]", PartialMatch, "QR-16J", "●QR-16J読み取りNG\n"},
		{"partial on 16C", "16C", "[STX]DM TEST[ETX]", PartialMatch, "DataMatrix-16J", "●DataMatrix-16J読み取りNG\n"},
		{"box serial", "17W", "[STX]AB12345678[ETX]", Suppressed, "", ""},
		{"lowercase serial", "17W", "[STX]ab12345678[ETX]", NoMatch, "", "●バーコード読み取りNG\n"},
		{"unknown payload", "15C", "[STX]hello[ETX]", NoMatch, "", "●バーコード読み取りNG\n"},
		{"nothing", "16V", "●16V設定値一致しました\n", NoBarcodeFound, "", "●バーコードデータが見つかりません\n"},
	}

	e := newEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := e.Validate(tt.text, tt.variant, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, r.Outcome)
			assert.Equal(t, tt.format, r.FormatID)
			assert.Equal(t, tt.message, r.Message())
		})
	}
}

func TestValidateLastMatchWins(t *testing.T) {
	t.Parallel()

	scanned := NewSet()
	text := "[STX]QR TEST[ETX]\r\n[STX]PDF417 TEST[ETX]\r\n"
	r, err := newEngine().Validate(text, "17W", scanned)
	require.NoError(t, err)
	assert.Equal(t, MatchedFormat, r.Outcome)
	assert.Equal(t, "PDF417-17W", r.FormatID)
	assert.Equal(t, []string{"PDF417-17W"}, scanned.IDs())
}

func TestValidateRecordsScanIdempotently(t *testing.T) {
	t.Parallel()

	e := newEngine()
	scanned := NewSet()
	for range 3 {
		r, err := e.Validate("[STX]QR TEST[ETX]", "17W", scanned)
		require.NoError(t, err)
		assert.Equal(t, MatchedFormat, r.Outcome)
	}
	assert.Equal(t, 1, scanned.Len())
}

func TestValidateDoesNotRecordMisses(t *testing.T) {
	t.Parallel()

	scanned := NewSet()
	_, err := newEngine().Validate("QR TEST[CR][HT]", "17W", scanned)
	require.NoError(t, err)
	assert.Zero(t, scanned.Len())
}

func TestValidatePartialMatchBeforeSuppression(t *testing.T) {
	t.Parallel()

	reg, err := variant.Parse([]byte(`
initial_baud = 115200
revision_command = "[SYN]M[CR]REVINF."
partial_reference = "REF"

[[variant]]
id = "REF"
write = "[SYN]M[CR]W."
verify = "[SYN]M[CR]V."
expected = "V[ACK]."

  [[variant.format]]
  id = "SERIAL-REF"
  prefix = "[STX]"
  data = "AB12345678"
  suffix = "[CR]"

[[variant]]
id = "OTHER"
write = "[SYN]M[CR]W."
verify = "[SYN]M[CR]V."
expected = "V[ACK]."
`))
	require.NoError(t, err)
	e := NewEngine(reg)

	res, err := e.Validate("[STX]AB12345678[ETX]", "OTHER", nil)
	require.NoError(t, err)
	assert.Equal(t, PartialMatch, res.Outcome)
	assert.Equal(t, "SERIAL-REF", res.FormatID)

	res, err = e.Validate("[STX]ZZ99999999[ETX]", "OTHER", nil)
	require.NoError(t, err)
	assert.Equal(t, Suppressed, res.Outcome)
}

func TestValidateUnknownVariant(t *testing.T) {
	t.Parallel()

	_, err := newEngine().Validate("[STX]QR TEST[ETX]", "00X", nil)
	assert.ErrorIs(t, err, variant.ErrUnknownVariant)

	_, err = newEngine().CheckCompleteness("00X", nil)
	assert.ErrorIs(t, err, variant.ErrUnknownVariant)
}

func TestEveryFormatValidates(t *testing.T) {
	t.Parallel()

	reg := variant.Default()
	e := NewEngine(reg)
	for _, id := range reg.IDs() {
		d, err := reg.Lookup(id)
		require.NoError(t, err)
		for _, f := range d.Formats {
			r, err := e.Validate(f.Framed(), id, nil)
			require.NoError(t, err)
			assert.Equal(t, MatchedFormat, r.Outcome, f.ID)
			assert.Equal(t, f.ID, r.FormatID)
		}
	}
}

func TestValidateIgnoresPrecedingText(t *testing.T) {
	t.Parallel()

	e := newEngine()
	rapid.Check(t, func(t *rapid.T) {
		noise := rapid.StringMatching(`[a-zA-Z0-9 ●.]{0,40}`).Draw(t, "noise")
		r, err := e.Validate(noise+"\n[STX]MaxiCode TEST[ETX]", "17W", nil)
		if err != nil {
			t.Fatal(err)
		}
		if r.Outcome != MatchedFormat || r.FormatID != "MaxiCode-17W" {
			t.Fatalf("got %v %q", r.Outcome, r.FormatID)
		}
	})
}

func TestCheckCompleteness(t *testing.T) {
	t.Parallel()

	e := newEngine()
	scanned := NewSet()
	scanned.Add("QR-17W")

	c, err := e.CheckCompleteness("17W", scanned)
	require.NoError(t, err)
	assert.False(t, c.All())
	assert.Equal(t, 11, c.Required)
	require.Len(t, c.Missing, 10)
	assert.NotContains(t, c.Missing, "QR-17W")
	assert.Equal(t, "UPCA-17W", c.Missing[0])
	assert.Contains(t, c.Message(), "●PDF417-17Wを読んでいません\n")
}

func TestCheckCompletenessAll(t *testing.T) {
	t.Parallel()

	reg := variant.Default()
	e := NewEngine(reg)
	d, err := reg.Lookup("16J")
	require.NoError(t, err)

	scanned := NewSet()
	for _, f := range d.Formats {
		_, err := e.Validate(f.Framed(), "16J", scanned)
		require.NoError(t, err)
	}

	c, err := e.CheckCompleteness("16J", scanned)
	require.NoError(t, err)
	assert.True(t, c.All())
	assert.Equal(t, "●4種読み取りOK\n", c.Message())
}

func TestSet(t *testing.T) {
	t.Parallel()

	var s Set
	assert.True(t, s.Add("b"))
	assert.True(t, s.Add("a"))
	assert.False(t, s.Add("b"))
	assert.Equal(t, []string{"b", "a"}, s.IDs())
	assert.True(t, s.Has("a"))

	s.Reset()
	assert.Zero(t, s.Len())
	assert.False(t, s.Has("a"))
	assert.True(t, s.Add("a"))
}
