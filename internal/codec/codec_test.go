package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"pgregory.net/rapid"
)

func TestVisualize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text untouched", in: "QR TEST", want: "QR TEST"},
		{name: "framed 17W payload", in: "\x02QR TEST\x03", want: "[STX]QR TEST[ETX]"},
		{name: "CR HT suffix", in: "DM TEST\r\t", want: "DM TEST[CR][HT]"},
		{name: "form feed is NP", in: "\x0c", want: "[NP]"},
		{name: "DEL", in: "a\x7fb", want: "a[DEL]b"},
		{name: "NUL and US bounds", in: "\x00\x1f", want: "[NUL][US]"},
		{name: "ack after setting", in: "232CTS2\x06;", want: "232CTS2[ACK];"},
		{name: "multibyte text kept", in: "設定\r\n", want: "設定[CR][LF]"},
		{name: "empty", in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Visualize(tt.in))
		})
	}
}

func TestTokenAndLookup(t *testing.T) {
	t.Parallel()

	tok, ok := Token(0x0d)
	require.True(t, ok)
	assert.Equal(t, "[CR]", tok)

	_, ok = Token('A')
	assert.False(t, ok)

	b, ok := Lookup("[SYN]")
	require.True(t, ok)
	assert.Equal(t, byte(0x16), b)

	b, ok = Lookup("DEL")
	require.True(t, ok)
	assert.Equal(t, byte(0x7f), b)

	_, ok = Lookup("[FF]")
	assert.False(t, ok, "form feed is named NP")
}

func TestExpand(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]byte{0x16, 0x4d, 0x0d, 0x32, 0x33, 0x32, 0x42, 0x41, 0x44, 0x37, 0x2e, 0x2e},
		Expand("[SYN]M[CR]232BAD7.."))
	assert.Equal(t,
		[]byte{0x16, 0x4d, 0x0d, 0x52, 0x45, 0x56, 0x49, 0x4e, 0x46, 0x2e},
		Expand("[SYN]M[CR]REVINF."))
	assert.Equal(t, []byte("[NOPE]x"), Expand("[NOPE]x"))
	assert.Equal(t, []byte("a[b"), Expand("a[b"))
}

func TestStripControls(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "17W0123456", StripControls("\x0217W0123456\r\n"))
	assert.Equal(t, "", StripControls("\r\n\t"))
}

func TestVisualizeRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(
			rapid.ByteRange(0, 0x7f).Filter(func(b byte) bool { return b != '[' }),
			0, 64,
		).Draw(t, "raw")

		visible := Visualize(string(raw))
		for i := 0; i < len(visible); i++ {
			if IsControl(visible[i]) {
				t.Fatalf("control byte 0x%02x left in %q", visible[i], visible)
			}
		}
		if got := Expand(visible); string(got) != string(raw) {
			t.Fatalf("Expand(Visualize(%q)) = %q", raw, got)
		}
	})
}

func TestDecoder(t *testing.T) {
	t.Parallel()

	utf8, err := NewDecoder("")
	require.NoError(t, err)
	assert.Equal(t, "utf-8", utf8.Name())
	assert.Equal(t, "設定[CR]", utf8.Render([]byte("設定\r")))
	assert.Equal(t, "\uFFFD", utf8.Decode([]byte{0xff}))

	sjis, err := NewDecoder("Shift_JIS")
	require.NoError(t, err)
	encoded, err := japanese.ShiftJIS.NewEncoder().String("テスト")
	require.NoError(t, err)
	assert.Equal(t, "テスト[ETX]", sjis.Render([]byte(encoded+"\x03")))

	_, err = NewDecoder("no-such-encoding")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no-such-encoding"))
}
