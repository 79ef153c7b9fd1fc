package variant

import (
	"strings"
	"testing"
	"time"

	"github.com/allbin/scanprov/serial"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	t.Parallel()

	r := Default()
	assert.Equal(t, []string{"17W", "16J", "15C", "16C", "16V"}, r.IDs())
	assert.Equal(t, serial.DefaultBaudRate, r.InitialBaud)
	assert.Equal(t, []byte{0x16, 'M', 0x0d, 'R', 'E', 'V', 'I', 'N', 'F', '.'}, r.RevisionCommand)
	assert.Equal(t, "16J", r.PartialReference)
}

func TestDefaultVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id          string
		baud        int
		reopen      bool
		writeSettle time.Duration
		writePace   time.Duration
		verifyPace  time.Duration
	}{
		{"17W", 115200, false, 500 * time.Millisecond, time.Second, 800 * time.Millisecond},
		{"16J", 38400, true, 800 * time.Millisecond, 1200 * time.Millisecond, time.Second},
		{"15C", 57600, true, 500 * time.Millisecond, 1200 * time.Millisecond, time.Second},
		{"16C", 115200, false, 500 * time.Millisecond, time.Second, 800 * time.Millisecond},
		{"16V", 57600, true, 500 * time.Millisecond, 1200 * time.Millisecond, time.Second},
	}

	r := Default()
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			d, err := r.Lookup(tt.id)
			require.NoError(t, err)

			assert.Equal(t, tt.baud, d.BaudRate)
			assert.Equal(t, tt.reopen, d.NeedsReopen)
			assert.Equal(t, tt.writeSettle, d.WriteSettle)
			assert.Equal(t, 500*time.Millisecond, d.VerifySettle)
			assert.Equal(t, tt.writePace, d.WritePace)
			assert.Equal(t, tt.verifyPace, d.VerifyPace)

			if tt.reopen {
				require.NotEmpty(t, d.WakePayload)
				assert.Equal(t, byte(0x16), d.WakePayload[0])
			} else {
				assert.Nil(t, d.WakePayload)
			}

			assert.Equal(t, byte(0x16), d.WritePayload[0])
			assert.Equal(t, byte('.'), d.VerifyPayload[len(d.VerifyPayload)-1])
			assert.True(t, strings.HasSuffix(d.ExpectedVerify, "[ACK]."))
			assert.Len(t, d.Required, len(d.Formats))
		})
	}
}

func TestWakePayloads(t *testing.T) {
	t.Parallel()

	r := Default()
	j, err := r.Lookup("16J")
	require.NoError(t, err)
	assert.Equal(t, "\x16M\r232BAD7..", string(j.WakePayload))

	c, err := r.Lookup("15C")
	require.NoError(t, err)
	v, err := r.Lookup("16V")
	require.NoError(t, err)
	assert.Equal(t, "\x16M\r232BAD8..", string(c.WakePayload))
	assert.Equal(t, c.WakePayload, v.WakePayload)
}

func Test17WFormats(t *testing.T) {
	t.Parallel()

	d, err := Default().Lookup("17W")
	require.NoError(t, err)
	require.Len(t, d.Formats, 11)

	f, ok := d.Format("QR-17W")
	require.True(t, ok)
	assert.Equal(t, "[STX]QR TEST[ETX]", f.Framed())

	_, ok = d.Format("QR-16J")
	assert.False(t, ok)
}

func TestLookupUnknown(t *testing.T) {
	t.Parallel()

	_, err := Default().Lookup("99X")
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestIDsIsACopy(t *testing.T) {
	t.Parallel()

	r := Default()
	ids := r.IDs()
	ids[0] = "changed"
	assert.Equal(t, "17W", r.IDs()[0])
}

const minimalTable = `
initial_baud = 115200
revision_command = "[SYN]M[CR]REVINF."
partial_reference = "A"

[[variant]]
id = "A"
write = "[SYN]M[CR]W."
verify = "[SYN]M[CR]V?."
expected = "V1[ACK]."

  [[variant.format]]
  id = "one"
  prefix = "[STX]"
  data = "1"
  suffix = "[ETX]"

  [[variant.format]]
  id = "two"
  data = "2"
  suffix = "[CR][HT]"
`

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	r, err := Parse([]byte(minimalTable))
	require.NoError(t, err)

	d, err := r.Lookup("A")
	require.NoError(t, err)
	assert.Equal(t, 115200, d.BaudRate)
	assert.Equal(t, defaultSettle, d.WriteSettle)
	assert.Equal(t, defaultSettle, d.VerifySettle)
	assert.Equal(t, []string{"one", "two"}, d.Required)
	assert.Equal(t, "2[CR][HT]", d.Formats[1].Framed())
	assert.Len(t, r.Reference(), 2)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "bad toml",
			mutate:  func(s string) string { return s + "\n[[[" },
			wantErr: "failed to parse",
		},
		{
			name: "reopen without wake",
			mutate: func(s string) string {
				return strings.Replace(s, `id = "A"`, "id = \"A\"\nneeds_reopen = true\nbaud = 38400", 1)
			},
			wantErr: "Wake",
		},
		{
			name: "baud change without reopen",
			mutate: func(s string) string {
				return strings.Replace(s, `id = "A"`, "id = \"A\"\nbaud = 38400", 1)
			},
			wantErr: "needs_reopen is false",
		},
		{
			name: "unsupported baud",
			mutate: func(s string) string {
				return strings.Replace(s, `id = "A"`, "id = \"A\"\nbaud = 12345", 1)
			},
			wantErr: "invalid baud rate",
		},
		{
			name: "unknown reference",
			mutate: func(s string) string {
				return strings.Replace(s, `partial_reference = "A"`, `partial_reference = "B"`, 1)
			},
			wantErr: "unknown variant",
		},
		{
			name: "duplicate format",
			mutate: func(s string) string {
				return strings.Replace(s, `id = "two"`, `id = "one"`, 1)
			},
			wantErr: "declared twice",
		},
		{
			name: "undeclared required format",
			mutate: func(s string) string {
				return strings.Replace(s, `expected = "V1[ACK]."`, "expected = \"V1[ACK].\"\nrequired = [\"three\"]", 1)
			},
			wantErr: "not declared",
		},
		{
			name: "bad duration",
			mutate: func(s string) string {
				return strings.Replace(s, `expected = "V1[ACK]."`, "expected = \"V1[ACK].\"\nwrite_settle = \"soon\"", 1)
			},
			wantErr: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.mutate(minimalTable)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseDuplicateVariant(t *testing.T) {
	t.Parallel()

	dup := minimalTable + `
[[variant]]
id = "A"
write = "W"
verify = "V"
expected = "X"
`
	_, err := Parse([]byte(dup))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared twice")
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/scanprov/variants.toml", []byte(minimalTable), 0o644))

	r, err := LoadFile(fs, "/etc/scanprov/variants.toml")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, r.IDs())

	_, err = LoadFile(fs, "/missing.toml")
	assert.Error(t, err)
}
