package logsave

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"extracted serial", "●リビジョンインフォ\n●シリアルナンバー：AB12345678\n", "AB12345678.txt"},
		{"first serial wins", "●シリアルナンバー：AB12345678●シリアルナンバー：CD87654321", "AB12345678.txt"},
		{"raw device line is not enough", "Serial Number: AB12345678", DefaultName},
		{"short serial", "●シリアルナンバー：AB123", DefaultName},
		{"no serial", "[STX]QR TEST[ETX]", DefaultName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Filename(tt.text))
		})
	}
}

func TestSave(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	text := "●シリアルナンバー：AB12345678\n●17W設定値一致しました\n"

	path, err := Save(fs, "logs", text)
	require.NoError(t, err)
	assert.Equal(t, "logs/AB12345678.txt", path)

	got, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, text, string(got))

	// A second save for the same device replaces the file.
	_, err = Save(fs, "logs", "●シリアルナンバー：AB12345678\n")
	require.NoError(t, err)
	got, err = afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "●シリアルナンバー：AB12345678\n", string(got))
}

func TestSaveDefaultDir(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	path, err := Save(fs, "", "data")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, path)

	ok, err := afero.Exists(fs, DefaultName)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSaveNothing(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	for _, text := range []string{"", " \n\t"} {
		_, err := Save(fs, ".", text)
		assert.ErrorIs(t, err, ErrNothingToSave)
	}
	assert.Equal(t, "保存するデータがありません", ErrNothingToSave.Error())
}
