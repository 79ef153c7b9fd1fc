// Package logsave writes a session buffer to disk under a name derived
// from the device serial it contains.
package logsave

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// DefaultName is used when the text carries no device serial.
const DefaultName = "ReceivedData.txt"

// ErrNothingToSave is returned for a buffer that is empty after trimming.
var ErrNothingToSave = errors.New("保存するデータがありません")

var serialLine = regexp.MustCompile(`シリアルナンバー：([A-Z0-9]{10})`)

// Filename returns "{serial}.txt" for the first extracted serial line in
// text, or DefaultName.
func Filename(text string) string {
	if m := serialLine.FindStringSubmatch(text); m != nil {
		return m[1] + ".txt"
	}
	return DefaultName
}

// Save writes text to dir/Filename(text), replacing an existing file, and
// returns the path written.
func Save(fs afero.Fs, dir, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrNothingToSave
	}
	if dir == "" {
		dir = "."
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, Filename(text))
	if err := afero.WriteFile(fs, path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
