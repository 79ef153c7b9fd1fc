package session

import (
	"strings"

	"github.com/allbin/scanprov/internal/syncutil"
)

// Buffer is the session's accumulated decoded text. It only grows until
// Clear is called.
type Buffer struct {
	mu syncutil.RWMutex
	sb strings.Builder
}

func (b *Buffer) Append(s string) {
	b.mu.Lock()
	b.sb.WriteString(s)
	b.mu.Unlock()
}

func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sb.String()
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sb.Len()
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	b.sb.Reset()
	b.mu.Unlock()
}
