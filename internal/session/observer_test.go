package session

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestObserversFanOut(t *testing.T) {
	t.Parallel()

	a, b := &recordingObserver{}, &recordingObserver{}
	obs := Observers{a, b}
	obs.Append("x", SeverityInfo)
	obs.Status("y")

	for _, r := range []*recordingObserver{a, b} {
		assert.Equal(t, []string{"x"}, r.appended)
		assert.Equal(t, []string{"y"}, r.Statuses())
	}
}

func TestLogObserverLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	obs := LogObserver{Logger: zerolog.New(&buf).Level(zerolog.InfoLevel)}

	obs.Append("[STX]QR[ETX]", SeverityData)
	assert.Empty(t, buf.String(), "device data is debug level")

	obs.Append("\n  \n", SeverityInfo)
	assert.Empty(t, buf.String())

	obs.Append("●17W設定値が正しくありません\n", SeverityError)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"severity":"error"`)
	assert.Contains(t, buf.String(), `"message":"●17W設定値が正しくありません"`)

	buf.Reset()
	obs.Status("切断しました: /dev/ttyUSB0")
	assert.Contains(t, buf.String(), `"severity":"status"`)
}

func TestWithObserverNil(t *testing.T) {
	t.Parallel()

	o := buildOptions([]Option{WithObserver(nil)})
	assert.IsType(t, nopObserver{}, o.observer)
}
