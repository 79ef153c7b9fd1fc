package session

import (
	"fmt"

	"github.com/allbin/scanprov/internal/codec"
)

const boxSerialLen = 10

// BoxSerialResult compares a serial read from the box label with the one
// the device reported.
type BoxSerialResult struct {
	Box    string
	Device string
	Match  bool
}

type boxCheck struct {
	pending []rune
}

// ArmBoxSerialCheck starts collecting incoming text as a box label read.
// Every ten characters collected are compared with the device serial; the
// check disarms itself on the first match.
func (s *Session) ArmBoxSerialCheck() {
	s.mu.Lock()
	s.box = &boxCheck{}
	s.lastBox = nil
	s.mu.Unlock()
	s.status("箱シリアルを読み取ってください")
}

func (s *Session) DisarmBoxSerialCheck() {
	s.mu.Lock()
	s.box = nil
	s.mu.Unlock()
}

// LastBoxSerial returns the most recent comparison since arming.
func (s *Session) LastBoxSerial() (BoxSerialResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastBox == nil {
		return BoxSerialResult{}, false
	}
	return *s.lastBox, true
}

func (s *Session) feedBoxSerial(text string) {
	s.mu.Lock()
	if s.box == nil {
		s.mu.Unlock()
		return
	}
	cleaned := codec.StripControls(text)
	if cleaned == "" {
		s.mu.Unlock()
		return
	}
	s.box.pending = append(s.box.pending, []rune(cleaned)...)
	if len(s.box.pending) < boxSerialLen {
		s.mu.Unlock()
		return
	}

	res := BoxSerialResult{
		Box:    string(s.box.pending[:boxSerialLen]),
		Device: s.serial,
	}
	res.Match = res.Device != "" && res.Box == res.Device
	s.box.pending = nil
	s.lastBox = &res
	if res.Match {
		s.box = nil
	}
	s.mu.Unlock()

	s.log.Info().Str("box", res.Box).Str("device", res.Device).Bool("match", res.Match).Msg("box serial read")
	switch {
	case res.Match:
		s.status(fmt.Sprintf("箱シリアル %s: 一致", res.Box))
		s.append("\n●箱シリアル一致\n", SeveritySuccess)
	case res.Device == "":
		s.status(fmt.Sprintf("箱シリアル %s: シリアルナンバー未取得", res.Box))
	default:
		s.status(fmt.Sprintf("箱シリアル %s: 不一致 (%s)", res.Box, res.Device))
	}
}
