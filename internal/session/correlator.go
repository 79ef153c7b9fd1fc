package session

import (
	"context"
	"strings"
	"time"
)

// Verdict is the outcome of a verification round.
type Verdict int

const (
	Mismatch Verdict = iota
	Match
)

func (v Verdict) String() string {
	if v == Match {
		return "match"
	}
	return "mismatch"
}

// Request is one command/response round. The markers are written into the
// buffer, not to the device.
type Request struct {
	Payload     []byte
	StartMarker string
	EndMarker   string
	Expected    string
	Settle      time.Duration
}

// Response carries the verdict and the window it was computed from.
type Response struct {
	Verdict Verdict
	Window  string
}

// SendAndVerify writes the payload, brackets the device's reply with the
// request markers and compares the text between them with Expected. Only a
// failed write is an error; a mismatch is a normal verdict.
func (s *Session) SendAndVerify(ctx context.Context, req Request) (Response, error) {
	if err := writeChannel(ctx, s.channel, req.Payload); err != nil {
		return Response{}, err
	}
	s.append(req.StartMarker+"\n", SeverityInfo)

	if err := sleep(ctx, s.opts.clock, req.Settle); err != nil {
		return Response{}, err
	}
	s.append("\n"+req.EndMarker+"\n", SeverityInfo)

	window, ok := Window(s.buffer.String(), req.StartMarker, req.EndMarker)
	resp := Response{Verdict: Mismatch, Window: window}
	if ok && window == req.Expected {
		resp.Verdict = Match
	}
	s.log.Debug().
		Stringer("verdict", resp.Verdict).
		Str("window", window).
		Msg("verification window")
	return resp, nil
}

// Window returns the text between the last start marker and the last end
// marker, trimmed. Earlier rounds in the same text are ignored.
func Window(text, start, end string) (string, bool) {
	si := strings.LastIndex(text, start)
	ei := strings.LastIndex(text, end)
	if si < 0 || ei < 0 || ei < si+len(start) {
		return "", false
	}
	return strings.TrimSpace(text[si+len(start) : ei]), true
}
