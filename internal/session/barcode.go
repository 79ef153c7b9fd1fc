package session

import (
	"github.com/allbin/scanprov/internal/barcode"
)

// ValidateBarcode checks the latest framed read in the buffer against the
// session variant and appends the verdict line.
func (s *Session) ValidateBarcode() (barcode.Result, error) {
	r, err := s.engine.Validate(s.buffer.String(), s.variant.ID, s.scanned)
	if err != nil {
		return r, err
	}

	if msg := r.Message(); msg != "" {
		sev := SeverityError
		if r.Outcome == barcode.MatchedFormat {
			sev = SeveritySuccess
		}
		s.append(msg, sev)
	}
	s.log.Debug().
		Stringer("outcome", r.Outcome).
		Str("format", r.FormatID).
		Str("framed", r.Match.Framed).
		Msg("barcode validated")
	return r, nil
}

// Completeness reports the required formats not scanned yet without
// touching the buffer.
func (s *Session) Completeness() (barcode.Completeness, error) {
	return s.engine.CheckCompleteness(s.variant.ID, s.scanned)
}

// CheckCompleteness appends which required formats are still unscanned.
func (s *Session) CheckCompleteness() (barcode.Completeness, error) {
	c, err := s.Completeness()
	if err != nil {
		return c, err
	}
	sev := SeveritySuccess
	if !c.All() {
		sev = SeverityError
	}
	s.append(c.Message(), sev)
	return c, nil
}
