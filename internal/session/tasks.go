package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/allbin/scanprov/internal/codec"
)

// Pauses between the steps of a provisioning run that precede the write.
const (
	revisionSettle = 500 * time.Millisecond
	extractSettle  = 500 * time.Millisecond
)

var (
	firmwarePattern = regexp.MustCompile(`Software Part Number: ([A-Z0-9]{11})`)
	serialPattern   = regexp.MustCompile(`Serial Number: ([A-Z0-9]{10})`)
)

// WriteConfig sends the variant's configuration payload and marks the
// start and end of the write in the buffer.
func (s *Session) WriteConfig(ctx context.Context) error {
	d := s.variant
	if err := writeChannel(ctx, s.channel, d.WritePayload); err != nil {
		s.status(fmt.Sprintf("バイナリ送信エラー: %v", err))
		return err
	}
	s.append(fmt.Sprintf("●%s設定書き込み開始\n", d.ID), SeverityInfo)

	if err := sleep(ctx, s.opts.clock, d.WriteSettle); err != nil {
		return err
	}
	s.append(fmt.Sprintf("\n●%s設定書き込み完了\n", d.ID), SeverityInfo)
	s.log.Info().Msg("configuration written")
	return nil
}

// Verify queries the device settings and compares the reply with the
// variant's expected response.
func (s *Session) Verify(ctx context.Context) (Verdict, error) {
	d := s.variant
	resp, err := s.SendAndVerify(ctx, Request{
		Payload:     d.VerifyPayload,
		StartMarker: fmt.Sprintf("●%s設定確認開始", d.ID),
		EndMarker:   fmt.Sprintf("●%s設定値読み取り完了", d.ID),
		Expected:    d.ExpectedVerify,
		Settle:      d.VerifySettle,
	})
	if err != nil {
		s.status(fmt.Sprintf("バイナリ送信エラー: %v", err))
		return Mismatch, err
	}

	if resp.Verdict == Match {
		s.append(fmt.Sprintf("●%s設定値一致しました\n", d.ID), SeveritySuccess)
	} else {
		s.append(fmt.Sprintf("●%s設定値が正しくありません\n", d.ID), SeverityError)
	}
	s.log.Info().Stringer("verdict", resp.Verdict).Msg("verification finished")
	return resp.Verdict, nil
}

// RequestRevision asks the device for its revision report.
func (s *Session) RequestRevision(ctx context.Context) error {
	if err := writeChannel(ctx, s.channel, s.registry.RevisionCommand); err != nil {
		s.status(fmt.Sprintf("バイナリ送信エラー: %v", err))
		return err
	}
	s.append("●リビジョンインフォ\n", SeverityInfo)
	return nil
}

// Send writes a raw payload outside of any round.
func (s *Session) Send(ctx context.Context, payload []byte) error {
	if err := writeChannel(ctx, s.channel, payload); err != nil {
		s.status(fmt.Sprintf("バイナリ送信エラー: %v", err))
		return err
	}
	s.log.Debug().Str("payload", codec.Visualize(string(payload))).Msg("payload sent")
	return nil
}

// Identity is what the revision report says about the device.
type Identity struct {
	Firmware []string
	Serials  []string
}

// Serial is the last serial number reported.
func (id Identity) Serial() string {
	if len(id.Serials) == 0 {
		return ""
	}
	return id.Serials[len(id.Serials)-1]
}

// ParseIdentity collects firmware part numbers and serial numbers from text.
func ParseIdentity(text string) Identity {
	var id Identity
	for _, m := range firmwarePattern.FindAllStringSubmatch(text, -1) {
		id.Firmware = append(id.Firmware, m[1])
	}
	for _, m := range serialPattern.FindAllStringSubmatch(text, -1) {
		id.Serials = append(id.Serials, m[1])
	}
	return id
}

// ExtractIdentity parses the buffer, appends the findings and remembers
// the serial number for the box-serial check and log naming.
func (s *Session) ExtractIdentity() Identity {
	id := ParseIdentity(s.buffer.String())

	var sb strings.Builder
	for _, fw := range id.Firmware {
		fmt.Fprintf(&sb, "\n●FWリビジョン:%s \n", fw)
	}
	for _, sn := range id.Serials {
		fmt.Fprintf(&sb, "●シリアルナンバー：%s", sn)
	}
	s.append(sb.String()+"\n", SeverityInfo)

	if sn := id.Serial(); sn != "" {
		s.mu.Lock()
		s.serial = sn
		s.mu.Unlock()
		s.log.Info().Str("serial", sn).Strs("firmware", id.Firmware).Msg("identity extracted")
	}
	return id
}

// ProvisionReport collects the results of each round of Provision.
type ProvisionReport struct {
	Identity    Identity
	RevisionErr error
	WriteErr    error
	VerifyErr   error
	Verdict     Verdict
}

// OK reports whether the device was written and verified.
func (r ProvisionReport) OK() bool {
	return r.WriteErr == nil && r.VerifyErr == nil && r.Verdict == Match
}

// Provision runs revision, identity extraction, write and verify in order.
// Each round's failure is recorded in the report; only cancellation of ctx
// ends the run early.
func (s *Session) Provision(ctx context.Context) (ProvisionReport, error) {
	d := s.variant
	var report ProvisionReport
	s.log.Info().Msg("provisioning started")

	report.RevisionErr = s.RequestRevision(ctx)
	if err := sleep(ctx, s.opts.clock, revisionSettle); err != nil {
		return report, err
	}

	report.Identity = s.ExtractIdentity()
	if err := sleep(ctx, s.opts.clock, extractSettle); err != nil {
		return report, err
	}

	start := s.opts.clock.Now()
	report.WriteErr = s.WriteConfig(ctx)
	if err := s.pace(ctx, start, d.WritePace); err != nil {
		return report, err
	}

	start = s.opts.clock.Now()
	report.Verdict, report.VerifyErr = s.Verify(ctx)
	if err := s.pace(ctx, start, d.VerifyPace); err != nil {
		return report, err
	}

	s.log.Info().Bool("ok", report.OK()).Msg("provisioning finished")
	return report, nil
}

// pace sleeps until at least d has passed since start.
func (s *Session) pace(ctx context.Context, start time.Time, d time.Duration) error {
	return sleep(ctx, s.opts.clock, d-s.opts.clock.Since(start))
}
