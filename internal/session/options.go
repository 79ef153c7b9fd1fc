package session

import (
	"context"
	"time"

	"github.com/allbin/scanprov/internal/codec"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Defaults for the timing knobs. Variant-specific delays live in the
// registry.
const (
	DefaultReadTimeout = 100 * time.Millisecond
	DefaultWakeSettle  = 100 * time.Millisecond
	DefaultStopTimeout = time.Second
	DefaultStopPoll    = 50 * time.Millisecond
	DefaultCloseDelay  = 100 * time.Millisecond
	DefaultAutoDelay   = 50 * time.Millisecond
	DefaultDisplayTest = "変更bpsで表示テスト"
)

type options struct {
	clock       clockwork.Clock
	logger      zerolog.Logger
	observer    Observer
	decoder     *codec.Decoder
	readTimeout time.Duration
	wakeSettle  time.Duration
	displayTest string
	stopTimeout time.Duration
	stopPoll    time.Duration
	closeDelay  time.Duration
	autoEnabled bool
	autoDelay   time.Duration
}

// Option configures a Negotiator and the sessions it creates.
type Option func(*options)

func defaultOptions() options {
	dec, _ := codec.NewDecoder("")
	return options{
		clock:       clockwork.NewRealClock(),
		logger:      zerolog.Nop(),
		observer:    nopObserver{},
		decoder:     dec,
		readTimeout: DefaultReadTimeout,
		wakeSettle:  DefaultWakeSettle,
		displayTest: DefaultDisplayTest,
		stopTimeout: DefaultStopTimeout,
		stopPoll:    DefaultStopPoll,
		closeDelay:  DefaultCloseDelay,
		autoEnabled: true,
		autoDelay:   DefaultAutoDelay,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer == nil {
			observer = nopObserver{}
		}
		o.observer = observer
	}
}

func WithDecoder(dec *codec.Decoder) Option {
	return func(o *options) {
		if dec != nil {
			o.decoder = dec
		}
	}
}

// WithReadTimeout sets the port read timeout, which bounds how quickly a
// cancelled reader notices.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) { o.readTimeout = d }
}

// WithWakeSettle sets the pause between the wake payload and the close.
func WithWakeSettle(d time.Duration) Option {
	return func(o *options) { o.wakeSettle = d }
}

// WithDisplayTest sets the text sent after reopening at the target speed.
func WithDisplayTest(text string) Option {
	return func(o *options) { o.displayTest = text }
}

// WithStopTimeout sets how long Disconnect polls for the reader to stop.
func WithStopTimeout(timeout, poll time.Duration) Option {
	return func(o *options) {
		o.stopTimeout = timeout
		o.stopPoll = poll
	}
}

func WithCloseDelay(d time.Duration) Option {
	return func(o *options) { o.closeDelay = d }
}

// WithAutoValidate controls barcode validation triggered by framing tokens
// in incoming text.
func WithAutoValidate(enabled bool, delay time.Duration) Option {
	return func(o *options) {
		o.autoEnabled = enabled
		o.autoDelay = delay
	}
}

// sleep waits d on clock or until ctx is done.
func sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}
