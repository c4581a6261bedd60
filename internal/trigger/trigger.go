// Package trigger merges the independent revalidation trigger sources
// of one query — parameter changes, regained focus, interval ticks —
// into a single event sink. Order is preserved within each source;
// no ordering is promised across sources.
package trigger

import (
	"reflect"
	"sync"
	"time"

	"github.com/vnykmshr/swrcache-go/internal/clock"
)

// Kind identifies the source that produced an Event.
type Kind int

const (
	// KindSubscribe is emitted for the first parameter value and for
	// the new value after every parameter change.
	KindSubscribe Kind = iota

	// KindUnsubscribe is emitted for the previous parameter value
	// when the parameters change.
	KindUnsubscribe

	// KindFocus is emitted when the host environment regains focus.
	KindFocus

	// KindInterval is emitted on every refetch interval tick.
	KindInterval
)

func (k Kind) String() string {
	switch k {
	case KindSubscribe:
		return "subscribe"
	case KindUnsubscribe:
		return "unsubscribe"
	case KindFocus:
		return "focus"
	case KindInterval:
		return "interval"
	default:
		return "unknown"
	}
}

// Event is one trigger occurrence carrying the parameters it applies to.
type Event struct {
	Kind   Kind
	Params any
}

// Options configures a Multiplexer.
type Options struct {
	// Params is the initial parameter value, used when ParamStream
	// is nil and as the latest value until the stream emits.
	Params any

	// ParamStream, when non-nil, is watched for parameter changes.
	// Consecutive values are compared with reflect.DeepEqual.
	ParamStream <-chan any

	// Focus, when non-nil, delivers one signal per regained focus.
	Focus <-chan struct{}

	// Interval enables periodic refetch ticks when positive.
	Interval time.Duration

	// Ticks, when non-nil, replaces the built-in interval ticker
	// with an externally supplied timing sequence.
	Ticks <-chan time.Time

	// Clock drives the built-in ticker. Defaults to the real clock.
	Clock clock.Clock
}

// Multiplexer runs the trigger sources of one query and forwards
// their events to a sink. It is started at most once.
type Multiplexer struct {
	opts Options
	sink func(Event)

	mu     sync.Mutex
	latest any
	seeded bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Multiplexer delivering events to sink.
func New(sink func(Event), opts Options) *Multiplexer {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Multiplexer{
		opts: opts,
		sink: sink,
		stop: make(chan struct{}),
	}
}

// Start launches the configured sources. With a static parameter value
// it emits the initial subscribe synchronously, so the caller observes
// the subscription before Start returns.
func (m *Multiplexer) Start() {
	if m.opts.ParamStream == nil {
		m.seed(m.opts.Params)
		m.sink(Event{Kind: KindSubscribe, Params: m.opts.Params})
	} else {
		m.wg.Add(1)
		go m.watchParams()
	}

	if m.opts.Focus != nil {
		m.wg.Add(1)
		go m.watchFocus()
	}

	if m.opts.Ticks != nil || m.opts.Interval > 0 {
		m.wg.Add(1)
		go m.watchInterval()
	}
}

// Stop halts all sources and waits for them to exit. No events are
// emitted after Stop returns.
func (m *Multiplexer) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// Latest returns the most recent parameter value and whether one has
// been observed yet.
func (m *Multiplexer) Latest() (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest, m.seeded
}

func (m *Multiplexer) seed(params any) {
	m.mu.Lock()
	m.latest = params
	m.seeded = true
	m.mu.Unlock()
}

// watchParams emits subscribe for the first value and an
// unsubscribe/subscribe pair for each structurally distinct change.
func (m *Multiplexer) watchParams() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stop:
			return
		case next, ok := <-m.opts.ParamStream:
			if !ok {
				return
			}
			m.mu.Lock()
			prev, seeded := m.latest, m.seeded
			m.mu.Unlock()

			if seeded && reflect.DeepEqual(prev, next) {
				continue
			}
			m.seed(next)
			if seeded {
				m.sink(Event{Kind: KindUnsubscribe, Params: prev})
			}
			m.sink(Event{Kind: KindSubscribe, Params: next})
		}
	}
}

func (m *Multiplexer) watchFocus() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stop:
			return
		case _, ok := <-m.opts.Focus:
			if !ok {
				return
			}
			if params, seeded := m.Latest(); seeded {
				m.sink(Event{Kind: KindFocus, Params: params})
			}
		}
	}
}

func (m *Multiplexer) watchInterval() {
	defer m.wg.Done()

	ticks := m.opts.Ticks
	if ticks == nil {
		ticker := m.opts.Clock.NewTicker(m.opts.Interval)
		defer ticker.Stop()
		ticks = ticker.Chan()
	}

	for {
		select {
		case <-m.stop:
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			if params, seeded := m.Latest(); seeded {
				m.sink(Event{Kind: KindInterval, Params: params})
			}
		}
	}
}
