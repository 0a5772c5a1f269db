package live

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/datahub-cli/internal/dashboard"
)

// Func receives one payload per tick. The payload is the caller's own copy.
type Func func(p *dashboard.Payload)

// Bounds are the ranges the jittered KPIs are held to.
type Bounds struct {
	ConversionMin   float64
	ConversionMax   float64
	SatisfactionMin float64
	SatisfactionMax float64
	UsersFloor      int
}

// DefaultBounds keeps the simulated figures in a plausible range.
var DefaultBounds = Bounds{
	ConversionMin:   2.5,
	ConversionMax:   4.0,
	SatisfactionMin: 4.0,
	SatisfactionMax: 5.0,
	UsersFloor:      12000,
}

// Simulator periodically nudges a few executive KPIs of the current payload
// and hands the result to its subscribers. It is the only writer of the
// current payload.
type Simulator struct {
	mu      sync.Mutex
	current *dashboard.Payload
	subs    map[int]Func
	nextID  int
	rng     *rand.Rand
	now     func() time.Time
	bounds  Bounds
	log     zerolog.Logger

	stop  chan struct{}
	done  chan struct{}
	unsub func()
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithRand sets the random source.
func WithRand(r *rand.Rand) Option { return func(s *Simulator) { s.rng = r } }

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option { return func(s *Simulator) { s.now = now } }

// WithBounds overrides DefaultBounds.
func WithBounds(b Bounds) Option { return func(s *Simulator) { s.bounds = b } }

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Simulator) { s.log = l } }

// New returns an idle simulator seeded with p. A nil p starts from the
// all-fallback payload.
func New(p *dashboard.Payload, opts ...Option) *Simulator {
	s := &Simulator{
		subs:   map[int]Func{},
		rng:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		now:    time.Now,
		bounds: DefaultBounds,
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	if p == nil {
		p = dashboard.NewComposer(s.log).Compose(context.Background(), nil)
	}
	s.current = p.Clone()
	return s
}

// Subscribe registers fn for every tick and returns a function removing it.
func (s *Simulator) Subscribe(fn Func) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribeLocked(fn)
}

func (s *Simulator) subscribeLocked(fn Func) func() {
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Start begins ticking every interval. fn, when non-nil, is subscribed until
// the matching Stop. It reports false and does nothing when the simulator is
// already running.
func (s *Simulator) Start(fn Func, interval time.Duration) bool {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return false
	}
	if interval <= 0 {
		interval = time.Second
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	if fn != nil {
		s.unsub = s.subscribeLocked(fn)
	}
	s.mu.Unlock()

	go s.loop(interval, stop, done)
	s.log.Info().Dur("interval", interval).Msg("live updates started")
	return true
}

// Stop halts ticking and waits for the tick goroutine to exit, so no callback
// runs after it returns. Calling Stop from inside a subscriber deadlocks.
func (s *Simulator) Stop() {
	s.mu.Lock()
	stop, done, unsub := s.stop, s.done, s.unsub
	s.stop, s.done, s.unsub = nil, nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
	if unsub != nil {
		unsub()
	}
	s.log.Info().Msg("live updates stopped")
}

// Running reports whether the ticker is active.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// SetPayload replaces the payload future ticks start from.
func (s *Simulator) SetPayload(p *dashboard.Payload) {
	if p == nil {
		return
	}
	s.mu.Lock()
	s.current = p.Clone()
	s.mu.Unlock()
}

// Current returns a copy of the latest payload.
func (s *Simulator) Current() *dashboard.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// Step applies one tick synchronously and delivers it to subscribers.
func (s *Simulator) Step() *dashboard.Payload {
	s.mu.Lock()
	next := s.current.Clone()
	k := &next.KPIsExecutivos
	k.UsuariosAtivos += s.rng.IntN(20) - 10
	k.TaxaConversao += (s.rng.Float64() - 0.5) * 0.02
	k.Satisfaction += (s.rng.Float64() - 0.5) * 0.002
	s.bounds.clamp(k)
	next.LastUpdate = s.now().Format(time.RFC3339)
	s.current = next
	subs := make([]Func, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next.Clone())
	}
	return next.Clone()
}

func (s *Simulator) loop(interval time.Duration, stop, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			// a tick and a stop can be ready together; stop wins
			select {
			case <-stop:
				return
			default:
			}
			s.Step()
		}
	}
}

func (b Bounds) clamp(k *dashboard.ExecutiveKPIs) {
	k.TaxaConversao = min(max(k.TaxaConversao, b.ConversionMin), b.ConversionMax)
	k.Satisfaction = min(max(k.Satisfaction, b.SatisfactionMin), b.SatisfactionMax)
	k.UsuariosAtivos = max(k.UsuariosAtivos, b.UsersFloor)
}
