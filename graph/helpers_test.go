package graph

import (
	"sync"
	"time"

	"github.com/MariaGuerraSappho/manos/audio"
	"github.com/MariaGuerraSappho/manos/effect"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1000, 0)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(d)
}

type stubRuntime struct {
	kind   effect.Kind
	params map[string]float64
	resets int
}

func newStubRuntime(kind effect.Kind) *stubRuntime {
	return &stubRuntime{kind: kind, params: make(map[string]float64)}
}

func (s *stubRuntime) Kind() effect.Kind { return s.kind }

func (s *stubRuntime) SetParam(name string, value float64) error {
	s.params[name] = value

	return nil
}

func (s *stubRuntime) Process(block []float64) {}

func (s *stubRuntime) Reset() { s.resets++ }

// stubFactory hands out recording runtimes and remembers them per kind.
type stubFactory struct {
	made map[effect.Kind][]*stubRuntime
}

func newStubFactory() *stubFactory {
	return &stubFactory{made: make(map[effect.Kind][]*stubRuntime)}
}

func (f *stubFactory) new(kind effect.Kind, sampleRate float64) (audio.Runtime, error) {
	rt := newStubRuntime(kind)
	f.made[kind] = append(f.made[kind], rt)

	return rt, nil
}

func (f *stubFactory) last(kind effect.Kind) *stubRuntime {
	made := f.made[kind]
	if len(made) == 0 {
		return nil
	}

	return made[len(made)-1]
}

func newTestManager(opts ...Option) (*Manager, *audio.OfflineContext, *fakeClock) {
	clock := newFakeClock()
	ctx := audio.NewOfflineContext()

	all := append([]Option{WithClock(clock.now), WithRampDuration(0), WithDisposalGrace(500 * time.Millisecond)}, opts...)

	m, err := NewManager(ctx, 48000, all...)
	if err != nil {
		panic(err)
	}

	return m, ctx, clock
}
