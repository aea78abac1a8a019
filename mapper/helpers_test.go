package mapper

import (
	"math/rand"
	"time"

	"github.com/MariaGuerraSappho/manos/effect"
	"github.com/MariaGuerraSappho/manos/gesture"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(2000, 0)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// stubGraph records every call the mapper makes.
type stubGraph struct {
	sets     []Change
	last     map[mappingKey]float64
	fadeOuts int
	fadeIns  int
	clears   int
}

func newStubGraph() *stubGraph {
	return &stubGraph{last: make(map[mappingKey]float64)}
}

func (g *stubGraph) SetParameter(kind effect.Kind, name string, value float64) error {
	g.sets = append(g.sets, Change{Kind: kind, Param: name, Value: value})
	g.last[mappingKey{kind: kind, param: name}] = value

	return nil
}

func (g *stubGraph) FadeOutAll() { g.fadeOuts++ }

func (g *stubGraph) FadeInAll() { g.fadeIns++ }

func (g *stubGraph) ClearEffects() { g.clears++ }

func (g *stubGraph) lastValue(kind effect.Kind, param string) (float64, bool) {
	v, ok := g.last[mappingKey{kind: kind, param: param}]

	return v, ok
}

func newTestMapper(opts ...Option) (*Mapper, *stubGraph, *fakeClock) {
	g := newStubGraph()
	clock := newFakeClock()

	all := append([]Option{
		WithClock(clock.now),
		WithRand(rand.New(rand.NewSource(42))),
	}, opts...)

	m, err := New(g, all...)
	if err != nil {
		panic(err)
	}

	return m, g, clock
}

func frameWith(values map[gesture.Feature]float64) *gesture.Frame {
	f := gesture.NewFrame(values)

	return f
}
