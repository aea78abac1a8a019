// Package graph owns the live audio processing chain: which effect nodes are
// wired, in what order, their parameter ramps, the node pool, the deferred
// disposal queue, and recovery of the underlying audio context.
package graph

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/cwbudde/algo-dsp/dsp/effects"

	"github.com/MariaGuerraSappho/manos/audio"
	"github.com/MariaGuerraSappho/manos/effect"
)

// wetEpsilon is the wet level below which a modulated node leaves the chain.
const wetEpsilon = 0.01

const (
	defaultRampDuration  = 100 * time.Millisecond
	defaultDisposalGrace = 500 * time.Millisecond
	poolCapacityPerKind  = 10
	limiterThresholdDB   = -0.3
)

// ErrNotInitialized is returned by operations that need a built graph.
var ErrNotInitialized = errors.New("graph not initialized")

// ErrUnrecoverable is reported once recovery has failed twice.
var ErrUnrecoverable = errors.New("graph unrecoverable")

// Node is one allocated effect runtime plus its last applied settings.
type Node struct {
	kind   effect.Kind
	rt     audio.Runtime
	values map[string]float64
}

// Kind returns the effect kind the node hosts.
func (n *Node) Kind() effect.Kind {
	return n.kind
}

type ramp struct {
	node  *Node
	name  string
	from  float64
	to    float64
	start time.Time
	dur   time.Duration
	done  bool
}

type config struct {
	log           *log.Logger
	now           func() time.Time
	rampDuration  time.Duration
	disposalGrace time.Duration
}

// Option adjusts manager construction.
type Option func(*config)

// WithLogger routes wiring and recovery events to l.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithClock injects the time source, used by tests to step ramps and grace
// periods deterministically.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithRampDuration overrides the parameter ramp length. Zero applies values
// immediately.
func WithRampDuration(d time.Duration) Option {
	return func(c *config) { c.rampDuration = d }
}

// WithDisposalGrace overrides how long released resources linger before
// teardown.
func WithDisposalGrace(d time.Duration) Option {
	return func(c *config) { c.disposalGrace = d }
}

// Manager is the audio graph manager. All methods are safe for concurrent
// use; the render path and the gesture path share one mutex.
type Manager struct {
	mu sync.Mutex

	log           *log.Logger
	now           func() time.Time
	sampleRate    float64
	rampDuration  time.Duration
	disposalGrace time.Duration

	ctx     audio.Context
	source  audio.Source
	factory func(effect.Kind, float64) (audio.Runtime, error)

	initialized   bool
	resetAttempt  bool
	unrecoverable bool
	sourceGen     uint64

	master *Node
	nodes  map[effect.Kind]*Node
	chain  []*Node
	pool   map[effect.Kind][]*Node

	ramps     []*ramp
	mappedWet map[effect.Kind]float64
	faded     bool
	disposals []*DisposalHandle

	caps map[effect.Kind]map[string]float64
	mix  float64

	limiter *effects.Limiter

	costFn func(time.Duration)

	scratchDry []float64
	scratchWet []float64
	scratchOut []float64
}

// NewManager creates a manager over the given context. InitializeGraph must
// run before rendering.
func NewManager(ctx audio.Context, sampleRate float64, opts ...Option) (*Manager, error) {
	if ctx == nil {
		return nil, errors.New("graph: nil audio context")
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("graph: invalid sample rate %f", sampleRate)
	}

	cfg := config{
		log:           log.New(io.Discard, "", 0),
		now:           time.Now,
		rampDuration:  defaultRampDuration,
		disposalGrace: defaultDisposalGrace,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Manager{
		log:           cfg.log,
		now:           cfg.now,
		sampleRate:    sampleRate,
		rampDuration:  cfg.rampDuration,
		disposalGrace: cfg.disposalGrace,
		ctx:           ctx,
		factory:       audio.NewRuntime,
		nodes:         make(map[effect.Kind]*Node),
		pool:          make(map[effect.Kind][]*Node),
		mappedWet:     make(map[effect.Kind]float64),
		mix:           1,
	}, nil
}

// InitializeGraph builds the fixed scaffolding: master gain, limiter, and the
// always-on trim and compressor pair. Calling it again is a no-op.
func (m *Manager) InitializeGraph() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	masterRT, err := audio.NewRuntime(effect.Volume, m.sampleRate)
	if err != nil {
		return fmt.Errorf("graph: master gain: %w", err)
	}

	lim, err := effects.NewLimiter(m.sampleRate)
	if err != nil {
		return fmt.Errorf("graph: limiter: %w", err)
	}

	if err := lim.SetThreshold(limiterThresholdDB); err != nil {
		return fmt.Errorf("graph: limiter threshold: %w", err)
	}

	m.master = &Node{kind: effect.Volume, rt: masterRT, values: make(map[string]float64)}
	m.limiter = lim

	for _, kind := range []effect.Kind{effect.Trim, effect.Compressor} {
		node, err := m.acquireLocked(kind)
		if err != nil {
			return fmt.Errorf("graph: utility %v: %w", kind, err)
		}

		m.nodes[kind] = node
	}

	m.initialized = true
	m.rebuildLocked()

	return nil
}

// SetSource swaps the input. The previous source is drained through the
// disposal queue rather than torn down mid-block.
func (m *Manager) SetSource(src audio.Source) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old := m.source; old != nil {
		m.scheduleFuncLocked(func() { old.Reset() })
	}

	m.source = src
	m.sourceGen++
}

// SourceGeneration returns a token that changes on every SetSource, letting
// callers discard results computed against a replaced source.
func (m *Manager) SourceGeneration() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sourceGen
}

// SetDryWetMix sets the global source/effects crossfade in [0,1].
func (m *Manager) SetDryWetMix(ratio float64) {
	if ratio < 0 {
		ratio = 0
	}

	if ratio > 1 {
		ratio = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.mix = ratio
}

// SetCostObserver registers fn to receive per-block render cost.
func (m *Manager) SetCostObserver(fn func(time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.costFn = fn
}

// ActiveKinds returns the kinds currently wired, in chain order.
func (m *Manager) ActiveKinds() []effect.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]effect.Kind, len(m.chain))
	for i, node := range m.chain {
		out[i] = node.kind
	}

	return out
}

// FadeOutAll ramps every active wet level toward zero without dropping chain
// membership, so a returning hand can fade straight back in.
func (m *Manager) FadeOutAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.faded || !m.initialized {
		return
	}

	m.faded = true

	for _, node := range m.chain {
		if _, ok := node.values[effect.WetParam]; ok {
			m.startRampLocked(node, effect.WetParam, 0)
		}
	}
}

// FadeInAll restores every active wet level to its mapped value.
func (m *Manager) FadeInAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.faded || !m.initialized {
		return
	}

	m.faded = false

	for _, node := range m.chain {
		if wet, ok := m.mappedWet[node.kind]; ok {
			m.startRampLocked(node, effect.WetParam, wet)
		}
	}
}
