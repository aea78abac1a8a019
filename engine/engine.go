// Package engine is the facade over the whole gesture-audio pipeline: it
// wires the graph, the mapper, and the governor together and exposes the
// operations a host application calls.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MariaGuerraSappho/manos/audio"
	"github.com/MariaGuerraSappho/manos/effect"
	"github.com/MariaGuerraSappho/manos/gesture"
	"github.com/MariaGuerraSappho/manos/governor"
	"github.com/MariaGuerraSappho/manos/graph"
	"github.com/MariaGuerraSappho/manos/mapper"
)

// ErrStale is reported to async completions whose result was superseded by a
// newer source or mapping change before it landed.
var ErrStale = errors.New("engine: result superseded")

// ErrDecode wraps sample loading failures. The engine stays usable; only the
// affected source is rejected.
var ErrDecode = errors.New("engine: sample decode failed")

// ErrDevice wraps audio context failures surfaced by Play and Recover.
var ErrDevice = errors.New("engine: audio device failed")

type config struct {
	log   *log.Logger
	now   func() time.Time
	ctx   audio.Context
	store mapper.Store
	rng   *rand.Rand
	notif governor.Notifier
}

// Option adjusts engine construction.
type Option func(*config)

// WithLogger routes engine and component logs to l.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithClock injects the time source shared by every component.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithContext supplies the audio context. Default is an offline context.
func WithContext(ctx audio.Context) Option {
	return func(c *config) { c.ctx = ctx }
}

// WithStore attaches mapping-set persistence.
func WithStore(s mapper.Store) Option {
	return func(c *config) { c.store = s }
}

// WithRand injects the mapping-generation randomness source.
func WithRand(rng *rand.Rand) Option {
	return func(c *config) { c.rng = rng }
}

// WithNotifier registers the performance-level listener.
func WithNotifier(n governor.Notifier) Option {
	return func(c *config) { c.notif = n }
}

// Engine owns the full pipeline. The two callback streams feeding it, the
// gesture frames and the audio pull, are serialized through the component
// locks; Engine itself adds one more for its own state.
type Engine struct {
	mu sync.Mutex

	log    *log.Logger
	ctx    audio.Context
	graph  *graph.Manager
	mapper *mapper.Mapper
	gov    *governor.Governor

	playing bool
	gen     atomic.Uint64

	chaosCeiling float64
	whitelist    []effect.Kind
}

// New builds and wires the pipeline and initializes the graph.
func New(sampleRate float64, opts ...Option) (*Engine, error) {
	cfg := config{
		log: log.New(io.Discard, "", 0),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.ctx == nil {
		cfg.ctx = audio.NewOfflineContext()
	}

	g, err := graph.NewManager(cfg.ctx, sampleRate,
		graph.WithLogger(cfg.log), graph.WithClock(cfg.now))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	if err := g.InitializeGraph(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	mapperOpts := []mapper.Option{mapper.WithLogger(cfg.log), mapper.WithClock(cfg.now)}
	if cfg.store != nil {
		mapperOpts = append(mapperOpts, mapper.WithStore(cfg.store))
	}

	if cfg.rng != nil {
		mapperOpts = append(mapperOpts, mapper.WithRand(cfg.rng))
	}

	m, err := mapper.New(g, mapperOpts...)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	gov := governor.New(governor.WithLogger(cfg.log), governor.WithClock(cfg.now))
	if cfg.notif != nil {
		gov.SetNotifier(cfg.notif)
	}

	e := &Engine{
		log:          cfg.log,
		ctx:          cfg.ctx,
		graph:        g,
		mapper:       m,
		gov:          gov,
		chaosCeiling: 1,
		whitelist:    effect.ModulatedKinds(),
	}

	m.SetCostObserver(gov.ObserveCost)
	g.SetCostObserver(gov.ObserveRenderCost)
	gov.SetConstraintsFunc(e.applyConstraints)

	return e, nil
}

func (e *Engine) applyConstraints(c governor.Constraints) {
	e.graph.SetIntensityCaps(c.IntensityCaps)
	e.mapper.SetThrottled(c.Throttled, c.Whitelist)

	e.mu.Lock()
	e.chaosCeiling = c.ChaosCeiling
	e.whitelist = c.Whitelist
	e.mu.Unlock()
}

// Play starts (or resumes) the audio context and opens the render gate.
// RebuildChain state is already in place before Play returns.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.ctx.State() {
	case audio.StateRunning:
	case audio.StateSuspended:
		if err := e.ctx.Start(); err != nil {
			return fmt.Errorf("%w: %v", ErrDevice, err)
		}
	default:
		return fmt.Errorf("%w: context closed", ErrDevice)
	}

	e.playing = true

	return nil
}

// Stop closes the render gate and fades the effect tails out. The context
// stays warm so Play can resume instantly.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()

	e.graph.FadeOutAll()
}

// Playing reports whether the render gate is open.
func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.playing
}

// Render fills one mono block, or silence while stopped.
func (e *Engine) Render(dst []float64) {
	if !e.Playing() {
		for i := range dst {
			dst[i] = 0
		}

		return
	}

	e.graph.Render(dst)
}

// RenderStereo fills one stereo block, or silence while stopped.
func (e *Engine) RenderStereo(left, right []float64) {
	if !e.Playing() {
		for i := range left {
			left[i] = 0
		}

		for i := range right {
			right[i] = 0
		}

		return
	}

	e.graph.RenderStereo(left, right)
}

// SetSourceTone installs a steady test tone source.
func (e *Engine) SetSourceTone(freqHz, sampleRate float64) error {
	src, err := audio.NewSineSource(freqHz, sampleRate)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	e.installSource(src)

	return nil
}

// SetSourceSample installs a decoded sample buffer as the source.
func (e *Engine) SetSourceSample(data []float64, loop bool) error {
	src, err := audio.NewSampleSource(data, loop)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	e.installSource(src)

	return nil
}

// SetSourceLive installs a live push source and returns it so the capture
// callback can feed it.
func (e *Engine) SetSourceLive(capacity int) (*audio.PCMSource, error) {
	src, err := audio.NewPCMSource(capacity)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e.installSource(src)

	return src, nil
}

// LoadSampleAsync decodes in the background and installs the result, unless
// a newer source change lands first; then done receives ErrStale and the
// current source stays. A failed load is reported as ErrDecode.
func (e *Engine) LoadSampleAsync(load func() ([]float64, error), loop bool, done func(error)) {
	gen := e.gen.Load()

	go func() {
		data, err := load()
		if err != nil {
			done(fmt.Errorf("%w: %v", ErrDecode, err))

			return
		}

		src, err := audio.NewSampleSource(data, loop)
		if err != nil {
			done(fmt.Errorf("%w: %v", ErrDecode, err))

			return
		}

		e.mu.Lock()

		if e.gen.Load() != gen {
			e.mu.Unlock()
			done(ErrStale)

			return
		}

		e.gen.Add(1)
		e.graph.SetSource(src)
		e.mu.Unlock()

		done(nil)
	}()
}

func (e *Engine) installSource(src audio.Source) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.gen.Add(1)
	e.graph.SetSource(src)
}

// Generation returns the change token bumped by every source or mapping
// swap.
func (e *Engine) Generation() uint64 {
	return e.gen.Load()
}

// SetBaselineVolume sets the resting output level in dB.
func (e *Engine) SetBaselineVolume(db float64) {
	e.mapper.SetBaseline(db)

	if err := e.graph.SetParameter(effect.Volume, "level", db); err != nil {
		e.log.Printf("engine: baseline: %v", err)
	}
}

// SetDryWetMix sets the global source/effects balance in [0,1].
func (e *Engine) SetDryWetMix(ratio float64) {
	e.graph.SetDryWetMix(ratio)
}

// SetEffectParameter writes one effect parameter directly, outside any
// mapping.
func (e *Engine) SetEffectParameter(kind effect.Kind, name string, value float64) error {
	return e.graph.SetParameter(kind, name, value)
}

// GenerateMappings rolls a fresh mapping table. Chaos is capped by the
// current performance level, as is the candidate whitelist.
func (e *Engine) GenerateMappings(chaos float64) []mapper.Mapping {
	e.mu.Lock()
	if chaos > e.chaosCeiling {
		chaos = e.chaosCeiling
	}

	whitelist := e.whitelist
	e.mu.Unlock()

	e.gen.Add(1)

	return e.mapper.GenerateMappings(chaos, whitelist)
}

// ProcessFrame feeds one gesture frame (nil for no hand) through the mapper.
func (e *Engine) ProcessFrame(frame *gesture.Frame) {
	e.mapper.ProcessFrame(frame)
}

// ActiveEffectChanges returns the parameter writes from the latest frame.
func (e *Engine) ActiveEffectChanges() []mapper.Change {
	return e.mapper.ActiveChanges()
}

// MappingsDescription renders the active mapping table for display.
func (e *Engine) MappingsDescription() string {
	return e.mapper.Describe()
}

// SaveMappings persists the active table under id.
func (e *Engine) SaveMappings(id, name string) error {
	return e.mapper.SaveSet(id, name)
}

// LoadMappings replaces the active table with a stored one.
func (e *Engine) LoadMappings(id string) error {
	e.gen.Add(1)

	return e.mapper.LoadSet(id)
}

// ListMappings lists stored mapping sets.
func (e *Engine) ListMappings() ([]mapper.MappingSetInfo, error) {
	return e.mapper.ListSets()
}

// DeleteMappings removes a stored mapping set.
func (e *Engine) DeleteMappings(id string) error {
	return e.mapper.DeleteSet(id)
}

// CheckHealth reports whether the audio path is alive.
func (e *Engine) CheckHealth() bool {
	return e.graph.CheckHealth()
}

// Recover tries to revive a suspended audio path.
func (e *Engine) Recover() bool {
	return e.graph.Recover()
}

// PerformanceLevel returns the governor's current level.
func (e *Engine) PerformanceLevel() governor.Level {
	return e.gov.Level()
}
