package mapper

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/MariaGuerraSappho/manos/effect"
	"github.com/MariaGuerraSappho/manos/gesture"
)

const (
	// normalMinInterval and throttledMinInterval bound how often frames are
	// evaluated; earlier frames are dropped outright.
	normalMinInterval    = 16 * time.Millisecond
	throttledMinInterval = 33 * time.Millisecond

	// maxChangesPerFrame caps non-volume parameter writes in one frame.
	maxChangesPerFrame = 8
	// maxNonWetPerKind caps simultaneous non-wet writes per effect kind.
	maxNonWetPerKind = 2

	// deltaGate skips writes smaller than this fraction of the param range.
	deltaGate = 0.01

	// volumeAlpha is the exponential smoothing weight kept from the previous
	// volume value; delicateAlpha smooths artifact-prone params harder.
	volumeAlpha   = 0.85
	delicateAlpha = 0.92

	// volumeDipDB and volumeBoostDB shape the asymmetric proximity curve:
	// full dip at proximity 0, full boost at 1, baseline at the midpoint.
	volumeDipDB   = 40.0
	volumeBoostDB = 12.0
)

// ErrNoStore is returned by persistence calls when no store is attached.
var ErrNoStore = errors.New("mapper: no store configured")

// Graph is the slice of the audio graph the mapper drives.
type Graph interface {
	SetParameter(kind effect.Kind, name string, value float64) error
	FadeOutAll()
	FadeInAll()
	ClearEffects()
}

// Store persists named mapping sets.
type Store interface {
	Save(set MappingSet) error
	Load(id string) (MappingSet, error)
	List() ([]MappingSetInfo, error)
	Delete(id string) error
}

// Change records one parameter write applied during a frame.
type Change struct {
	Kind  effect.Kind
	Param string
	Value float64
}

type mappingKey struct {
	kind  effect.Kind
	param string
}

type config struct {
	log   *log.Logger
	now   func() time.Time
	rng   *rand.Rand
	store Store
}

// Option adjusts mapper construction.
type Option func(*config)

// WithLogger routes mapper events to l.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithClock injects the time source used for rate limiting and cost
// measurement.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithRand injects the randomness source for mapping generation, letting
// tests pin a seed.
func WithRand(rng *rand.Rand) Option {
	return func(c *config) { c.rng = rng }
}

// WithStore attaches a persistence backend for named mapping sets.
func WithStore(s Store) Option {
	return func(c *config) { c.store = s }
}

// Mapper evaluates gesture frames against the current mapping table.
type Mapper struct {
	mu sync.Mutex

	log   *log.Logger
	now   func() time.Time
	rng   *rand.Rand
	graph Graph
	store Store

	mappings []Mapping

	prevKinds    map[effect.Kind]bool
	usedFeatures map[effect.Kind]map[gesture.Feature]bool

	baselineDB  float64
	minInterval time.Duration
	allowed     map[effect.Kind]bool
	lastFrame   time.Time
	hasFrame    bool

	smoothed    map[mappingKey]float64
	lastApplied map[mappingKey]float64
	changes     []Change

	costFn func(time.Duration)
}

// New creates a mapper over the given graph.
func New(g Graph, opts ...Option) (*Mapper, error) {
	if g == nil {
		return nil, errors.New("mapper: nil graph")
	}

	cfg := config{
		log: log.New(io.Discard, "", 0),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.rng == nil {
		cfg.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	volSpec, _ := effect.Lookup(effect.Volume)
	level, _ := volSpec.Param("level")

	return &Mapper{
		log:          cfg.log,
		now:          cfg.now,
		rng:          cfg.rng,
		graph:        g,
		store:        cfg.store,
		prevKinds:    make(map[effect.Kind]bool),
		usedFeatures: make(map[effect.Kind]map[gesture.Feature]bool),
		baselineDB:   level.Default,
		minInterval:  normalMinInterval,
		smoothed:     make(map[mappingKey]float64),
		lastApplied:  make(map[mappingKey]float64),
	}, nil
}

// SetBaseline sets the resting volume in dB, clamped to the volume range.
func (m *Mapper) SetBaseline(db float64) {
	spec, _ := effect.Lookup(effect.Volume)
	p, _ := spec.Param("level")

	m.mu.Lock()
	defer m.mu.Unlock()

	m.baselineDB = p.Clamp(db)
}

// Baseline returns the resting volume in dB.
func (m *Mapper) Baseline() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.baselineDB
}

// SetThrottled switches between the normal and throttled frame intervals.
// While throttled, evaluation is additionally restricted to the allowed
// kinds (the volume mapping always runs); a nil allow list only widens the
// interval.
func (m *Mapper) SetThrottled(throttled bool, allow []effect.Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !throttled {
		m.minInterval = normalMinInterval
		m.allowed = nil

		return
	}

	m.minInterval = throttledMinInterval

	m.allowed = nil
	if len(allow) > 0 {
		m.allowed = make(map[effect.Kind]bool, len(allow))
		for _, kind := range allow {
			m.allowed[kind] = true
		}
	}
}

// SetCostObserver registers fn to receive per-frame evaluation cost.
func (m *Mapper) SetCostObserver(fn func(time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.costFn = fn
}

// Mappings returns a copy of the active mapping table.
func (m *Mapper) Mappings() []Mapping {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Mapping, len(m.mappings))
	copy(out, m.mappings)

	return out
}

// ActiveChanges returns the parameter writes applied by the most recent
// frame.
func (m *Mapper) ActiveChanges() []Change {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Change, len(m.changes))
	copy(out, m.changes)

	return out
}

// Describe renders the mapping table as one human-readable line per mapping.
func (m *Mapper) Describe() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.mappings) == 0 {
		return "no mappings"
	}

	lines := make([]string, len(m.mappings))
	for i, mapping := range m.mappings {
		lines[i] = mapping.String()
	}

	return strings.Join(lines, "\n")
}

// ProcessFrame evaluates one gesture frame. A nil frame means no hand is
// visible: volume eases back to the baseline and all effects fade out.
// Frames arriving faster than the minimum interval are dropped.
func (m *Mapper) ProcessFrame(frame *gesture.Frame) {
	m.mu.Lock()

	start := m.now()

	if m.hasFrame && start.Sub(m.lastFrame) < m.minInterval {
		m.mu.Unlock()

		return
	}

	m.lastFrame = start
	m.hasFrame = true
	m.changes = m.changes[:0]

	if frame == nil {
		m.applyVolumeLocked(m.baselineDB)

		// An absent hand is still mapper activity: the observer hears
		// about it so the stall detector only fires on real gaps.
		fn := m.costFn
		cost := m.now().Sub(start)
		m.mu.Unlock()

		m.graph.FadeOutAll()

		if fn != nil {
			fn(cost)
		}

		return
	}

	m.applyVolumeLocked(m.volumeTargetLocked(frame))
	m.applyMappingsLocked(frame)

	// The cost observer may re-enter the mapper (the governor throttles it
	// on escalation), so it runs outside the lock.
	fn := m.costFn
	cost := m.now().Sub(start)
	m.mu.Unlock()

	m.graph.FadeInAll()

	if fn != nil {
		fn(cost)
	}
}

// volumeTargetLocked maps proximity onto a dB offset around the baseline.
// The curve is asymmetric: a closed fist (proximity 0) pulls the level down
// hard, a near hand pushes it up only modestly.
func (m *Mapper) volumeTargetLocked(frame *gesture.Frame) float64 {
	p := frame.Feature(gesture.Proximity)

	var offset float64
	if p < 0.5 {
		offset = (p/0.5 - 1) * volumeDipDB
	} else {
		offset = (p - 0.5) / 0.5 * volumeBoostDB
	}

	if offset < -volumeDipDB {
		offset = -volumeDipDB
	}

	if offset > volumeBoostDB {
		offset = volumeBoostDB
	}

	return m.baselineDB + offset
}

func (m *Mapper) applyVolumeLocked(target float64) {
	key := mappingKey{kind: effect.Volume, param: "level"}

	prev, ok := m.smoothed[key]
	if !ok {
		prev = m.baselineDB
	}

	value := prev*volumeAlpha + target*(1-volumeAlpha)
	m.smoothed[key] = value

	if err := m.graph.SetParameter(effect.Volume, "level", value); err != nil {
		m.log.Printf("mapper: volume: %v", err)

		return
	}

	m.changes = append(m.changes, Change{Kind: effect.Volume, Param: "level", Value: value})
}

func (m *Mapper) applyMappingsLocked(frame *gesture.Frame) {
	applied := 0
	nonWetPerKind := make(map[effect.Kind]int)

	for _, mapping := range m.mappings {
		if mapping.Kind == effect.Volume {
			continue
		}

		if m.allowed != nil && !m.allowed[mapping.Kind] {
			continue
		}

		if applied >= maxChangesPerFrame {
			return
		}

		spec, ok := effect.Lookup(mapping.Kind)
		if !ok {
			continue
		}

		p, ok := spec.Param(mapping.Param)
		if !ok {
			continue
		}

		if mapping.Param != effect.WetParam {
			if nonWetPerKind[mapping.Kind] >= maxNonWetPerKind {
				continue
			}

			nonWetPerKind[mapping.Kind]++
		}

		x := frame.Feature(mapping.Feature)
		if mapping.Inverted {
			x = 1 - x
		}

		value := p.ScaleValue(x)
		key := mappingKey{kind: mapping.Kind, param: mapping.Param}

		if p.Delicate {
			prev, ok := m.smoothed[key]
			if !ok {
				prev = value
			}

			value = prev*delicateAlpha + value*(1-delicateAlpha)
			m.smoothed[key] = value
		}

		if mapping.Kind == effect.PitchShift && mapping.Param == "semitones" {
			value = math.Round(value)
		}

		if last, ok := m.lastApplied[key]; ok {
			if math.Abs(value-last) <= deltaGate*p.Range() {
				continue
			}
		}

		if err := m.graph.SetParameter(mapping.Kind, mapping.Param, value); err != nil {
			m.log.Printf("mapper: %v.%s: %v", mapping.Kind, mapping.Param, err)

			continue
		}

		m.lastApplied[key] = value
		m.changes = append(m.changes, Change{Kind: mapping.Kind, Param: mapping.Param, Value: value})
		applied++
	}
}

// SaveSet stores the current mappings under the given id and name.
func (m *Mapper) SaveSet(id, name string) error {
	if m.store == nil {
		return ErrNoStore
	}

	m.mu.Lock()
	set := MappingSet{ID: id, Name: name, Mappings: make([]Mapping, len(m.mappings))}
	copy(set.Mappings, m.mappings)
	m.mu.Unlock()

	if err := m.store.Save(set); err != nil {
		return fmt.Errorf("mapper: save %q: %w", id, err)
	}

	return nil
}

// LoadSet replaces the active mappings with a stored set and rewires the
// graph for it.
func (m *Mapper) LoadSet(id string) error {
	if m.store == nil {
		return ErrNoStore
	}

	set, err := m.store.Load(id)
	if err != nil {
		return fmt.Errorf("mapper: load %q: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.installLocked(set.Mappings, defaultLoadWet)

	return nil
}

// ListSets lists stored mapping sets.
func (m *Mapper) ListSets() ([]MappingSetInfo, error) {
	if m.store == nil {
		return nil, ErrNoStore
	}

	return m.store.List()
}

// DeleteSet removes a stored mapping set.
func (m *Mapper) DeleteSet(id string) error {
	if m.store == nil {
		return ErrNoStore
	}

	if err := m.store.Delete(id); err != nil {
		return fmt.Errorf("mapper: delete %q: %w", id, err)
	}

	return nil
}
