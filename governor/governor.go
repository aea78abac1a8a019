// Package governor watches processing cost and frame cadence, and steps the
// engine through Normal, Reduced, and Minimal operating levels when the host
// cannot keep up.
package governor

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/MariaGuerraSappho/manos/effect"
)

// Level is the current operating level.
type Level int

const (
	Normal Level = iota
	Reduced
	Minimal
)

func (l Level) String() string {
	switch l {
	case Normal:
		return "normal"
	case Reduced:
		return "reduced"
	case Minimal:
		return "minimal"
	default:
		return "level(?)"
	}
}

// Notifier receives level transitions. The engine wires whatever UI or log
// surface it wants here.
type Notifier interface {
	LevelChanged(level Level, reason string)
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(level Level, reason string)

// LevelChanged calls f.
func (f NotifierFunc) LevelChanged(level Level, reason string) { f(level, reason) }

// Constraints is what a level imposes on the rest of the engine.
type Constraints struct {
	Level            Level
	Whitelist        []effect.Kind
	ChaosCeiling     float64
	MinFrameInterval time.Duration
	Throttled        bool
	IntensityCaps    map[effect.Kind]map[string]float64
}

const (
	// heavyThreshold marks one frame as heavy; heavyRun frames in a row
	// escalate one level.
	heavyThreshold = 8 * time.Millisecond
	heavyRun       = 6

	// glitchGap is an update stall; glitchRun stalls escalate. Stalls during
	// the warmup window after start or reset are expected and ignored.
	glitchGap = 250 * time.Millisecond
	glitchRun = 3
	warmup    = 3 * time.Second

	// cooldown without a heavy event restores Normal.
	cooldown = 7 * time.Second
)

var (
	reducedWhitelist = []effect.Kind{
		effect.Filter, effect.EQ, effect.Panner, effect.Tremolo, effect.Delay, effect.Volume,
	}
	minimalWhitelist = []effect.Kind{effect.Filter, effect.Volume}
)

type config struct {
	log *log.Logger
	now func() time.Time
}

// Option adjusts governor construction.
type Option func(*config)

// WithLogger routes transition logs to l.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// Governor is the performance state machine. ObserveCost is its only input;
// it derives both heavy frames and update gaps from the observation stream.
type Governor struct {
	mu sync.Mutex

	log      *log.Logger
	now      func() time.Time
	notifier Notifier
	onChange func(Constraints)

	level Level

	started     time.Time
	lastObserve time.Time
	hasObserve  bool

	heavyStreak  int
	glitchCount  int
	lastHeavyEvt time.Time
	hasHeavyEvt  bool
}

// New creates a governor at Normal level.
func New(opts ...Option) *Governor {
	cfg := config{
		log: log.New(io.Discard, "", 0),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Governor{
		log:     cfg.log,
		now:     cfg.now,
		started: cfg.now(),
	}
}

// SetNotifier registers the transition listener.
func (g *Governor) SetNotifier(n Notifier) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.notifier = n
}

// SetConstraintsFunc registers the callback invoked with the new constraints
// on every transition.
func (g *Governor) SetConstraintsFunc(fn func(Constraints)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.onChange = fn
}

// Level returns the current operating level.
func (g *Governor) Level() Level {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.level
}

// Constraints returns the constraints for the current level.
func (g *Governor) Constraints() Constraints {
	g.mu.Lock()
	defer g.mu.Unlock()

	return constraintsFor(g.level)
}

// ObserveCost feeds one frame's processing cost. Call it once per evaluated
// frame; the gap between calls doubles as the stall detector.
func (g *Governor) ObserveCost(cost time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	if g.hasObserve && now.Sub(g.started) > warmup && now.Sub(g.lastObserve) > glitchGap {
		g.glitchCount++

		if g.glitchCount >= glitchRun {
			g.glitchCount = 0
			g.escalateLocked(now, "repeated update stalls")
		}
	}

	g.lastObserve = now
	g.hasObserve = true

	g.costLocked(now, cost)
}

// ObserveRenderCost feeds one audio block's processing cost. Blocks arrive
// at audio rate, so they count toward heavy-frame escalation but not toward
// the stall detector.
func (g *Governor) ObserveRenderCost(cost time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.costLocked(g.now(), cost)
}

func (g *Governor) costLocked(now time.Time, cost time.Duration) {
	if cost > heavyThreshold {
		g.heavyStreak++
		g.lastHeavyEvt = now
		g.hasHeavyEvt = true

		if g.heavyStreak >= heavyRun {
			g.heavyStreak = 0
			g.escalateLocked(now, "sustained heavy frames")
		}

		return
	}

	g.heavyStreak = 0

	if g.level != Normal && g.hasHeavyEvt && now.Sub(g.lastHeavyEvt) > cooldown {
		g.transitionLocked(Normal, "recovered after cooldown")
	}
}

func (g *Governor) escalateLocked(now time.Time, reason string) {
	next := g.level + 1
	if next > Minimal {
		return
	}

	g.lastHeavyEvt = now
	g.hasHeavyEvt = true
	g.transitionLocked(next, reason)
}

func (g *Governor) transitionLocked(next Level, reason string) {
	if next == g.level {
		return
	}

	g.level = next
	g.log.Printf("governor: level %v (%s)", next, reason)

	if g.notifier != nil {
		g.notifier.LevelChanged(next, reason)
	}

	if g.onChange != nil {
		g.onChange(constraintsFor(next))
	}
}

func constraintsFor(level Level) Constraints {
	switch level {
	case Reduced:
		return Constraints{
			Level:            Reduced,
			Whitelist:        append([]effect.Kind(nil), reducedWhitelist...),
			ChaosCeiling:     0.6,
			MinFrameInterval: 33 * time.Millisecond,
			Throttled:        true,
			IntensityCaps: map[effect.Kind]map[string]float64{
				effect.Reverb: {"decay": 0.7, effect.WetParam: 0.5},
				effect.Delay:  {"feedback": 0.5, effect.WetParam: 0.6},
			},
		}
	case Minimal:
		return Constraints{
			Level:            Minimal,
			Whitelist:        append([]effect.Kind(nil), minimalWhitelist...),
			ChaosCeiling:     0.3,
			MinFrameInterval: 33 * time.Millisecond,
			Throttled:        true,
			IntensityCaps: map[effect.Kind]map[string]float64{
				effect.Reverb: {"decay": 0.4, effect.WetParam: 0.2},
				effect.Delay:  {"feedback": 0.3, effect.WetParam: 0.3},
			},
		}
	default:
		return Constraints{
			Level:            Normal,
			Whitelist:        effect.ModulatedKinds(),
			ChaosCeiling:     1.0,
			MinFrameInterval: 16 * time.Millisecond,
		}
	}
}
