// Package animation implements the Animation Scheduler (spec.md 4.5, C5): a
// time-indexed, per-(visual, property, stage) set of active interpolations
// driven by a single ticker that starts on first registration and stops
// when the active set empties. Grounded on the teacher's daemon event loop
// (cmd/bd/daemon_event_loop.go), which owns one ticker per periodic concern
// and tears it down on an empty/idle condition — generalized here to a
// single ticker shared by every active animation, per spec.md 4.5's "a
// single animation ticker, owned by the scheduler."
package animation

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tablecore/engine/internal/types"
)

// TickInterval is the scheduler's frame period. 60Hz matches the frame
// cadence spec.md 4.5 assumes ("one tick = one suspension", spec.md 5).
const TickInterval = time.Second / 60

// Sink receives the per-frame interpolated value for one animation. C6 (the
// Visual Manager) is the production Sink, writing the value onto the
// visual's scene-graph container; tests supply a recording Sink.
type Sink interface {
	ApplyAnimationFrame(visualID string, property types.PropertyType, value types.Value2D, scalar float64, t float64)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(visualID string, property types.PropertyType, value types.Value2D, scalar float64, t float64)

func (f SinkFunc) ApplyAnimationFrame(visualID string, property types.PropertyType, value types.Value2D, scalar float64, t float64) {
	f(visualID, property, value, scalar, t)
}

type activeAnimation struct {
	spec    types.AnimationSpec
	started time.Time
	ease    EaseFunc
}

// Scheduler is the C5 contract.
type Scheduler struct {
	mu     sync.Mutex
	sink   Sink
	active map[string]*activeAnimation
	now    func() time.Time

	tickerMu sync.Mutex
	stop     chan struct{}
	running  bool
}

// New constructs a Scheduler writing interpolated frames to sink.
func New(sink Sink) *Scheduler {
	return &Scheduler{
		sink:   sink,
		active: make(map[string]*activeAnimation),
		now:    time.Now,
	}
}

// Register adds or replaces the animation at spec.Key() (spec.md 4.5:
// "Registering a new animation with the same key replaces the previous
// one."), starting the ticker if this is the first active animation.
func (s *Scheduler) Register(spec types.AnimationSpec) {
	s.mu.Lock()
	s.active[spec.Key()] = &activeAnimation{
		spec:    spec,
		started: s.now(),
		ease:    resolveEasing(spec.Easing),
	}
	empty := len(s.active) == 1
	s.mu.Unlock()
	if empty {
		s.startTicker()
	}
}

// Cancel removes the (visualID, property) animation and every staged
// variant of it (spec.md 4.5, 5: "cancellation of (visualId, type) also
// removes every (visualId, type, *) variant").
func (s *Scheduler) Cancel(visualID string, property types.PropertyType) {
	prefix := visualID + ":" + string(property)
	s.mu.Lock()
	for k := range s.active {
		if k == prefix || len(k) > len(prefix) && k[:len(prefix)+1] == prefix+":" {
			delete(s.active, k)
		}
	}
	s.mu.Unlock()
}

// CancelAll removes every animation for visualID (spec.md 5: "cancelling
// all for a visual clears every key prefixed by visualId:").
func (s *Scheduler) CancelAll(visualID string) {
	prefix := visualID + ":"
	s.mu.Lock()
	for k := range s.active {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(s.active, k)
		}
	}
	s.mu.Unlock()
}

// ActiveCount reports the current active-set size, used by the test harness
// checkAnimationState (C10) and property P9.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// IsActive reports whether any animation with the given key is active.
func (s *Scheduler) IsActive(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[key]
	return ok
}

func (s *Scheduler) startTicker() {
	s.tickerMu.Lock()
	defer s.tickerMu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	go s.run(stop)
}

func (s *Scheduler) stopTicker() {
	s.tickerMu.Lock()
	defer s.tickerMu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
}

func (s *Scheduler) run(stop chan struct{}) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if s.tick() {
				s.stopTicker()
				return
			}
		}
	}
}

// tick runs exactly one frame and reports whether the scheduler should stop
// (the active set is empty after this frame). Any panic during a frame is
// recovered, the active set cleared, and true returned — spec.md 4.5's
// fault policy: "any exception within the tick loop stops the ticker and
// clears the active set rather than looping forever on errors."
func (s *Scheduler) tick() (shouldStop bool) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "animation: tick panic, stopping ticker and clearing active set: %v\n", r)
			s.mu.Lock()
			s.active = make(map[string]*activeAnimation)
			s.mu.Unlock()
			shouldStop = true
		}
	}()

	now := s.now()
	s.mu.Lock()
	snapshot := make([]*activeAnimation, 0, len(s.active))
	for _, a := range s.active {
		snapshot = append(snapshot, a)
	}
	s.mu.Unlock()

	var completed []*activeAnimation
	for _, a := range snapshot {
		elapsed := now.Sub(a.started).Seconds()
		t := clamp01(elapsed / a.spec.Duration)
		eased := a.ease(t)

		value := types.Value2D{
			X: lerp(a.spec.From.X, a.spec.To.X, eased),
			Y: lerp(a.spec.From.Y, a.spec.To.Y, eased),
		}
		scalar := lerp(a.spec.FromScalar, a.spec.ToScalar, eased)
		s.sink.ApplyAnimationFrame(a.spec.VisualID, a.spec.Property, value, scalar, t)

		if t >= 1 {
			completed = append(completed, a)
		}
	}

	// Completion callbacks fire before deletion, and may register successor
	// animations (spec.md 4.5, 5: "live on the next tick").
	for _, a := range completed {
		if a.spec.OnComplete != nil {
			a.spec.OnComplete()
		}
	}

	s.mu.Lock()
	for _, a := range completed {
		if cur, ok := s.active[a.spec.Key()]; ok && cur == a {
			delete(s.active, a.spec.Key())
		}
	}
	empty := len(s.active) == 0
	s.mu.Unlock()

	return empty
}
