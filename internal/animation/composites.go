// composites.go implements the predefined composite animations spec.md 4.5
// names for determinism ("tests reference these by name"): flip,
// shuffle/wobble, shuffle/spin, and the shuffle/burst family. Each is built
// out of Scheduler.Register calls chained through OnComplete, the same
// "callbacks that register successor animations" pattern spec.md 9 calls
// out explicitly.
package animation

import (
	"github.com/tablecore/engine/internal/types"
)

const msToSeconds = 0.001

// FlipDuration is the default total duration (ms) for the Flip composite,
// split evenly across its two stages (spec.md 4.5: "duration=150").
const FlipDuration = 150.0

// Flip runs the two-stage flip(visualId, onMidpoint, duration) composite:
// compress scaleX 1->0 (ease-in), call onMidpoint, expand scaleX 0->1
// (ease-out).
func (s *Scheduler) Flip(visualID string, onMidpoint func(), durationMS float64) {
	if durationMS <= 0 {
		durationMS = FlipDuration
	}
	half := durationMS * msToSeconds / 2
	s.Register(types.AnimationSpec{
		VisualID:   visualID,
		Property:   types.PropertyScaleX,
		Stage:      "flip-compress",
		FromScalar: 1,
		ToScalar:   0,
		Duration:   half,
		Easing:     types.EasingCubicIn,
		OnComplete: func() {
			if onMidpoint != nil {
				onMidpoint()
			}
			s.Register(types.AnimationSpec{
				VisualID:   visualID,
				Property:   types.PropertyScaleX,
				Stage:      "flip-expand",
				FromScalar: 0,
				ToScalar:   1,
				Duration:   half,
				Easing:     types.EasingCubicOut,
			})
		},
	})
}

// rotationStage is one leg of a chained rotation composite: rotation goes
// fromRot->toRot while scale goes fromScal->toScal over the stage's share
// of the total duration.
type rotationStage struct {
	stage    string
	fromRot  float64
	toRot    float64
	fromScal float64
	toScal   float64
}

// wobbleStageDuration is the per-stage duration for the four-stage rotation
// wobble with a light scale pulse (spec.md 4.5 "shuffle/wobble").
const wobbleStageDuration = 0.09

// ShuffleWobble runs a four-stage rotation wobble with a light scale pulse,
// returning to baseRotation and scale 1 at the end.
func (s *Scheduler) ShuffleWobble(visualID string, baseRotation float64) {
	stages := []rotationStage{
		{"wobble-1", baseRotation, baseRotation + 8, 1.0, 1.08},
		{"wobble-2", baseRotation + 8, baseRotation - 6, 1.08, 0.97},
		{"wobble-3", baseRotation - 6, baseRotation + 3, 0.97, 1.03},
		{"wobble-4", baseRotation + 3, baseRotation, 1.03, 1.0},
	}
	s.registerRotationChain(visualID, stages, wobbleStageDuration)
}

// spinStageDuration and the five-full-turn total match spec.md 4.5
// "shuffle/spin ... summing to exactly five full turns, returning to the
// original rotation."
const spinStageDuration = 0.15
const fullTurn = 360.0

// ShuffleSpin runs a four-stage rotation animation summing to exactly five
// full turns (1800 degrees) before settling back on baseRotation (modulo
// 360, which the action layer normalizes on commit per spec.md 3.2
// invariant 2).
func (s *Scheduler) ShuffleSpin(visualID string, baseRotation float64) {
	perStage := 5 * fullTurn / 4
	stages := []rotationStage{
		{"spin-1", baseRotation, baseRotation + perStage, 1, 1},
		{"spin-2", baseRotation + perStage, baseRotation + 2*perStage, 1, 1},
		{"spin-3", baseRotation + 2*perStage, baseRotation + 3*perStage, 1, 1},
		{"spin-4", baseRotation + 3*perStage, baseRotation + 4*perStage, 1, 1},
	}
	s.registerRotationChain(visualID, stages, spinStageDuration)
}

// registerRotationChain threads a slice of rotation stages together via
// OnComplete, the shared implementation behind ShuffleWobble and
// ShuffleSpin. Using uniform scale to carry the scale pulse alongside a separate
// rotation registration keeps both properties independently keyed, so
// cancelling rotation mid-chain does not also cancel the scale pulse.
func (s *Scheduler) registerRotationChain(visualID string, stages []rotationStage, duration float64) {
	var registerRotation func(i int)
	registerRotation = func(i int) {
		if i >= len(stages) {
			return
		}
		st := stages[i]
		s.Register(types.AnimationSpec{
			VisualID:   visualID,
			Property:   types.PropertyRotation,
			Stage:      st.stage,
			FromScalar: st.fromRot,
			ToScalar:   st.toRot,
			Duration:   duration,
			Easing:     types.EasingCubicInOut,
			OnComplete: func() { registerRotation(i + 1) },
		})
	}
	var registerScale func(i int)
	registerScale = func(i int) {
		if i >= len(stages) {
			return
		}
		st := stages[i]
		s.Register(types.AnimationSpec{
			VisualID:   visualID,
			Property:   types.PropertyScale,
			Stage:      st.stage,
			FromScalar: st.fromScal,
			ToScalar:   st.toScal,
			Duration:   duration,
			Easing:     types.EasingCubicInOut,
			OnComplete: func() { registerScale(i + 1) },
		})
	}
	registerRotation(0)
	registerScale(0)
}

// burstStageDuration is the duration of ShuffleBurst's outward stage; its
// settle stage runs for twice as long. The burst is two stages, not four,
// and burst-background and burst-background-wobble have no separate
// behavior of their own here.
const burstStageDuration = 0.1

// BurstOptions configures a positional burst animation.
type BurstOptions struct {
	FromX, FromY float64
	ToX, ToY     float64
	WithGhost    bool
	// SpawnGhost creates a temporary ghost child; failure is best-effort
	// per spec.md 4.5 and falls back to the animation without a ghost. nil
	// means no ghost support is wired.
	SpawnGhost   func(visualID string) (ghostID string, err error)
	DestroyGhost func(ghostID string)
}

// ShuffleBurst runs the positional burst family (burst, burst-ghost,
// burst-background, burst-background-wobble) collapsed into one
// parameterized two-stage positional animation: out past the midpoint,
// then settle at the destination.
func (s *Scheduler) ShuffleBurst(visualID string, opts BurstOptions) {
	var ghostID string
	if opts.WithGhost && opts.SpawnGhost != nil {
		id, err := opts.SpawnGhost(visualID)
		if err == nil {
			ghostID = id
		}
		// On error, fall through without a ghost (best-effort per spec.md 4.5).
	}

	target := visualID
	if ghostID != "" {
		target = ghostID
	}
	midX := opts.FromX + (opts.ToX-opts.FromX)*0.6
	midY := opts.FromY + (opts.ToY-opts.FromY)*0.6

	cleanup := func() {
		if ghostID != "" && opts.DestroyGhost != nil {
			opts.DestroyGhost(ghostID)
		}
	}

	s.Register(types.AnimationSpec{
		VisualID: target,
		Property: types.PropertyPosition,
		Stage:    "burst-out",
		From:     types.Value2D{X: opts.FromX, Y: opts.FromY},
		To:       types.Value2D{X: midX, Y: midY},
		Duration: burstStageDuration,
		Easing:   types.EasingCubicOut,
		OnComplete: func() {
			s.Register(types.AnimationSpec{
				VisualID:   target,
				Property:   types.PropertyPosition,
				Stage:      "burst-settle",
				From:       types.Value2D{X: midX, Y: midY},
				To:         types.Value2D{X: opts.ToX, Y: opts.ToY},
				Duration:   burstStageDuration * 2,
				Easing:     types.EasingCubicInOut,
				OnComplete: cleanup,
			})
		},
	})
}
