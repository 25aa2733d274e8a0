package actions

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/tablecore/engine/internal/store"
	"github.com/tablecore/engine/internal/types"
)

// testSceneFixture is the fixed deterministic composition spec.md 4.3
// resetToTestScene must produce: 5 stacks, 3 tokens, 2 zones, 3 mats, 2
// counters at documented coordinates. It is authored as TOML, the format
// the teacher reaches for whenever a fixture needs to be hand-edited and
// diffed (its formula.go fixtures are TOML for the same reason), and
// decoded with BurntSushi/toml rather than built as Go literals so the
// scene composition can be audited independently of the code that plays it
// back.
const testSceneFixture = `
[[object]]
kind = "stack"
x = -300.0
y = -150.0
cards = ["AS", "KH", "QD", "JC", "10S"]

[[object]]
kind = "stack"
x = -150.0
y = -150.0
cards = ["9H", "8D", "7C"]

[[object]]
kind = "stack"
x = 0.0
y = -150.0
cards = ["6S", "5H"]

[[object]]
kind = "stack"
x = 150.0
y = -150.0
cards = ["4D"]

[[object]]
kind = "stack"
x = 300.0
y = -150.0
cards = []

[[object]]
kind = "token"
x = -200.0
y = 0.0

[[object]]
kind = "token"
x = 0.0
y = 0.0

[[object]]
kind = "token"
x = 200.0
y = 0.0

[[object]]
kind = "zone"
x = -250.0
y = 150.0

[[object]]
kind = "zone"
x = 250.0
y = 150.0

[[object]]
kind = "mat"
x = -300.0
y = 300.0

[[object]]
kind = "mat"
x = 0.0
y = 300.0

[[object]]
kind = "mat"
x = 300.0
y = 300.0

[[object]]
kind = "counter"
x = -100.0
y = 450.0

[[object]]
kind = "counter"
x = 100.0
y = 450.0
`

type fixtureObject struct {
	Kind  string   `toml:"kind"`
	X     float64  `toml:"x"`
	Y     float64  `toml:"y"`
	Cards []string `toml:"cards"`
}

type fixtureScene struct {
	Object []fixtureObject `toml:"object"`
}

func parseTestScene() (fixtureScene, error) {
	var scene fixtureScene
	if _, err := toml.Decode(testSceneFixture, &scene); err != nil {
		return fixtureScene{}, fmt.Errorf("actions: parsing test scene fixture: %w", err)
	}
	return scene, nil
}

// ResetToTestScene clears the store then creates the fixed composition from
// testSceneFixture, used by the test harness (spec.md 4.3, C10).
func (e *Engine) ResetToTestScene() error {
	scene, err := parseTestScene()
	if err != nil {
		return err
	}

	e.store.ClearAllObjects(store.OriginLocal)

	for _, fo := range scene.Object {
		kind := types.Kind(fo.Kind)
		if !kind.Valid() {
			return fmt.Errorf("actions: test scene fixture: unrecognized kind %q", fo.Kind)
		}
		opts := CreateOptions{
			Kind: kind,
			Pos:  types.Pos{X: fo.X, Y: fo.Y, R: 0},
		}
		if kind == types.KindStack {
			opts.Cards = fo.Cards
		}
		if _, err := e.CreateObject(opts); err != nil {
			return fmt.Errorf("actions: test scene fixture: %w", err)
		}
	}
	return nil
}
