package cartpole_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/sw965/cartpole"
	omwrand "github.com/sw965/omw/math/rand"
)

func TestStepDeterminism(t *testing.T) {
	rng := omwrand.NewMt19937()
	sim1 := cartpole.NewSim(rng)
	sim2 := &cartpole.Sim{State: sim1.State}

	actions := []cartpole.Action{
		cartpole.Right, cartpole.Right, cartpole.Left,
		cartpole.Right, cartpole.Left, cartpole.Left,
	}
	for _, a := range actions {
		done1 := sim1.Step(a)
		done2 := sim2.Step(a)
		if done1 != done2 {
			t.Fatalf("done mismatch: %v != %v", done1, done2)
		}
		if sim1.State != sim2.State {
			t.Fatalf("state mismatch: %+v != %+v", sim1.State, sim2.State)
		}
	}
}

func TestStepFailsPastPositionThreshold(t *testing.T) {
	for _, a := range []cartpole.Action{cartpole.Left, cartpole.Right} {
		sim := &cartpole.Sim{State: cartpole.State{X: cartpole.XThreshold + 0.001}}
		if done := sim.Step(a); !done {
			t.Errorf("action %d: expected done at x past threshold", a)
		}
	}
}

func TestStepInsideBounds(t *testing.T) {
	sim := &cartpole.Sim{}
	if done := sim.Step(cartpole.Right); done {
		t.Errorf("expected done = false from the upright rest state, got state %+v", sim.State)
	}
}

func TestResetBounds(t *testing.T) {
	rng := omwrand.NewMt19937()
	sim := &cartpole.Sim{}
	for i := 0; i < 100; i++ {
		sim.Reset(rng)
		s := sim.State
		for _, v := range []float32{s.X, s.XDot, s.Theta, s.ThetaDot} {
			if math32.Abs(v) > 0.05 {
				t.Fatalf("reset value %v out of range", v)
			}
		}
	}
}

func TestRenderFrame(t *testing.T) {
	sim := &cartpole.Sim{State: cartpole.State{X: 0.5, Theta: 0.01}}
	stateBefore := sim.State

	var buf bytes.Buffer
	if err := sim.Render(&buf); err != nil {
		panic(err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected a 4-line frame, got %d lines: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "|") {
		t.Errorf("upright pole missing from %q", lines[0])
	}
	if !strings.Contains(lines[1], "#") {
		t.Errorf("cart missing from %q", lines[1])
	}
	if !strings.Contains(lines[2], "=") {
		t.Errorf("track missing from %q", lines[2])
	}

	// 描画は状態を変えないこと
	if sim.State != stateBefore {
		t.Errorf("rendering changed the state: %+v != %+v", sim.State, stateBefore)
	}
}

func TestObserveReflectsState(t *testing.T) {
	sim := &cartpole.Sim{State: cartpole.State{X: 0.1, XDot: -0.2, Theta: 0.03, ThetaDot: 0.4}}
	obs := sim.Observe()
	expected := []float32{0.1, -0.2, 0.03, 0.4}
	for i, e := range expected {
		if obs.Data[i] != e {
			t.Errorf("obs[%d] = %v, expected %v", i, obs.Data[i], e)
		}
	}

	// 観測は状態のコピーであること
	obs.Data[0] = 99.0
	if sim.State.X != 0.1 {
		t.Errorf("observation aliased the internal state")
	}
}
