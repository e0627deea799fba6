package cartpole

import (
	"io"
	"math/rand"

	"gonum.org/v1/gonum/blas/blas32"
)

// ObservationSize is the length of the vector Observe returns.
const ObservationSize = 4

// Action is the direction of the force applied to the cart.
// Positive pushes the cart in the positive x direction.
type Action int

const (
	Left  Action = -1
	Right Action = 1
)

// Environment drives one episode at a time.
type Environment interface {
	Reset(rng *rand.Rand)
	Observe() blas32.Vector
	Step(a Action) bool
}

// Renderable draws the current state onto an output surface.
// Rendering must not change the state.
type Renderable interface {
	Render(w io.Writer) error
}
