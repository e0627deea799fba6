package cartpole

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"strings"

	"github.com/chewxy/math32"
	crand "github.com/sw965/cartpole/math/rand"
	"gonum.org/v1/gonum/blas/blas32"
)

const (
	Gravity        float32 = 9.8
	CartMass       float32 = 1.0
	PoleMass       float32 = 0.1
	TotalMass              = CartMass + PoleMass
	HalfPoleLength float32 = 0.5
	PoleMassLength         = PoleMass * HalfPoleLength
	ForceMag       float32 = 10.0
	Tau            float32 = 0.02

	XThreshold     float32 = 2.4
	ThetaThreshold float32 = 12.0 * math.Pi / 180.0

	resetBound float32 = 0.05
)

// State is the full configuration of the cart-pole system.
type State struct {
	X        float32
	XDot     float32
	Theta    float32
	ThetaDot float32
}

// Sim integrates the cart-pole equations of motion with an explicit
// Euler step of Tau seconds. Step is deterministic; all randomness
// lives in Reset.
type Sim struct {
	State State
}

func NewSim(rng *rand.Rand) *Sim {
	sim := &Sim{}
	sim.Reset(rng)
	return sim
}

func (s *Sim) Reset(rng *rand.Rand) {
	s.State = State{
		X:        crand.Uniform(-resetBound, resetBound, rng),
		XDot:     crand.Uniform(-resetBound, resetBound, rng),
		Theta:    crand.Uniform(-resetBound, resetBound, rng),
		ThetaDot: crand.Uniform(-resetBound, resetBound, rng),
	}
}

func (s *Sim) Observe() blas32.Vector {
	return blas32.Vector{
		N:    4,
		Inc:  1,
		Data: []float32{s.State.X, s.State.XDot, s.State.Theta, s.State.ThetaDot},
	}
}

func (s *Sim) Step(a Action) bool {
	force := ForceMag
	if a <= 0 {
		force = -ForceMag
	}

	x := s.State.X
	xDot := s.State.XDot
	theta := s.State.Theta
	thetaDot := s.State.ThetaDot

	cosTheta := math32.Cos(theta)
	sinTheta := math32.Sin(theta)

	temp := (force + PoleMassLength*thetaDot*thetaDot*sinTheta) / TotalMass
	thetaAcc := (Gravity*sinTheta - cosTheta*temp) /
		(HalfPoleLength * (4.0/3.0 - PoleMass*cosTheta*cosTheta/TotalMass))
	xAcc := temp - PoleMassLength*thetaAcc*cosTheta/TotalMass

	s.State = State{
		X:        x + Tau*xDot,
		XDot:     xDot + Tau*xAcc,
		Theta:    theta + Tau*thetaDot,
		ThetaDot: thetaDot + Tau*thetaAcc,
	}

	return s.IsFail()
}

func (s *Sim) IsFail() bool {
	return math32.Abs(s.State.X) > XThreshold || math32.Abs(s.State.Theta) > ThetaThreshold
}

const trackCols = 41

// Render writes a one-frame text picture of the track, cart and pole.
func (s *Sim) Render(w io.Writer) error {
	col := int((s.State.X + XThreshold) / (2 * XThreshold) * float32(trackCols-1))
	if col < 0 {
		col = 0
	}
	if col > trackCols-1 {
		col = trackCols - 1
	}

	pole := "|"
	if s.State.Theta > ThetaThreshold/3 {
		pole = "/"
	} else if s.State.Theta < -ThetaThreshold/3 {
		pole = "\\"
	}

	poleLine := strings.Repeat(" ", col) + pole
	cartLine := strings.Repeat(" ", col) + "#"
	track := strings.Repeat("=", trackCols)

	_, err := fmt.Fprintf(w, "%s\n%s\n%s\nx=%+.3f theta=%+.3f\n", poleLine, cartLine, track, s.State.X, s.State.Theta)
	return err
}
