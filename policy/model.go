package policy

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/sw965/cartpole"
	tensor2d "github.com/sw965/cartpole/blas32/tensor/2d"
	"github.com/sw965/cartpole/blas32/vector"
	omwrand "github.com/sw965/omw/math/rand"
	"gonum.org/v1/gonum/blas/blas32"
)

const ELUAlpha float32 = 1.0

// Model maps a cart-pole observation to a distribution over the two
// actions. The single output scalar is the logit of P(Right).
//
// A Model is built either from hidden-layer widths (New) or from a
// previously trained Parameter (FromParameter); the two construction
// modes are separate constructors on purpose.
type Model struct {
	Parameter Parameter
	forwards  Forwards
}

func New(hiddens []int, rng *rand.Rand) (*Model, error) {
	if len(hiddens) == 0 {
		return nil, fmt.Errorf("policy: at least one hidden layer width is required")
	}
	for i, h := range hiddens {
		if h <= 0 {
			return nil, fmt.Errorf("policy: hidden layer width must be positive, got %d at index %d", h, i)
		}
	}

	widths := make([]int, 0, len(hiddens)+2)
	widths = append(widths, cartpole.ObservationSize)
	widths = append(widths, hiddens...)
	widths = append(widths, 1)

	param := Parameter{}
	for i := 0; i < len(widths)-1; i++ {
		w := tensor2d.NewHe(widths[i], widths[i+1], rng)
		b := vector.NewZeros(widths[i+1])
		param.Weights = append(param.Weights, w)
		param.Biases = append(param.Biases, b)
	}

	m := &Model{Parameter: param}
	m.resetForwards()
	return m, nil
}

func FromParameter(param Parameter) (*Model, error) {
	n := len(param.Weights)
	if n == 0 {
		return nil, fmt.Errorf("policy: parameter has no layers")
	}
	if n != len(param.Biases) {
		return nil, fmt.Errorf("policy: weight layer count %d != bias layer count %d", n, len(param.Biases))
	}

	if param.Weights[0].Rows != cartpole.ObservationSize {
		return nil, fmt.Errorf("policy: first layer expects %d inputs, got %d", cartpole.ObservationSize, param.Weights[0].Rows)
	}
	if param.Weights[n-1].Cols != 1 {
		return nil, fmt.Errorf("policy: last layer must output one logit, got %d", param.Weights[n-1].Cols)
	}

	for i := 0; i < n; i++ {
		if param.Biases[i].N != param.Weights[i].Cols {
			return nil, fmt.Errorf("policy: layer %d bias length %d != output width %d", i, param.Biases[i].N, param.Weights[i].Cols)
		}
		if i+1 < n && param.Weights[i].Cols != param.Weights[i+1].Rows {
			return nil, fmt.Errorf("policy: layer %d output width %d != layer %d input width %d", i, param.Weights[i].Cols, i+1, param.Weights[i+1].Rows)
		}
	}

	m := &Model{Parameter: param}
	m.resetForwards()
	return m, nil
}

// resetForwards rebinds the forward chain to the current Parameter
// storage. Must be called again if the slices themselves are replaced.
func (m *Model) resetForwards() {
	n := len(m.Parameter.Weights)
	m.forwards = make(Forwards, 0, 2*n-1)
	for i := 0; i < n; i++ {
		m.forwards = append(m.forwards, NewAffineForward(m.Parameter.Weights[i], m.Parameter.Biases[i]))
		if i < n-1 {
			m.forwards = append(m.forwards, NewELUForward(ELUAlpha))
		}
	}
}

// HiddenWidths reports the architecture implied by the parameter shapes.
func (m *Model) HiddenWidths() []int {
	n := len(m.Parameter.Weights)
	hiddens := make([]int, 0, n-1)
	for _, w := range m.Parameter.Weights[:n-1] {
		hiddens = append(hiddens, w.Cols)
	}
	return hiddens
}

func (m *Model) Logit(x blas32.Vector) (float32, error) {
	y, _, err := m.forwards.Propagate(x)
	if err != nil {
		return 0.0, err
	}
	return y.Data[0], nil
}

// Prob returns P(Right) for the observation.
func (m *Model) Prob(x blas32.Vector) (float32, error) {
	logit, err := m.Logit(x)
	return sigmoid(logit), err
}

// SampleAction draws one action from the policy distribution and
// returns with it the gradient of -log π(a|s) with respect to the
// parameters, in one forward/backward pass.
func (m *Model) SampleAction(x blas32.Vector, rng *rand.Rand) (cartpole.Action, GradBuffer, error) {
	y, backwards, err := m.forwards.Propagate(x)
	if err != nil {
		return 0, GradBuffer{}, err
	}

	logit := y.Data[0]
	p := sigmoid(logit)
	idx := omwrand.IntByWeight([]float32{p, 1.0 - p}, rng)

	action := cartpole.Right
	// 選んだ行動を正解ラベルとして扱う
	t := float32(1.0)
	if idx != 0 {
		action = cartpole.Left
		t = 0.0
	}

	// d(クロスエントロピー)/d(logit) = p - t
	chain := vector.New(p - t)
	_, grad, err := backwards.Propagate(chain)
	return action, grad, err
}

// ActionGrad is SampleAction with the realized action supplied by the
// caller instead of sampled.
func (m *Model) ActionGrad(x blas32.Vector, a cartpole.Action) (GradBuffer, error) {
	y, backwards, err := m.forwards.Propagate(x)
	if err != nil {
		return GradBuffer{}, err
	}

	p := sigmoid(y.Data[0])
	t := float32(0.0)
	if a > 0 {
		t = 1.0
	}

	chain := vector.New(p - t)
	_, grad, err := backwards.Propagate(chain)
	return grad, err
}

// Act samples an action without any gradient bookkeeping.
func (m *Model) Act(x blas32.Vector, rng *rand.Rand) (cartpole.Action, error) {
	p, err := m.Prob(x)
	if err != nil {
		return 0, err
	}
	if omwrand.IntByWeight([]float32{p, 1.0 - p}, rng) == 0 {
		return cartpole.Right, nil
	}
	return cartpole.Left, nil
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + math32.Exp(-x))
}
