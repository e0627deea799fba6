package policy

import (
	tensor2d "github.com/sw965/cartpole/blas32/tensor/2d"
	"github.com/sw965/cartpole/blas32/vector"
	omwjson "github.com/sw965/omw/json"
	"gonum.org/v1/gonum/blas/blas32"
)

// Parameter holds the weights of the feed-forward policy network.
// Weights[i] has rows = input width, cols = output width of layer i.
type Parameter struct {
	Weights []blas32.General
	Biases  []blas32.Vector
}

func LoadParameterJSON(path string) (Parameter, error) {
	return omwjson.Load[Parameter](path)
}

func (p *Parameter) WriteJSON(path string) error {
	return omwjson.Write[Parameter](p, path)
}

func (p Parameter) Clone() Parameter {
	weights := make([]blas32.General, len(p.Weights))
	for i, w := range p.Weights {
		weights[i] = tensor2d.Clone(w)
	}
	biases := make([]blas32.Vector, len(p.Biases))
	for i, b := range p.Biases {
		biases[i] = vector.Clone(b)
	}
	return Parameter{Weights: weights, Biases: biases}
}

func (p *Parameter) NewGradZerosLike() GradBuffer {
	weights := make([]blas32.General, len(p.Weights))
	for i, w := range p.Weights {
		weights[i] = tensor2d.NewZerosLike(w)
	}
	biases := make([]blas32.Vector, len(p.Biases))
	for i, b := range p.Biases {
		biases[i] = vector.NewZerosLike(b)
	}
	return GradBuffer{Weights: weights, Biases: biases}
}

func (p *Parameter) AxpyGrad(alpha float32, grad *GradBuffer) {
	for i, w := range p.Weights {
		tensor2d.Axpy(alpha, grad.Weights[i], w)
	}
	for i, b := range p.Biases {
		blas32.Axpy(alpha, grad.Biases[i], b)
	}
}
