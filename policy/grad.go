package policy

import (
	tensor2d "github.com/sw965/cartpole/blas32/tensor/2d"
	"github.com/sw965/cartpole/blas32/vector"
	"gonum.org/v1/gonum/blas/blas32"
)

// GradBuffer mirrors Parameter shape for shape. Layer index is the
// stable parameter identity.
type GradBuffer struct {
	Weights []blas32.General
	Biases  []blas32.Vector
}

func (g GradBuffer) NewZerosLike() GradBuffer {
	weights := make([]blas32.General, len(g.Weights))
	for i, w := range g.Weights {
		weights[i] = tensor2d.NewZerosLike(w)
	}
	biases := make([]blas32.Vector, len(g.Biases))
	for i, b := range g.Biases {
		biases[i] = vector.NewZerosLike(b)
	}
	return GradBuffer{Weights: weights, Biases: biases}
}

func (g GradBuffer) Clone() GradBuffer {
	weights := make([]blas32.General, len(g.Weights))
	for i, w := range g.Weights {
		weights[i] = tensor2d.Clone(w)
	}
	biases := make([]blas32.Vector, len(g.Biases))
	for i, b := range g.Biases {
		biases[i] = vector.Clone(b)
	}
	return GradBuffer{Weights: weights, Biases: biases}
}

func (g *GradBuffer) Axpy(alpha float32, x *GradBuffer) {
	for i, w := range g.Weights {
		tensor2d.Axpy(alpha, x.Weights[i], w)
	}
	for i, b := range g.Biases {
		blas32.Axpy(alpha, x.Biases[i], b)
	}
}

func (g *GradBuffer) Scal(alpha float32) {
	for _, w := range g.Weights {
		tensor2d.Scal(alpha, w)
	}
	for _, b := range g.Biases {
		blas32.Scal(alpha, b)
	}
}
