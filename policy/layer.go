package policy

import (
	"slices"

	"github.com/chewxy/math32"
	tensor2d "github.com/sw965/cartpole/blas32/tensor/2d"
	"github.com/sw965/cartpole/blas32/vector"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

type Forward func(blas32.Vector) (blas32.Vector, Backward, error)
type Forwards []Forward

func (fs Forwards) Propagate(x blas32.Vector) (blas32.Vector, Backwards, error) {
	var err error
	var backward Backward
	backwards := make(Backwards, len(fs))
	for i, f := range fs {
		x, backward, err = f(x)
		if err != nil {
			return blas32.Vector{}, nil, err
		}
		backwards[i] = backward
	}
	y := x
	slices.Reverse(backwards)
	return y, backwards, nil
}

type Backward func(blas32.Vector, *GradBuffer) (blas32.Vector, error)
type Backwards []Backward

func (bs Backwards) Propagate(chain blas32.Vector) (blas32.Vector, GradBuffer, error) {
	n := len(bs)
	grad := GradBuffer{
		Weights: make([]blas32.General, 0, n),
		Biases:  make([]blas32.Vector, 0, n),
	}
	var err error

	for _, b := range bs {
		chain, err = b(chain, &grad)
		if err != nil {
			return blas32.Vector{}, GradBuffer{}, err
		}
	}

	slices.Reverse(grad.Weights)
	slices.Reverse(grad.Biases)
	dx := chain
	return dx, grad, nil
}

func NewAffineForward(w blas32.General, b blas32.Vector) Forward {
	return func(x blas32.Vector) (blas32.Vector, Backward, error) {
		y := vector.Affine(x, w, b)
		var backward Backward
		backward = func(chain blas32.Vector, grad *GradBuffer) (blas32.Vector, error) {
			// ∂L/∂w
			dw := tensor2d.Outer(1.0, x, chain)
			grad.Weights = append(grad.Weights, dw)

			// ∂L/∂b
			db := vector.Clone(chain)
			grad.Biases = append(grad.Biases, db)

			// ∂L/∂x
			dx := vector.NewZeros(x.N)
			blas32.Gemv(blas.NoTrans, 1.0, w, chain, 0.0, dx)
			return dx, nil
		}
		return y, backward, nil
	}
}

func NewELUForward(alpha float32) Forward {
	return func(x blas32.Vector) (blas32.Vector, Backward, error) {
		y := vector.NewZerosLike(x)
		for i, xi := range x.Data {
			if xi > 0 {
				y.Data[i] = xi
			} else {
				y.Data[i] = alpha * (math32.Exp(xi) - 1.0)
			}
		}

		var backward Backward
		backward = func(chain blas32.Vector, grad *GradBuffer) (blas32.Vector, error) {
			dx := vector.NewZerosLike(chain)
			for i, xi := range x.Data {
				if xi > 0 {
					dx.Data[i] = chain.Data[i]
				} else {
					dx.Data[i] = chain.Data[i] * (y.Data[i] + alpha)
				}
			}
			return dx, nil
		}
		return y, backward, nil
	}
}
