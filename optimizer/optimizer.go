package optimizer

import (
	"github.com/chewxy/math32"
	"github.com/sw965/cartpole/policy"
)

// Optimizer applies one aggregated gradient to the parameters.
// Implementations mutate param in place and own any internal state
// (velocity, moment estimates) across calls.
type Optimizer interface {
	Update(param *policy.Parameter, grad *policy.GradBuffer)
}

type SGD struct {
	LearningRate float32
}

func (o *SGD) Update(param *policy.Parameter, grad *policy.GradBuffer) {
	param.AxpyGrad(-o.LearningRate, grad)
}

type Momentum struct {
	LearningRate float32
	Momentum     float32
	velocity     *policy.GradBuffer
}

func (o *Momentum) Update(param *policy.Parameter, grad *policy.GradBuffer) {
	if o.velocity == nil {
		v := param.NewGradZerosLike()
		o.velocity = &v
	}
	o.velocity.Scal(o.Momentum)
	o.velocity.Axpy(-o.LearningRate, grad)
	param.AxpyGrad(1.0, o.velocity)
}

type Adam struct {
	LearningRate float32
	Beta1        float32
	Beta2        float32
	Epsilon      float32

	moment1 *policy.GradBuffer
	moment2 *policy.GradBuffer
	t       int
}

func NewAdam(lr float32) *Adam {
	return &Adam{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

func (o *Adam) Update(param *policy.Parameter, grad *policy.GradBuffer) {
	if o.moment1 == nil {
		m1 := param.NewGradZerosLike()
		m2 := param.NewGradZerosLike()
		o.moment1 = &m1
		o.moment2 = &m2
	}
	o.t++

	c1 := 1.0 - math32.Pow(o.Beta1, float32(o.t))
	c2 := 1.0 - math32.Pow(o.Beta2, float32(o.t))

	step := func(w, g, m1, m2 []float32) {
		for i, gi := range g {
			m1[i] = o.Beta1*m1[i] + (1.0-o.Beta1)*gi
			m2[i] = o.Beta2*m2[i] + (1.0-o.Beta2)*gi*gi
			mHat := m1[i] / c1
			vHat := m2[i] / c2
			w[i] -= o.LearningRate * mHat / (math32.Sqrt(vHat) + o.Epsilon)
		}
	}

	for i, g := range grad.Weights {
		step(param.Weights[i].Data, g.Data, o.moment1.Weights[i].Data, o.moment2.Weights[i].Data)
	}
	for i, g := range grad.Biases {
		step(param.Biases[i].Data, g.Data, o.moment1.Biases[i].Data, o.moment2.Biases[i].Data)
	}
}
