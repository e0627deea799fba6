package reinforce

import (
	"fmt"
	"io"
	"math/rand"
	"sync/atomic"

	"github.com/sw965/cartpole"
	"github.com/sw965/cartpole/optimizer"
	"github.com/sw965/cartpole/policy"
	"github.com/sw965/cartpole/reward"
	omwrand "github.com/sw965/omw/math/rand"
)

// StepHook runs after every simulation step, EpisodeHook after every
// finished episode. Both are yield points for the host run-loop and
// take no part in the math.
type StepHook func(env cartpole.Environment)
type EpisodeHook func(episode, steps int)
type IterationHook func(iteration int, steps []int)

// Trainer runs REINFORCE training rounds: a batch of episodes, then
// exactly one parameter update. All mutable state is owned by the one
// goroutine calling Train; only Stop may be called from outside it.
type Trainer struct {
	Env       cartpole.Environment
	Model     *policy.Model
	Optimizer optimizer.Optimizer
	Rng       *rand.Rand

	StepHook      StepHook
	EpisodeHook   EpisodeHook
	IterationHook IterationHook

	// RenderWriter is the surface frames are drawn on when the config
	// asks for rendering and Env is Renderable.
	RenderWriter io.Writer

	stop atomic.Bool
}

// Stop requests a cooperative stop. It is honored at the next
// iteration boundary; an in-flight iteration still completes its
// parameter update.
func (t *Trainer) Stop() {
	t.stop.Store(true)
}

func (t *Trainer) ensureDefaults(c *Config) error {
	if t.Env == nil {
		return fmt.Errorf("reinforce: Env must not be nil")
	}
	if t.Model == nil {
		return fmt.Errorf("reinforce: Model must not be nil")
	}
	if t.Rng == nil {
		t.Rng = omwrand.NewMt19937()
	}
	if t.Optimizer == nil {
		t.Optimizer = optimizer.NewAdam(c.LearningRate)
	}
	return nil
}

// Playout rolls one episode to failure or the step cap. The returned
// reward and gradient sequences have identical length, one entry per
// step taken; the terminal (failure) step earns reward 0, every other
// step reward 1. A nil Rng gets a default; Env and Model must be set.
func (t *Trainer) Playout(maxSteps int, render bool) ([]float32, []policy.GradBuffer, error) {
	if t.Rng == nil {
		t.Rng = omwrand.NewMt19937()
	}
	t.Env.Reset(t.Rng)

	rewards := make([]float32, 0, maxSteps)
	grads := make([]policy.GradBuffer, 0, maxSteps)

	for len(rewards) < maxSteps {
		obs := t.Env.Observe()
		action, grad, err := t.Model.SampleAction(obs, t.Rng)
		if err != nil {
			return nil, nil, err
		}
		grads = append(grads, grad)

		done := t.Env.Step(action)
		if done {
			rewards = append(rewards, 0.0)
		} else {
			rewards = append(rewards, 1.0)
		}

		if render {
			t.renderFrame()
		}
		if t.StepHook != nil {
			t.StepHook(t.Env)
		}

		if done {
			break
		}
	}
	return rewards, grads, nil
}

// renderFrame is strictly best effort: a failing renderer must never
// abort a training iteration.
func (t *Trainer) renderFrame() {
	r, ok := t.Env.(cartpole.Renderable)
	if !ok || t.RenderWriter == nil {
		return
	}
	_ = r.Render(t.RenderWriter)
}

// roundBuffer accumulates one training round and is discarded after
// the optimizer step. Per-episode gradient snapshots live only until
// Aggregate folds them into one buffer.
type roundBuffer struct {
	rewardsByEpisode [][]float32
	gradsByEpisode   [][]policy.GradBuffer
}

// Aggregate forms the policy-gradient estimate: the mean over every
// step of every episode of advantage[t] * grad[t], one buffer per
// parameter shape.
func Aggregate(gradsByEpisode [][]policy.GradBuffer, advantages [][]float32, total policy.GradBuffer) policy.GradBuffer {
	n := 0
	for epI, grads := range gradsByEpisode {
		adv := advantages[epI]
		for i, g := range grads {
			total.Axpy(adv[i], &g)
			n++
		}
	}
	total.Scal(1.0 / float32(n))
	return total
}

// RunIteration plays one batch of episodes and applies one parameter
// update. It trusts the supplied config; Validate runs at the Train
// boundary. Returns the step count of each episode.
func (t *Trainer) RunIteration(c *Config) ([]int, error) {
	if err := t.ensureDefaults(c); err != nil {
		return nil, err
	}

	buf := roundBuffer{
		rewardsByEpisode: make([][]float32, 0, c.EpisodesPerIteration),
		gradsByEpisode:   make([][]policy.GradBuffer, 0, c.EpisodesPerIteration),
	}

	steps := make([]int, 0, c.EpisodesPerIteration)
	for ep := 0; ep < c.EpisodesPerIteration; ep++ {
		rewards, grads, err := t.Playout(c.MaxStepsPerEpisode, c.Render)
		if err != nil {
			return nil, err
		}
		buf.rewardsByEpisode = append(buf.rewardsByEpisode, rewards)
		buf.gradsByEpisode = append(buf.gradsByEpisode, grads)
		steps = append(steps, len(rewards))

		if t.EpisodeHook != nil {
			t.EpisodeHook(ep, len(rewards))
		}
	}

	discounted := reward.DiscountAll(buf.rewardsByEpisode, c.DiscountRate)
	advantages := reward.Normalize(discounted)

	grad := Aggregate(buf.gradsByEpisode, advantages, t.Model.Parameter.NewGradZerosLike())
	buf.gradsByEpisode = nil

	t.Optimizer.Update(&t.Model.Parameter, &grad)
	return steps, nil
}

// Train validates the config, then runs c.Iterations rounds (or fewer
// after Stop). Returns per-iteration episode step counts.
func (t *Trainer) Train(c *Config) ([][]int, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := t.ensureDefaults(c); err != nil {
		return nil, err
	}

	stepsByIteration := make([][]int, 0, c.Iterations)
	for i := 0; i < c.Iterations; i++ {
		if t.stop.Load() {
			break
		}

		steps, err := t.RunIteration(c)
		if err != nil {
			return stepsByIteration, err
		}
		stepsByIteration = append(stepsByIteration, steps)

		if t.IterationHook != nil {
			t.IterationHook(i, steps)
		}
	}
	return stepsByIteration, nil
}
