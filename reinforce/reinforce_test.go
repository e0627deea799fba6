package reinforce_test

import (
	"errors"
	"testing"

	"github.com/sw965/cartpole"
	"github.com/sw965/cartpole/blas32/vector"
	crand "github.com/sw965/cartpole/math/rand"
	"github.com/sw965/cartpole/policy"
	"github.com/sw965/cartpole/reinforce"
	omwrand "github.com/sw965/omw/math/rand"
)

func newTrainer(t *testing.T) *reinforce.Trainer {
	t.Helper()
	rng := omwrand.NewMt19937()
	model, err := policy.New([]int{8}, rng)
	if err != nil {
		panic(err)
	}
	return &reinforce.Trainer{
		Env:   cartpole.NewSim(rng),
		Model: model,
		Rng:   rng,
	}
}

func TestConfigValidate(t *testing.T) {
	valid := reinforce.Config{
		Iterations:           10,
		EpisodesPerIteration: 5,
		MaxStepsPerEpisode:   100,
		DiscountRate:         0.95,
		LearningRate:         0.05,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	for name, mutate := range map[string]func(*reinforce.Config){
		"zero iterations":    func(c *reinforce.Config) { c.Iterations = 0 },
		"zero episodes":      func(c *reinforce.Config) { c.EpisodesPerIteration = 0 },
		"max steps of one":   func(c *reinforce.Config) { c.MaxStepsPerEpisode = 1 },
		"zero discount":      func(c *reinforce.Config) { c.DiscountRate = 0.0 },
		"discount of one":    func(c *reinforce.Config) { c.DiscountRate = 1.0 },
		"zero learning rate": func(c *reinforce.Config) { c.LearningRate = 0.0 },
		"negative learning":  func(c *reinforce.Config) { c.LearningRate = -0.1 },
	} {
		c := valid
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestPlayoutStepCapOfOne(t *testing.T) {
	trainer := newTrainer(t)
	for i := 0; i < 10; i++ {
		rewards, grads, err := trainer.Playout(1, false)
		if err != nil {
			panic(err)
		}
		if len(rewards) != 1 {
			t.Fatalf("expected exactly 1 reward, got %d", len(rewards))
		}
		if len(grads) != 1 {
			t.Fatalf("expected exactly 1 gradient snapshot, got %d", len(grads))
		}
		if rewards[0] != 0.0 && rewards[0] != 1.0 {
			t.Fatalf("unexpected reward %v", rewards[0])
		}
	}
}

func TestPlayoutRewardGradLengthsMatch(t *testing.T) {
	trainer := newTrainer(t)
	for i := 0; i < 5; i++ {
		rewards, grads, err := trainer.Playout(200, false)
		if err != nil {
			panic(err)
		}
		if len(rewards) != len(grads) {
			t.Fatalf("lengths differ: %d rewards, %d grads", len(rewards), len(grads))
		}
		if len(rewards) == 0 || len(rewards) > 200 {
			t.Fatalf("episode length %d out of range", len(rewards))
		}
		// 途中のステップは報酬1
		for _, r := range rewards[:len(rewards)-1] {
			if r != 1.0 {
				t.Fatalf("non-terminal reward %v", r)
			}
		}
	}
}

func TestAggregateSingleStepIdentity(t *testing.T) {
	rng := omwrand.NewMt19937()
	model, err := policy.New([]int{6}, rng)
	if err != nil {
		panic(err)
	}
	x := vector.New(crand.Uniforms(cartpole.ObservationSize, -0.5, 0.5, rng)...)

	grad, err := model.ActionGrad(x, cartpole.Left)
	if err != nil {
		panic(err)
	}

	advantage := float32(2.5)
	total := reinforce.Aggregate(
		[][]policy.GradBuffer{{grad}},
		[][]float32{{advantage}},
		model.Parameter.NewGradZerosLike(),
	)

	for i := range grad.Weights {
		for j, g := range grad.Weights[i].Data {
			if total.Weights[i].Data[j] != advantage*g {
				t.Fatalf("weight layer %d index %d: %v != %v", i, j, total.Weights[i].Data[j], advantage*g)
			}
		}
	}
	for i := range grad.Biases {
		for j, g := range grad.Biases[i].Data {
			if total.Biases[i].Data[j] != advantage*g {
				t.Fatalf("bias layer %d index %d: %v != %v", i, j, total.Biases[i].Data[j], advantage*g)
			}
		}
	}
}

func TestRunIterationSingleGameSingleStep(t *testing.T) {
	trainer := newTrainer(t)
	config := &reinforce.Config{
		Iterations:           1,
		EpisodesPerIteration: 1,
		MaxStepsPerEpisode:   1,
		DiscountRate:         0.5,
		LearningRate:         0.05,
	}

	steps, err := trainer.RunIteration(config)
	if err != nil {
		panic(err)
	}
	if len(steps) != 1 {
		t.Fatalf("expected one step-count entry, got %d", len(steps))
	}
	if steps[0] != 1 {
		t.Errorf("expected step count 1, got %d", steps[0])
	}
}

func TestTrainUpdatesParameters(t *testing.T) {
	trainer := newTrainer(t)
	before := trainer.Model.Parameter.Clone()

	config := &reinforce.Config{
		Iterations:           2,
		EpisodesPerIteration: 3,
		MaxStepsPerEpisode:   50,
		DiscountRate:         0.95,
		LearningRate:         0.05,
	}

	stepsByIteration, err := trainer.Train(config)
	if err != nil {
		panic(err)
	}
	if len(stepsByIteration) != config.Iterations {
		t.Fatalf("expected %d iterations, got %d", config.Iterations, len(stepsByIteration))
	}
	for i, steps := range stepsByIteration {
		if len(steps) != config.EpisodesPerIteration {
			t.Fatalf("iteration %d: expected %d episodes, got %d", i, config.EpisodesPerIteration, len(steps))
		}
	}

	changed := false
	for i, w := range trainer.Model.Parameter.Weights {
		for j, v := range w.Data {
			if v != before.Weights[i].Data[j] {
				changed = true
			}
		}
	}
	if !changed {
		t.Errorf("parameters unchanged after training")
	}
}

// failWriter is a render surface that rejects every frame.
type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("surface gone")
}

func TestRenderFailureDoesNotAbortIteration(t *testing.T) {
	trainer := newTrainer(t)
	trainer.RenderWriter = failWriter{}
	before := trainer.Model.Parameter.Clone()

	config := &reinforce.Config{
		Iterations:           1,
		EpisodesPerIteration: 3,
		MaxStepsPerEpisode:   50,
		DiscountRate:         0.95,
		LearningRate:         0.05,
		Render:               true,
	}

	steps, err := trainer.RunIteration(config)
	if err != nil {
		t.Fatalf("render failures must not abort the iteration: %v", err)
	}
	if len(steps) != config.EpisodesPerIteration {
		t.Fatalf("expected %d episodes, got %d", config.EpisodesPerIteration, len(steps))
	}

	changed := false
	for i, w := range trainer.Model.Parameter.Weights {
		for j, v := range w.Data {
			if v != before.Weights[i].Data[j] {
				changed = true
			}
		}
	}
	if !changed {
		t.Errorf("parameters unchanged despite a completed iteration")
	}
}

func TestHookCadence(t *testing.T) {
	trainer := newTrainer(t)

	stepCalls := 0
	episodeCalls := 0
	iterationCalls := 0
	trainer.StepHook = func(env cartpole.Environment) { stepCalls++ }
	trainer.EpisodeHook = func(episode, steps int) { episodeCalls++ }
	trainer.IterationHook = func(iteration int, steps []int) { iterationCalls++ }

	config := &reinforce.Config{
		Iterations:           2,
		EpisodesPerIteration: 3,
		MaxStepsPerEpisode:   50,
		DiscountRate:         0.95,
		LearningRate:         0.05,
	}

	stepsByIteration, err := trainer.Train(config)
	if err != nil {
		panic(err)
	}

	totalSteps := 0
	for _, steps := range stepsByIteration {
		for _, s := range steps {
			totalSteps += s
		}
	}

	if stepCalls != totalSteps {
		t.Errorf("step hook ran %d times for %d steps", stepCalls, totalSteps)
	}
	if expected := config.Iterations * config.EpisodesPerIteration; episodeCalls != expected {
		t.Errorf("episode hook ran %d times, expected %d", episodeCalls, expected)
	}
	if iterationCalls != config.Iterations {
		t.Errorf("iteration hook ran %d times, expected %d", iterationCalls, config.Iterations)
	}
}

func TestStopMidTraining(t *testing.T) {
	trainer := newTrainer(t)
	trainer.IterationHook = func(iteration int, steps []int) {
		trainer.Stop()
	}

	config := &reinforce.Config{
		Iterations:           100,
		EpisodesPerIteration: 2,
		MaxStepsPerEpisode:   50,
		DiscountRate:         0.95,
		LearningRate:         0.05,
	}

	stepsByIteration, err := trainer.Train(config)
	if err != nil {
		panic(err)
	}
	// 停止要求は次の反復境界で効く
	if len(stepsByIteration) != 1 {
		t.Errorf("expected exactly one iteration before the stop took effect, got %d", len(stepsByIteration))
	}
}

func TestPlayoutDefaultsRng(t *testing.T) {
	rng := omwrand.NewMt19937()
	model, err := policy.New([]int{8}, rng)
	if err != nil {
		panic(err)
	}
	trainer := &reinforce.Trainer{
		Env:   cartpole.NewSim(rng),
		Model: model,
	}

	rewards, grads, err := trainer.Playout(10, false)
	if err != nil {
		panic(err)
	}
	if len(rewards) == 0 || len(rewards) != len(grads) {
		t.Errorf("bad playout with defaulted rng: %d rewards, %d grads", len(rewards), len(grads))
	}
}

func TestStopBeforeTrain(t *testing.T) {
	trainer := newTrainer(t)
	trainer.Stop()

	config := &reinforce.Config{
		Iterations:           100,
		EpisodesPerIteration: 10,
		MaxStepsPerEpisode:   500,
		DiscountRate:         0.95,
		LearningRate:         0.05,
	}

	stepsByIteration, err := trainer.Train(config)
	if err != nil {
		panic(err)
	}
	if len(stepsByIteration) != 0 {
		t.Errorf("expected no iterations after stop, got %d", len(stepsByIteration))
	}
}

func TestTrainRejectsInvalidConfig(t *testing.T) {
	trainer := newTrainer(t)
	config := &reinforce.Config{
		Iterations:           0,
		EpisodesPerIteration: 10,
		MaxStepsPerEpisode:   500,
		DiscountRate:         0.95,
		LearningRate:         0.05,
	}
	if _, err := trainer.Train(config); err == nil {
		t.Errorf("expected config error")
	}
}
