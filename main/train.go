package main

import (
	"errors"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/sw965/cartpole"
	"github.com/sw965/cartpole/optimizer"
	"github.com/sw965/cartpole/policy"
	"github.com/sw965/cartpole/reinforce"
	"github.com/sw965/cartpole/store"
	omwrand "github.com/sw965/omw/math/rand"
)

func parseWidths(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	widths := make([]int, 0, len(parts))
	for _, part := range parts {
		w, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		widths = append(widths, w)
	}
	return widths, nil
}

func meanSteps(steps []int) float64 {
	sum := 0
	for _, s := range steps {
		sum += s
	}
	return float64(sum) / float64(len(steps))
}

func main() {
	iterations := flag.Int("iterations", 20, "number of training iterations")
	games := flag.Int("games", 20, "episodes per iteration")
	maxSteps := flag.Int("max-steps", 500, "step cap per episode")
	discount := flag.Float64("discount", 0.95, "reward discount rate in (0, 1)")
	lr := flag.Float64("lr", 0.05, "learning rate")
	hiddens := flag.String("hiddens", "128", "comma separated hidden layer widths")
	render := flag.Bool("render", false, "render every step during training")
	modelDir := flag.String("model-dir", "models", "model store directory")
	modelKey := flag.String("model-key", "cartpole-policy", "model store key")
	resume := flag.Bool("resume", false, "load the stored model instead of initializing a new one")
	flag.Parse()

	rng := omwrand.NewMt19937()
	st := store.New(*modelDir)

	var model *policy.Model
	if *resume {
		param, err := st.Load(*modelKey)
		if errors.Is(err, store.ErrNotExist) {
			log.Fatalf("no stored model under %q, run once without -resume", *modelKey)
		}
		if err != nil {
			log.Fatalf("load failed: %v", err)
		}
		model, err = policy.FromParameter(param)
		if err != nil {
			log.Fatalf("stored model is unusable: %v", err)
		}
		log.Printf("resumed model with hidden widths %v", model.HiddenWidths())
	} else {
		widths, err := parseWidths(*hiddens)
		if err != nil {
			log.Fatalf("bad -hiddens: %v", err)
		}
		model, err = policy.New(widths, rng)
		if err != nil {
			log.Fatalf("bad model config: %v", err)
		}
	}

	sim := cartpole.NewSim(rng)
	trainer := &reinforce.Trainer{
		Env:          sim,
		Model:        model,
		Optimizer:    optimizer.NewAdam(float32(*lr)),
		Rng:          rng,
		RenderWriter: os.Stdout,
		IterationHook: func(iter int, steps []int) {
			log.Printf("iteration %d: mean steps %.1f", iter, meanSteps(steps))
		},
	}

	config := &reinforce.Config{
		Iterations:           *iterations,
		EpisodesPerIteration: *games,
		MaxStepsPerEpisode:   *maxSteps,
		DiscountRate:         float32(*discount),
		LearningRate:         float32(*lr),
		Render:               *render,
	}

	if _, err := trainer.Train(config); err != nil {
		log.Fatalf("training failed: %v", err)
	}

	if err := st.Save(*modelKey, &model.Parameter); err != nil {
		log.Fatalf("save failed: %v", err)
	}
	if info, ok, err := st.Exists(*modelKey); err == nil && ok {
		log.Printf("model saved under %q at %s", *modelKey, info.SavedAt.Format("15:04:05"))
	}

	log.Println("replaying one episode with the trained policy")
	sim.Reset(rng)
	for i := 0; i < *maxSteps; i++ {
		action, err := model.Act(sim.Observe(), rng)
		if err != nil {
			log.Fatalf("replay failed: %v", err)
		}
		done := sim.Step(action)
		if err := sim.Render(os.Stdout); err != nil {
			log.Fatalf("render failed: %v", err)
		}
		if done {
			log.Printf("episode ended after %d steps", i+1)
			return
		}
	}
	log.Printf("episode survived the full %d steps", *maxSteps)
}
