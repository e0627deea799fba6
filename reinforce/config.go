package reinforce

import (
	"fmt"
)

// Config is the hyperparameter surface supplied by the host.
// Validate runs before any simulation work.
type Config struct {
	Iterations           int
	EpisodesPerIteration int
	MaxStepsPerEpisode   int
	DiscountRate         float32
	LearningRate         float32
	Render               bool
}

func (c *Config) Validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf("reinforce: iterations must be positive, got %d", c.Iterations)
	}
	if c.EpisodesPerIteration <= 0 {
		return fmt.Errorf("reinforce: episodes per iteration must be positive, got %d", c.EpisodesPerIteration)
	}
	if c.MaxStepsPerEpisode <= 1 {
		return fmt.Errorf("reinforce: max steps per episode must be greater than 1, got %d", c.MaxStepsPerEpisode)
	}
	if c.DiscountRate <= 0.0 || c.DiscountRate >= 1.0 {
		return fmt.Errorf("reinforce: discount rate must be in (0, 1), got %v", c.DiscountRate)
	}
	if c.LearningRate <= 0.0 {
		return fmt.Errorf("reinforce: learning rate must be positive, got %v", c.LearningRate)
	}
	return nil
}
