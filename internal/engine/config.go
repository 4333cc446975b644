package engine

import "time"

const (
	DefaultSubSteps        = 10
	DefaultDecisionTimeout = 10 * time.Millisecond
)

// Config holds the scheduler tuning knobs
type Config struct {
	SubSteps        int           `mapstructure:"subSteps"`
	DecisionTimeout time.Duration `mapstructure:"decisionTimeout"`
	StealthTime     int           `mapstructure:"stealthTime"`
	// HistoryLimit caps the retained snapshots, 0 keeps all of them
	HistoryLimit int `mapstructure:"historyLimit"`
}

// DefaultConfig returns the stock scheduler settings
func DefaultConfig() Config {
	return Config{
		SubSteps:        DefaultSubSteps,
		DecisionTimeout: DefaultDecisionTimeout,
		StealthTime:     DefaultStealthTime,
	}
}

func (c Config) withDefaults() Config {
	if c.SubSteps <= 0 {
		c.SubSteps = DefaultSubSteps
	}
	if c.DecisionTimeout <= 0 {
		c.DecisionTimeout = DefaultDecisionTimeout
	}
	if c.StealthTime <= 0 {
		c.StealthTime = DefaultStealthTime
	}
	if c.HistoryLimit < 0 {
		c.HistoryLimit = 0
	}
	return c
}
