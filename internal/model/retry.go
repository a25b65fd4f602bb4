package model

import "time"

// RetryConfig defines retry behavior for shard connection acquisition
type RetryConfig struct {
	MaxAttempts       int           `json:"max_attempts" mapstructure:"max_attempts"` // 0 or 1 = no retry
	InitialDelay      time.Duration `json:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay          time.Duration `json:"max_delay" mapstructure:"max_delay"`
	BackoffMultiplier float64       `json:"backoff_multiplier" mapstructure:"backoff_multiplier"`
}
