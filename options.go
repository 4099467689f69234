package flux

import "github.com/ygrebnov/flux/executor"

// ExecutorOption configures the executor.Pool backing Via.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	poolSelected poolType
	capacity     uint
}

type poolType int

const (
	poolUnspecified poolType = iota
	poolDynamic
	poolFixed
)

// WithFixedPool selects a fixed-capacity executor.Pool.
func WithFixedPool(capacity uint) ExecutorOption {
	return func(c *executorConfig) {
		if capacity == 0 {
			panic("flux: WithFixedPool requires capacity > 0")
		}
		c.poolSelected = poolFixed
		c.capacity = capacity
	}
}

// WithDynamicPool selects a pool that always runs submissions immediately
// (the default).
func WithDynamicPool() ExecutorOption {
	return func(c *executorConfig) { c.poolSelected = poolDynamic }
}

// NewPool builds an executor.Pool from options; with no options it returns
// a dynamic pool.
func NewPool(opts ...ExecutorOption) executor.Pool {
	cfg := executorConfig{poolSelected: poolDynamic}
	for _, opt := range opts {
		if opt == nil {
			panic("flux: nil executor option")
		}
		opt(&cfg)
	}

	switch cfg.poolSelected {
	case poolFixed:
		return executor.NewFixed(cfg.capacity)
	default:
		return executor.NewDynamic()
	}
}
