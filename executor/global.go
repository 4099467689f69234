package executor

import (
	"runtime"
	"sync"
)

// Blocking and CPU are the two process-wide, lazily started executors: one
// for blocking/I/O-bound thunks, one for CPU-bound work capped at
// GOMAXPROCS. Neither is explicitly torn down.
var (
	blockingOnce sync.Once
	blockingPool Pool

	cpuOnce sync.Once
	cpuPool Pool
)

// Blocking returns the shared executor for blocking or I/O-bound thunks.
func Blocking() Pool {
	blockingOnce.Do(func() { blockingPool = NewDynamic() })
	return blockingPool
}

// CPU returns the shared executor for CPU-bound thunks, capped at
// GOMAXPROCS concurrently running.
func CPU() Pool {
	cpuOnce.Do(func() { cpuPool = NewFixed(uint(runtime.GOMAXPROCS(0))) })
	return cpuPool
}
