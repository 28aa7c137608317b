package frames

import (
	"runtime"
	"sync/atomic"
)

// threads is the process-wide worker count consulted by the renderer and by
// filters that split work across goroutines. Zero means runtime.NumCPU().
var threads atomic.Int32

// SetThreads sets the process-wide worker count. n <= 0 restores the default.
func SetThreads(n int) {
	if n < 0 {
		n = 0
	}
	threads.Store(int32(n))
}

// Threads returns the effective worker count.
func Threads() int {
	if n := int(threads.Load()); n > 0 {
		return n
	}
	return runtime.NumCPU()
}
