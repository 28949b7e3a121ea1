// Package profiling mounts the net/http/pprof handlers on a chi router.
// The endpoints expose goroutine stacks and heap contents, so callers mount
// them behind the admin guard.
package profiling

import (
	"net/http/pprof"
	"runtime"

	"github.com/go-chi/chi/v5"
)

// Config holds profiling configuration
type Config struct {
	// BlockRate sets the block profiling rate (0 = disabled)
	BlockRate int
	// MutexFraction sets the mutex profiling fraction (0 = disabled)
	MutexFraction int
}

var profiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

// Routes registers the pprof endpoints relative to r. Mount it with
// r.Route("/debug/pprof", profiling.Routes(cfg)).
func Routes(cfg Config) func(chi.Router) {
	return func(r chi.Router) {
		runtime.SetBlockProfileRate(cfg.BlockRate)
		runtime.SetMutexProfileFraction(cfg.MutexFraction)

		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		for _, name := range profiles {
			r.Handle("/"+name, pprof.Handler(name))
		}
	}
}
