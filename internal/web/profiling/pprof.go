// Package profiling exposes the runtime pprof endpoints. They reveal
// goroutine stacks and memory contents, so the API mounts them only when
// profiling.enabled is set and only for admins.
package profiling

import (
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi/v5"
)

// Profiles lists the named runtime profiles served under the index
var Profiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

// Handler returns the pprof endpoints relative to their mount point
func Handler() http.Handler {
	r := chi.NewRouter()
	r.HandleFunc("/", pprof.Index)
	r.HandleFunc("/cmdline", pprof.Cmdline)
	r.HandleFunc("/profile", pprof.Profile)
	r.HandleFunc("/symbol", pprof.Symbol)
	r.HandleFunc("/trace", pprof.Trace)
	for _, name := range Profiles {
		r.Handle("/"+name, pprof.Handler(name))
	}
	return r
}
