package api

import (
	"fmt"
	"net/http"

	"tailscale.com/tsweb"

	"github.com/banshee-data/rover/internal/version"
)

// AttachDebugRoutes adds the locator to the /debug/ index served by tsweb.
// These routes are reachable only from loopback or the tailnet.
func (s *Server) AttachDebugRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.KV("Build", version.Current().String())
	debug.KVFunc("Locator variant", func() any { return s.loc.Variant().String() })
	debug.KVFunc("Locator initialised", func() any { return s.loc.Initialized() })
	debug.KVFunc("Locator pose", func() any {
		p := s.loc.Pose()
		return fmt.Sprintf("x=%.3f y=%.3f yaw=%.1f°", p.X, p.Y, p.YawDeg())
	})
	debug.HandleFunc("locator", "Locator state, covariance and counters", s.handleDebugState)
}

func (s *Server) handleDebugState(w http.ResponseWriter, r *http.Request) {
	snap := s.loc.Snapshot()
	cov := s.loc.Covariance()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	fmt.Fprintf(w, "variant     %s\n", snap.Variant)
	fmt.Fprintf(w, "time        %.3f\n", snap.Time)
	fmt.Fprintf(w, "pose        x=%.4f y=%.4f yaw=%.4f rad\n", snap.Pose.X, snap.Pose.Y, snap.Pose.Yaw)
	fmt.Fprintf(w, "overrides   %+v\n", s.loc.Overrides())
	fmt.Fprintf(w, "params      %+v\n", s.loc.Params())
	fmt.Fprintln(w, "covariance")
	for _, row := range cov {
		fmt.Fprintf(w, "  % .6e % .6e % .6e\n", row[0], row[1], row[2])
	}
	fmt.Fprintf(w, "stats       %+v\n", snap.Stats)
	if s.feed != nil {
		fmt.Fprintf(w, "feed        %+v\n", s.feed.Counters())
	}
}
