// Package api serves the operator HTTP surface of the locator: the current
// pose, tuning backup and restore, reset, and the ignore switches.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/banshee-data/rover/internal/db"
	"github.com/banshee-data/rover/internal/feed"
	"github.com/banshee-data/rover/internal/httputil"
	"github.com/banshee-data/rover/internal/locator"
	"github.com/banshee-data/rover/internal/monitoring"
	"github.com/banshee-data/rover/internal/sensors"
)

var logf = monitoring.Component("api")

// ParamStore persists locator parameters. *db.DB satisfies it.
type ParamStore interface {
	SaveParams(map[string]any) error
}

// PoseHistory reads recorded poses. *db.DB satisfies it.
type PoseHistory interface {
	RecentPoses(limit int) ([]db.PoseRecord, error)
}

// Server holds the handlers' dependencies. Only the locator is required;
// routes whose dependency is nil answer 404.
type Server struct {
	loc     *locator.Locator
	store   ParamStore
	history PoseHistory
	gnss    *sensors.Gnss
	feed    *feed.Dispatcher
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithParamStore persists params accepted by PUT /api/locator/params.
func WithParamStore(s ParamStore) Option { return func(srv *Server) { srv.store = s } }

// WithPoseHistory enables /api/pose/history.
func WithPoseHistory(h PoseHistory) Option { return func(srv *Server) { srv.history = h } }

// WithGnss enables /api/geo/reference.
func WithGnss(g *sensors.Gnss) Option { return func(srv *Server) { srv.gnss = g } }

// WithDispatcher enables /api/feed/counters.
func WithDispatcher(d *feed.Dispatcher) Option { return func(srv *Server) { srv.feed = d } }

// NewServer returns a Server for loc configured by opts.
func NewServer(loc *locator.Locator, opts ...Option) *Server {
	s := &Server{loc: loc}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeMux returns a mux with every /api/ route registered.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/pose", s.handlePose)
	mux.HandleFunc("/api/pose/history", s.handlePoseHistory)
	mux.HandleFunc("/api/locator/params", s.handleParams)
	mux.HandleFunc("/api/locator/reset", s.handleReset)
	mux.HandleFunc("/api/locator/overrides", s.handleOverrides)
	mux.HandleFunc("/api/geo/reference", s.handleReference)
	mux.HandleFunc("/api/feed/counters", s.handleFeedCounters)
	return mux
}

func (s *Server) handlePose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.loc.Snapshot())
}

func (s *Server) handlePoseHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.history == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "pose history not enabled")
		return
	}

	limit := 100 // default value
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > 10000 {
			httputil.BadRequest(w, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	poses, err := s.history.RecentPoses(limit)
	if err != nil {
		logf("failed to read pose history: %v", err)
		httputil.InternalServerError(w, "Failed to read pose history")
		return
	}
	if poses == nil {
		poses = []db.PoseRecord{}
	}
	httputil.WriteJSONOK(w, poses)
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.loc.Backup())
	case http.MethodPut:
		var data map[string]any
		if err := httputil.DecodeJSON(r, &data, false); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		s.loc.Restore(data)
		backup := s.loc.Backup()
		if s.store != nil {
			if err := s.store.SaveParams(backup); err != nil {
				logf("failed to persist params: %v", err)
				httputil.InternalServerError(w, "Parameters applied but not persisted")
				return
			}
		}
		httputil.WriteJSONOK(w, backup)
	default:
		httputil.MethodNotAllowed(w)
	}
}

type resetRequest struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Yaw float64 `json:"yaw"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req resetRequest
	if err := httputil.DecodeJSON(r, &req, true); err != nil && !errors.Is(err, httputil.ErrEmptyBody) {
		httputil.BadRequest(w, err.Error())
		return
	}
	s.loc.Reset(req.X, req.Y, req.Yaw)
	logf("locator reset to (%.3f, %.3f, %.3f)", req.X, req.Y, req.Yaw)
	httputil.WriteJSONOK(w, s.loc.Snapshot())
}

func (s *Server) handleOverrides(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.loc.Overrides())
	case http.MethodPut:
		// Start from the current switches so a partial body only flips what
		// it names.
		o := s.loc.Overrides()
		if err := httputil.DecodeJSON(r, &o, true); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		s.loc.SetOverrides(o)
		httputil.WriteJSONOK(w, o)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleFeedCounters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.feed == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "feed not attached")
		return
	}
	httputil.WriteJSONOK(w, s.feed.Counters())
}
