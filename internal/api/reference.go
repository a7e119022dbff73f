package api

import (
	"net/http"

	"github.com/paulmach/orb"

	"github.com/banshee-data/rover/internal/geo"
	"github.com/banshee-data/rover/internal/httputil"
)

type referenceBody struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type referenceResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// handleReference reads or replaces the geo reference used to project GNSS
// fixes. Replacing it does not move the current estimate.
func (s *Server) handleReference(w http.ResponseWriter, r *http.Request) {
	if s.gnss == nil {
		httputil.WriteJSONError(w, http.StatusNotFound, "gnss not attached")
		return
	}
	switch r.Method {
	case http.MethodGet:
		ref := s.gnss.Reference()
		if ref == nil {
			httputil.WriteJSONError(w, http.StatusNotFound, "no geo reference set")
			return
		}
		o := ref.Origin()
		httputil.WriteJSONOK(w, referenceResponse{Lat: o.Lat(), Lon: o.Lon()})
	case http.MethodPut:
		var body referenceBody
		if err := httputil.DecodeJSON(r, &body, true); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if body.Lat == nil || body.Lon == nil {
			httputil.BadRequest(w, "lat and lon are required")
			return
		}
		ref, err := geo.NewReference(orb.Point{*body.Lon, *body.Lat})
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		s.gnss.SetReference(ref)
		logf("geo reference set to %s", ref)
		httputil.WriteJSONOK(w, referenceResponse{Lat: *body.Lat, Lon: *body.Lon})
	default:
		httputil.MethodNotAllowed(w)
	}
}
