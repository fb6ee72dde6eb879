package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"reelproxy/pkg/logger"
	"reelproxy/pkg/reel"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleReel(w http.ResponseWriter, r *http.Request) {
	result, err := s.resolver.Resolve(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: logger.Version})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rerr *reel.Error
	if !errors.As(err, &rerr) {
		rerr = &reel.Error{Kind: reel.KindUnknownFailure, Details: err.Error(), Err: err}
	}

	body := errorResponse{Error: rerr.Message()}
	switch rerr.Kind {
	case reel.KindMediaResolutionFailed, reel.KindUnknownFailure:
		if s.cfg.ExposeErrorDetails {
			body.Details = rerr.Details
		}
	}

	if rerr.StatusCode() >= http.StatusInternalServerError {
		s.logger.WithContext(r.Context()).WithError(err).Error("request failed")
	}
	writeJSON(w, rerr.StatusCode(), body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
