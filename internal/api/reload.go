package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-mht/internal/history"
	"github.com/nerrad567/gray-logic-mht/internal/mht"
	"github.com/nerrad567/gray-logic-mht/internal/provider"
)

// handleReload re-parses the current item source.
//
// A parse failure leaves the published items untouched and is reported as
// 422 with the failing line and error kind.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	err := s.provider.Reload(r.Context())

	var perr *mht.ParseError
	switch {
	case err == nil:
		res := s.provider.Current()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "reloaded",
			"source":     s.provider.Source(),
			"items":      res.Len(),
			"datapoints": res.DatapointCount(),
		})
	case errors.Is(err, provider.ErrNoSource):
		writeError(w, http.StatusConflict, ErrCodeConflict, "no item source configured")
	case errors.As(err, &perr):
		writeJSON(w, http.StatusUnprocessableEntity, ValidationError{
			Error: Error{
				Status:  http.StatusUnprocessableEntity,
				Code:    ErrCodeValidation,
				Message: perr.Error(),
			},
			Kind:      perr.Kind.String(),
			Line:      perr.Line,
			FirstLine: perr.FirstLine,
		})
	default:
		s.logger.Error("reload failed", "error", err)
		writeInternalError(w, "reload failed")
	}
}

// handleListReloads returns recent reload attempts, most recent first.
//
// Query parameters: limit, offset, source, failed=true.
func (s *Server) handleListReloads(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "reload history is not enabled")
		return
	}

	q := r.URL.Query()
	filter := history.Filter{
		Source: q.Get("source"),
		Failed: q.Get("failed") == "true",
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}

	result, err := s.history.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing reload history failed", "error", err)
		writeInternalError(w, "failed to list reload history")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New("invalid")
	}
	return n, nil
}
