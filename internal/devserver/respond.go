package devserver

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// apiError is the JSON body of every non-2xx answer. Fields holds per-field
// validation messages keyed by JSON name; ID names the product the request
// addressed.
type apiError struct {
	Error     string            `json:"error"`
	ID        string            `json:"id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// writeJSON encodes v as the body. The status line is already out when
// encoding fails, so the failure is only logged.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Warn("encode response failed",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err))
	}
}

// writeAck answers with the plain-text acknowledgment the products API
// returns for creates and updates. Clients show it verbatim.
func (s *Server) writeAck(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, e apiError) {
	e.RequestID = chimw.GetReqID(r.Context())
	if status >= http.StatusInternalServerError {
		s.Log.Error("request failed", zap.String("request_id", e.RequestID), zap.String("error", e.Error))
	}
	s.writeJSON(w, r, status, e)
}
