package httpapi

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	logx "relaybot/pkg/logx"
)

type ingestResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message,omitempty"`
	EventID        string `json:"event_id,omitempty"`
	BroadcastCount int    `json:"broadcast_count,omitempty"`
	Error          string `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Subscriptions string `json:"subscriptions"`
	RelayEnabled  bool   `json:"relay_enabled"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, ingestResponse{Success: false, Error: "invalid JSON payload"})
		return
	}

	res, err := s.ingest.Ingest(r.Context(), stringifyPayload(raw), clientAddr(r))
	if err != nil {
		// Storage detail stays internal; the caller gets a generic failure.
		s.log.Error("ingest failed", logx.Err(err))
		writeJSON(w, http.StatusInternalServerError, ingestResponse{Success: false, Error: "storage error"})
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Success:        true,
		Message:        "event received and relayed",
		EventID:        res.ID,
		BroadcastCount: res.Recipients,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:        "online",
		Version:       s.cfg.Version,
		Subscriptions: "active",
		RelayEnabled:  true,
	})
}

// stringifyPayload flattens a decoded JSON object to string fields.
// No key is mandatory and unknown keys are passed through untouched;
// only nulls are dropped.
func stringifyPayload(raw map[string]any) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch x := v.(type) {
		case nil:
			continue
		case string:
			out[k] = x
		default:
			out[k] = fmt.Sprint(x)
		}
	}
	return out
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
