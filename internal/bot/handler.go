package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Handler returns the HTTP handler for the reminder invocation endpoint.
func (b *Bot) Handler() http.HandlerFunc {
	return b.handleRun
}

// Health answers liveness probes.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (b *Bot) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		b.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	// runs outlive the request so a disconnecting caller cannot leave delivered reminders unmarked
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), runTimeout)
	defer cancel()

	res, err := b.Run(ctx, b.now(), requestToken(r))
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrAuthNotConfigured):
		b.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case err != nil:
		b.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		b.writeJSON(w, http.StatusOK, res)
	}
}

// requestToken reads "Authorization: Bearer <token>", falling back to X-Cron-Secret.
func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if scheme, token, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return r.Header.Get("X-Cron-Secret")
}

func (b *Bot) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		b.log.Error().Err(err).Msg("encode response")
	}
}
