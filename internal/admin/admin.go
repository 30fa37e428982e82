// Package admin serves a read-only JSON view of the discovery registry for
// debugging.
package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"groupchat/internal/chat"
	"groupchat/internal/discovery"
)

// Registry is what the admin API reads from. *discovery.Service satisfies it.
type Registry interface {
	ListGroups() []string
	Participants(groupID string) ([]chat.Participant, error)
	History(groupID string) ([]chat.Message, error)
}

type participantView struct {
	UserID    string `json:"user_id"`
	Address   string `json:"address"`
	ProcessID int    `json:"process_id"`
}

type messageView struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProcessID int       `json:"process_id"`
	Text      string    `json:"text"`
	Clock     []int64   `json:"clock"`
	SentAt    time.Time `json:"sent_at"`
}

type handler struct {
	reg    Registry
	logger *slog.Logger
}

// NewHandler returns the admin routes:
//
//	GET /healthz
//	GET /groups
//	GET /groups/{id}/participants
//	GET /groups/{id}/history
func NewHandler(reg Registry, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{reg: reg, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/groups", h.groups).Methods(http.MethodGet)
	r.HandleFunc("/groups/{id}/participants", h.participants).Methods(http.MethodGet)
	r.HandleFunc("/groups/{id}/history", h.history).Methods(http.MethodGet)
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) groups(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, map[string][]string{"groups": h.reg.ListGroups()})
}

func (h *handler) participants(w http.ResponseWriter, r *http.Request) {
	ps, err := h.reg.Participants(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]participantView, 0, len(ps))
	for _, p := range ps {
		out = append(out, participantView{UserID: p.UserID, Address: p.Addr, ProcessID: p.ProcessID})
	}
	h.write(w, http.StatusOK, out)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.reg.History(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageView{
			ID:        m.ID.String(),
			UserID:    m.SenderID,
			ProcessID: m.SenderProcess,
			Text:      m.Text,
			Clock:     m.Clock,
			SentAt:    m.SentAt,
		})
	}
	h.write(w, http.StatusOK, out)
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, discovery.ErrNotFound) {
		code = http.StatusNotFound
	}
	h.write(w, code, map[string]string{"error": err.Error()})
}

func (h *handler) write(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("admin response write failed", "error", err)
	}
}
