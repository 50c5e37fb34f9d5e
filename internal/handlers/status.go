package handlers

import (
	"chatapp-client/internal/cache"
	"chatapp-client/internal/models"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type statusResponse struct {
	State               string       `json:"state"`
	Uptime              float64      `json:"uptimeSeconds"`
	Self                *models.User `json:"self"`
	Cache               cache.Stats  `json:"cache"`
	PendingCorrelations int          `json:"pendingCorrelations"`
}

// messageView adds the resolved author, which models.Message leaves out of
// its encoding.
type messageView struct {
	*models.Message
	Author *models.User `json:"author"`
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	response := statusResponse{
		State:               h.client.State().String(),
		Uptime:              h.client.Uptime().Seconds(),
		Self:                h.client.Cache.SelfSnapshot(),
		Cache:               h.client.Cache.Stats(),
		PendingCorrelations: h.client.PendingCorrelations(),
	}

	if err := writeJSON(w, response); err != nil {
		h.sugar.Error(err)
	}
}

func (h *Handlers) GetServerList(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, h.client.Cache.ServerSnapshots()); err != nil {
		h.sugar.Error(err)
	}
}

func (h *Handlers) GetMessageList(w http.ResponseWriter, r *http.Request) {
	channelID, err := strconv.ParseInt(chi.URLParam(r, "channelID"), 10, 64)
	if err != nil || channelID == 0 {
		http.Error(w, "Invalid channel ID", http.StatusBadRequest)
		return
	}

	// archived history outlives the bounded cache
	if h.archive != nil && r.URL.Query().Get("source") == "archive" {
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = 50
		}

		messages, err := h.archive.Messages(channelID, limit)
		if err != nil {
			h.sugar.Error(err)
			http.Error(w, "", http.StatusInternalServerError)
			return
		}
		if err := writeJSON(w, messages); err != nil {
			h.sugar.Error(err)
		}
		return
	}

	if _, exists := h.client.Cache.Channel(channelID); !exists {
		http.Error(w, "Channel isn't cached", http.StatusNotFound)
		return
	}

	msgs := h.client.Cache.Messages(channelID)
	views := make([]messageView, 0, len(msgs))

	// members are repointed and presence is written under the cache lock
	locker := h.client.Cache.RLocker()
	locker.Lock()
	for _, msg := range msgs {
		view := messageView{Message: msg}
		if msg.Author != nil {
			author := *msg.Author.Identity()
			view.Author = &author
		}
		views = append(views, view)
	}
	locker.Unlock()

	if err := writeJSON(w, views); err != nil {
		h.sugar.Error(err)
	}
}

func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID == 0 {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	user, exists := h.client.Cache.UserSnapshot(userID)
	if !exists {
		http.Error(w, "User isn't cached", http.StatusNotFound)
		return
	}

	if err := writeJSON(w, user); err != nil {
		h.sugar.Error(err)
	}
}
