package routes

import (
	"encoding/json"
	"net/http"
	"voice-connector/internal/infra/handlers"

	"github.com/gorilla/mux"
)

type Routes struct {
	Mux                  *mux.Router
	ApiHandlers          *handlers.ApiHandlers
	ConversationHandlers *handlers.ConversationHandlers
}

func NewRoutes(mux *mux.Router, apiHandlers *handlers.ApiHandlers, conversationHandlers *handlers.ConversationHandlers) *Routes {
	return &Routes{mux, apiHandlers, conversationHandlers}
}

func (r *Routes) Init() {
	r.Mux.HandleFunc("/api/chat", r.ApiHandlers.Chat).Methods(http.MethodPost)
	r.Mux.HandleFunc("/api/transcribe", r.ApiHandlers.Transcribe).Methods(http.MethodPost)

	r.Mux.HandleFunc("/api/conversations", r.ConversationHandlers.Create).Methods(http.MethodPost)
	r.Mux.HandleFunc("/api/conversations", r.ConversationHandlers.List).Methods(http.MethodGet)
	r.Mux.HandleFunc("/api/conversations/active", r.ConversationHandlers.Active).Methods(http.MethodGet)
	r.Mux.HandleFunc("/api/conversations/{id}", r.ConversationHandlers.Delete).Methods(http.MethodDelete)
	r.Mux.HandleFunc("/api/conversations/{id}/activate", r.ConversationHandlers.Activate).Methods(http.MethodPut)

	r.Mux.HandleFunc("/api/messages/text", r.ConversationHandlers.SendText).Methods(http.MethodPost)
	r.Mux.HandleFunc("/api/messages/voice", r.ConversationHandlers.SendVoice).Methods(http.MethodPost)
	r.Mux.HandleFunc("/api/recordings/stop", r.ConversationHandlers.StopRecording).Methods(http.MethodPost)
	r.Mux.HandleFunc("/api/status", r.ConversationHandlers.Status).Methods(http.MethodGet)
	r.Mux.HandleFunc("/api/speak", r.ConversationHandlers.Speak).Methods(http.MethodPost)

	r.Mux.HandleFunc("/healthCheck", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		json.NewEncoder(w).Encode(response)
	}).Methods(http.MethodGet)
}
