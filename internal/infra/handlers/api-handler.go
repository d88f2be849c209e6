package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"voice-connector/internal/domain/dto"
	"voice-connector/internal/infra/logger"
	"voice-connector/internal/infra/provider"
)

// Whisper rejects uploads past 25 MB.
const maxAudioBytes = 25 << 20

// ApiHandlers serves the two proxy boundaries: /api/chat and
// /api/transcribe.
type ApiHandlers struct {
	Logger        *logger.Logger
	Assistant     provider.IAssistantProvider
	Transcription provider.ITranscriptionProvider
}

func NewApiHandlers(logger *logger.Logger, assistant provider.IAssistantProvider, transcription provider.ITranscriptionProvider) *ApiHandlers {
	return &ApiHandlers{Logger: logger, Assistant: assistant, Transcription: transcription}
}

func (th *ApiHandlers) Chat(w http.ResponseWriter, r *http.Request) {
	var request dto.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid JSON body"})
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(request.Message) == "" {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "No message provided"})
		return
	}

	reply, err := th.Assistant.Complete(r.Context(), request.Message, request.History)
	if err != nil {
		th.Logger.Error(fmt.Sprintf("Assistant error: %s", err.Error()))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to generate response"})
		return
	}

	writeJSON(w, http.StatusOK, dto.ChatResponse{Response: reply})
}

func (th *ApiHandlers) Transcribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "No audio file provided"})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to read audio upload: %s", err.Error()))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Transcription failed"})
		return
	}

	text, err := th.Transcription.Transcribe(r.Context(), audio, header.Header.Get("Content-Type"))
	if err != nil {
		th.Logger.Error(fmt.Sprintf("Transcription error: %s", err.Error()))
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "Transcription failed"})
		return
	}

	writeJSON(w, http.StatusOK, dto.TranscribeResponse{Text: text})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
