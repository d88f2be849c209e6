package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"voice-connector/internal/domain/dto"
	"voice-connector/internal/domain/errs"
	Iservices "voice-connector/internal/domain/interfaces/services"
	"voice-connector/internal/infra/logger"
	"voice-connector/internal/infra/provider"

	"github.com/gorilla/mux"
)

// ConversationHandlers is the HTTP stand-in for the presentation
// layer: session management, pipeline actions and playback. It honors
// the pipeline busy flags by refusing a second action while one is in
// flight; the pipeline itself never queues.
type ConversationHandlers struct {
	Logger        *logger.Logger
	Conversations Iservices.IConversationService
	Pipeline      Iservices.IPipelineService
	Speech        provider.ISpeechProvider
}

func NewConversationHandlers(logger *logger.Logger, conversations Iservices.IConversationService, pipeline Iservices.IPipelineService, speech provider.ISpeechProvider) *ConversationHandlers {
	return &ConversationHandlers{Logger: logger, Conversations: conversations, Pipeline: pipeline, Speech: speech}
}

func (ch *ConversationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	id := ch.Conversations.CreateSession()
	session, _ := ch.Conversations.Session(id)
	writeJSON(w, http.StatusCreated, session)
}

func (ch *ConversationHandlers) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ch.Conversations.Sessions())
}

func (ch *ConversationHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ch.Conversations.DeleteSession(id)
	w.WriteHeader(http.StatusNoContent)
}

func (ch *ConversationHandlers) Activate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ch.Conversations.SetActive(id)
	w.WriteHeader(http.StatusNoContent)
}

func (ch *ConversationHandlers) Active(w http.ResponseWriter, r *http.Request) {
	session, ok := ch.Conversations.ActiveSession()
	if !ok {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Nenhuma conversa ativa"})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (ch *ConversationHandlers) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ch.Pipeline.Status())
}

func (ch *ConversationHandlers) SendText(w http.ResponseWriter, r *http.Request) {
	var request dto.TextMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid JSON body"})
		return
	}
	defer r.Body.Close()

	if ch.busy(w) {
		return
	}

	session, err := ch.Pipeline.SendText(r.Context(), request.Text)
	if err != nil {
		ch.writeActionError(w, err, "Falha ao gerar resposta da IA")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (ch *ConversationHandlers) SendVoice(w http.ResponseWriter, r *http.Request) {
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

	if ch.busy(w) {
		return
	}

	session, err := ch.Pipeline.SendVoice(r.Context(), file, header.Header.Get("Content-Type"))
	if err != nil {
		ch.writeActionError(w, err, "Falha ao gerar resposta da IA")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (ch *ConversationHandlers) StopRecording(w http.ResponseWriter, r *http.Request) {
	ch.Pipeline.StopRecording()
	w.WriteHeader(http.StatusAccepted)
}

func (ch *ConversationHandlers) Speak(w http.ResponseWriter, r *http.Request) {
	var request dto.SpeakRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid JSON body"})
		return
	}
	defer r.Body.Close()

	stream, err := ch.Speech.Speak(r.Context(), request.Text)
	if err != nil {
		if errs.IsValidation(err) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
			return
		}
		ch.Logger.Error(fmt.Sprintf("Speech error: %s", err.Error()))
		writeJSON(w, http.StatusBadGateway, dto.ErrorResponse{Error: "Falha na síntese de voz"})
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	if _, err := io.Copy(w, stream); err != nil {
		ch.Logger.Warn(fmt.Sprintf("Speech stream interrupted: %s", err.Error()))
	}
}

// busy answers 409 while a pipeline action is in flight.
func (ch *ConversationHandlers) busy(w http.ResponseWriter) bool {
	status := ch.Pipeline.Status()
	if status.Recording || status.Processing || status.Sending {
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Outra ação em andamento"})
		return true
	}
	return false
}

func (ch *ConversationHandlers) writeActionError(w http.ResponseWriter, err error, gatewayMessage string) {
	switch {
	case errors.Is(err, errs.ErrNeedsSession):
		// Two-step UX: a session was created, the caller retries.
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Nova conversa criada, repita a ação"})
	case errors.Is(err, errs.ErrBusy):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "Outra ação em andamento"})
	case errs.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errs.IsTranscription(err):
		ch.Logger.Error(fmt.Sprintf("Pipeline error: %s", err.Error()))
		writeJSON(w, http.StatusBadGateway, dto.ErrorResponse{Error: "Falha na transcrição"})
	default:
		ch.Logger.Error(fmt.Sprintf("Pipeline error: %s", err.Error()))
		writeJSON(w, http.StatusBadGateway, dto.ErrorResponse{Error: gatewayMessage})
	}
}
