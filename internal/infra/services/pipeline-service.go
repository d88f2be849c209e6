package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"voice-connector/internal/domain/dto"
	"voice-connector/internal/domain/entities"
	"voice-connector/internal/domain/errs"
	Iservices "voice-connector/internal/domain/interfaces/services"
	"voice-connector/internal/infra/capture"
	"voice-connector/internal/infra/logger"
	"voice-connector/internal/infra/provider"
)

// PipelineService sequences one user action end to end: capture,
// transcription, completion, then the atomic pair append. Failures
// overwrite a single latest-error value; the next successful action
// or a new session clears it. The pipeline never queues: while an
// action is in flight, another one is rejected and the presentation
// layer is expected to keep the controls disabled via Status.
type PipelineService struct {
	Logger        *logger.Logger
	Conversations Iservices.IConversationService
	Assistant     provider.IAssistantProvider
	Transcription provider.ITranscriptionProvider
	Recorder      *capture.Recorder

	flags flagSet
}

func NewPipelineService(
	logger *logger.Logger,
	conversations Iservices.IConversationService,
	assistant provider.IAssistantProvider,
	transcription provider.ITranscriptionProvider,
	recorder *capture.Recorder,
) *PipelineService {
	ps := &PipelineService{
		Logger:        logger,
		Conversations: conversations,
		Assistant:     assistant,
		Transcription: transcription,
		Recorder:      recorder,
	}
	conversations.OnSessionCreated(func(string) {
		ps.flags.clearError()
	})
	return ps
}

// SendText runs a text turn: completion against the active session's
// history, then the pair append. With no active session one is
// created and ErrNeedsSession is returned; the caller re-invokes
// explicitly, the two steps are never chained.
func (ps *PipelineService) SendText(ctx context.Context, text string) (entities.ConversationSession, error) {
	message := strings.TrimSpace(text)
	if message == "" {
		return entities.ConversationSession{}, errs.Validation("mensagem vazia")
	}

	active, ok := ps.Conversations.ActiveSession()
	if !ok {
		ps.Conversations.CreateSession()
		return entities.ConversationSession{}, errs.ErrNeedsSession
	}

	if !ps.flags.begin(stateSending) {
		return entities.ConversationSession{}, errs.ErrBusy
	}
	defer ps.flags.end()

	return ps.runTurn(ctx, active, message, "")
}

// SendVoice runs a voice turn: capture (10s ceiling or explicit
// stop), transcription, then the same completion path as SendText.
// The user turn carries the recognized text as its transcript.
func (ps *PipelineService) SendVoice(ctx context.Context, src io.Reader, mimeHint string) (entities.ConversationSession, error) {
	active, ok := ps.Conversations.ActiveSession()
	if !ok {
		ps.Conversations.CreateSession()
		return entities.ConversationSession{}, errs.ErrNeedsSession
	}

	if !ps.flags.begin(stateRecording) {
		return entities.ConversationSession{}, errs.ErrBusy
	}
	defer ps.flags.end()

	audio, err := ps.Recorder.Capture(ctx, src)
	if err != nil {
		ps.fail(err)
		return entities.ConversationSession{}, err
	}

	ps.flags.transition(stateProcessing)

	transcript, err := ps.Transcription.Transcribe(ctx, audio, mimeHint)
	if err != nil {
		ps.fail(err)
		return entities.ConversationSession{}, err
	}

	return ps.runTurn(ctx, active, transcript, transcript)
}

// StopRecording ends an active capture early; the captured audio
// still goes through transcription.
func (ps *PipelineService) StopRecording() {
	ps.Recorder.Stop()
}

func (ps *PipelineService) Status() dto.PipelineStatus {
	return ps.flags.snapshot()
}

func (ps *PipelineService) LastError() string {
	return ps.flags.snapshot().LastError
}

func (ps *PipelineService) runTurn(ctx context.Context, session entities.ConversationSession, message, transcript string) (entities.ConversationSession, error) {
	reply, err := ps.Assistant.Complete(ctx, message, historyOf(session.Turns))
	if err != nil {
		ps.fail(err)
		return entities.ConversationSession{}, err
	}

	userTurn := entities.ChatTurn{
		Role:       entities.RoleUser,
		Content:    message,
		Timestamp:  time.Now(),
		Transcript: transcript,
	}
	assistantTurn := entities.ChatTurn{
		Role:      entities.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now(),
	}

	// Append targets the session captured at action start; if it was
	// deleted mid-flight the append no-ops and the zero session comes
	// back.
	ps.Conversations.AppendTurns(session.ID, userTurn, assistantTurn)
	ps.flags.clearError()

	updated, _ := ps.Conversations.Session(session.ID)
	return updated, nil
}

func (ps *PipelineService) fail(err error) {
	ps.Logger.Error(fmt.Sprintf("Pipeline action failed: %s", err.Error()))
	ps.flags.fail(err.Error())
}

// historyOf maps stored turns to the {role, content} pairs the
// conversational service expects, in original order. Timestamps and
// transcripts are dropped.
func historyOf(turns []entities.ChatTurn) []dto.HistoryEntry {
	history := make([]dto.HistoryEntry, 0, len(turns))
	for _, turn := range turns {
		history = append(history, dto.HistoryEntry{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	return history
}
