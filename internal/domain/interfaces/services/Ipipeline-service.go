package Iservices

import (
	"context"
	"io"
	"voice-connector/internal/domain/dto"
	"voice-connector/internal/domain/entities"
)

// IPipelineService orchestrates one user action at a time: capture,
// transcription, completion and the atomic store append.
type IPipelineService interface {
	SendText(ctx context.Context, text string) (entities.ConversationSession, error)
	SendVoice(ctx context.Context, src io.Reader, mimeHint string) (entities.ConversationSession, error)
	StopRecording()
	Status() dto.PipelineStatus
	LastError() string
}
