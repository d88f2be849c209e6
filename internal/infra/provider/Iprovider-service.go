package provider

import (
	"context"
	"io"
	"voice-connector/internal/domain/dto"
)

type IAssistantProvider interface {
	Complete(ctx context.Context, message string, history []dto.HistoryEntry) (string, error)
}

type ITranscriptionProvider interface {
	Transcribe(ctx context.Context, audio []byte, mimeHint string) (string, error)
}

type ISpeechProvider interface {
	Speak(ctx context.Context, text string) (io.ReadCloser, error)
}
