package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"voice-connector/internal/domain/dto"
	"voice-connector/internal/domain/errs"
	"voice-connector/internal/infra/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTranscription(t *testing.T, handler http.HandlerFunc) *WhisperTranscriptionProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	log := logger.NewLogger(context.Background(), false)
	return NewWhisperTranscriptionProvider(log, server.Client(), TranscriptionConfig{
		Host:   server.URL,
		APIKey: "test-key",
		Model:  "whisper-1",
	})
}

func TestTranscribeEmptyPayload(t *testing.T) {
	called := false
	tp := newTestTranscription(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := tp.Transcribe(context.Background(), nil, "audio/webm")

	assert.True(t, errs.IsTranscription(err))
	assert.False(t, called)
}

func TestTranscribeUploadsMultipartForm(t *testing.T) {
	tp := newTestTranscription(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.webm", header.Filename)

		audio, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("opus-bytes"), audio)

		json.NewEncoder(w).Encode(dto.TranscribeResponse{Text: "olá mundo"})
	})

	text, err := tp.Transcribe(context.Background(), []byte("opus-bytes"), "audio/webm;codecs=opus")

	require.NoError(t, err)
	assert.Equal(t, "olá mundo", text)
}

func TestTranscribeRemoteError(t *testing.T) {
	tp := newTestTranscription(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "whisper down"})
	})

	_, err := tp.Transcribe(context.Background(), []byte("opus"), "audio/webm")

	assert.True(t, errs.IsTranscription(err))
	assert.True(t, errs.IsGateway(err))
}

func TestFileNameFor(t *testing.T) {
	assert.Equal(t, "audio.webm", fileNameFor("audio/webm;codecs=opus"))
	assert.Equal(t, "audio.ogg", fileNameFor("audio/ogg"))
	assert.Equal(t, "audio.webm", fileNameFor(""))
	assert.Equal(t, "audio.webm", fileNameFor("video/mp4"))
}
