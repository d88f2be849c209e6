package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"voice-connector/internal/domain/dto"
	"voice-connector/internal/domain/errs"
	"voice-connector/internal/infra/logger"
)

type TranscriptionConfig struct {
	Host   string
	APIKey string
	Model  string
}

type WhisperTranscriptionProvider struct {
	Logger     *logger.Logger
	HttpClient *http.Client
	Config     TranscriptionConfig
}

func NewWhisperTranscriptionProvider(logger *logger.Logger, httpClient *http.Client, config TranscriptionConfig) *WhisperTranscriptionProvider {
	if config.Model == "" {
		config.Model = "whisper-1"
	}
	return &WhisperTranscriptionProvider{Logger: logger, HttpClient: httpClient, Config: config}
}

// Transcribe uploads the captured audio in one synchronous multipart
// request and returns the recognized text. There is never partial
// text on failure.
func (tp *WhisperTranscriptionProvider) Transcribe(ctx context.Context, audio []byte, mimeHint string) (string, error) {
	if len(audio) == 0 {
		return "", errs.Transcription("No audio file provided", nil)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("model", tp.Config.Model); err != nil {
		return "", errs.Transcription("failed to build form", err)
	}
	part, err := form.CreateFormFile("file", fileNameFor(mimeHint))
	if err != nil {
		return "", errs.Transcription("failed to build form", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", errs.Transcription("failed to build form", err)
	}
	if err := form.Close(); err != nil {
		return "", errs.Transcription("failed to build form", err)
	}

	url := fmt.Sprintf("%s/v1/audio/transcriptions", tp.Config.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", errs.Transcription("failed to create HTTP request", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", tp.Config.APIKey))
	req.Header.Set("Content-Type", form.FormDataContentType())

	res, err := tp.HttpClient.Do(req)
	if err != nil {
		tp.Logger.Error(fmt.Sprintf("Transcription request failed: %s", err.Error()))
		return "", errs.Transcription("HTTP request failed", err)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(res.Body)
		tp.Logger.Error(fmt.Sprintf("Unexpected HTTP status %s response_body %s", res.Status, string(data)))
		return "", errs.Transcription(fmt.Sprintf("unexpected HTTP status: %s", res.Status), nil)
	}

	var out dto.TranscribeResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", errs.Transcription("failed to decode response body", err)
	}
	return out.Text, nil
}

// fileNameFor derives an upload file name from the capture mime type,
// e.g. "audio/webm;codecs=opus" -> "audio.webm".
func fileNameFor(mimeHint string) string {
	ext := "webm"
	if rest, ok := strings.CutPrefix(mimeHint, "audio/"); ok {
		if i := strings.IndexByte(rest, ';'); i >= 0 {
			rest = rest[:i]
		}
		if rest != "" {
			ext = rest
		}
	}
	return "audio." + ext
}
