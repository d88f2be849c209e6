package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"voice-connector/internal/domain/dto"
	"voice-connector/internal/domain/errs"
	"voice-connector/internal/infra/logger"
)

type SpeechConfig struct {
	Host   string
	APIKey string
	Model  string
	Voice  string
	Speed  float64
}

// OpenAISpeechProvider synthesizes replies aloud. At most one
// utterance is active: starting a new one cancels whatever is still
// streaming.
type OpenAISpeechProvider struct {
	Logger     *logger.Logger
	HttpClient *http.Client
	Config     SpeechConfig

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewOpenAISpeechProvider(logger *logger.Logger, httpClient *http.Client, config SpeechConfig) *OpenAISpeechProvider {
	if config.Model == "" {
		config.Model = "tts-1"
	}
	if config.Voice == "" {
		config.Voice = "alloy"
	}
	if config.Speed == 0 {
		config.Speed = 0.9
	}
	return &OpenAISpeechProvider{Logger: logger, HttpClient: httpClient, Config: config}
}

func (sp *OpenAISpeechProvider) Speak(ctx context.Context, text string) (io.ReadCloser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errs.Validation("No text provided")
	}

	sp.mu.Lock()
	if sp.cancel != nil {
		sp.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	sp.cancel = cancel
	sp.mu.Unlock()

	payload := dto.SpeechRequest{
		Model: sp.Config.Model,
		Input: text,
		Voice: sp.Config.Voice,
		Speed: sp.Config.Speed,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		cancel()
		return nil, errs.Gateway("speech", "failed to marshal payload", err)
	}

	url := fmt.Sprintf("%s/v1/audio/speech", sp.Config.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		cancel()
		return nil, errs.Gateway("speech", "failed to create HTTP request", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sp.Config.APIKey))
	req.Header.Set("Content-Type", "application/json")

	res, err := sp.HttpClient.Do(req)
	if err != nil {
		cancel()
		return nil, errs.Gateway("speech", "HTTP request failed", err)
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(res.Body)
		res.Body.Close()
		cancel()
		sp.Logger.Error(fmt.Sprintf("Unexpected HTTP status %s response_body %s", res.Status, string(body)))
		return nil, errs.Gateway("speech", fmt.Sprintf("unexpected HTTP status: %s", res.Status), nil)
	}

	// The body stays tied to the utterance context; the next Speak
	// call cancels it mid-stream.
	return res.Body, nil
}
