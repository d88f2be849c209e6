package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"voice-connector/internal/domain/dto"
	"voice-connector/internal/domain/errs"
	"voice-connector/internal/infra/logger"
)

// AssistantConfig carries the fixed remote identity plus the wait
// knobs. RunTimeout zero means the poll loop waits indefinitely, the
// behavior the service was originally deployed with; set it to bound
// the wait.
type AssistantConfig struct {
	Host         string
	APIKey       string
	AssistantID  string
	PollInterval time.Duration
	RunTimeout   time.Duration
}

type OpenAIAssistantProvider struct {
	Logger     *logger.Logger
	HttpClient *http.Client
	Config     AssistantConfig
}

func NewOpenAIAssistantProvider(logger *logger.Logger, httpClient *http.Client, config AssistantConfig) *OpenAIAssistantProvider {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	return &OpenAIAssistantProvider{Logger: logger, HttpClient: httpClient, Config: config}
}

// Complete runs one turn against the remote assistant: seed a thread
// with the prior history plus the new message, start a run, wait for a
// terminal status, then read the newest thread message as the reply.
// No retries; any remote failure aborts the turn.
func (ap *OpenAIAssistantProvider) Complete(ctx context.Context, message string, history []dto.HistoryEntry) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", errs.Validation("No message provided")
	}

	messages := make([]dto.HistoryEntry, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, dto.HistoryEntry{Role: "user", Content: message})

	threadID, err := ap.createThread(ctx, messages)
	if err != nil {
		return "", err
	}

	runID, err := ap.startRun(ctx, threadID)
	if err != nil {
		return "", err
	}

	if err := ap.waitRun(ctx, threadID, runID); err != nil {
		return "", err
	}

	return ap.fetchReply(ctx, threadID)
}

func (ap *OpenAIAssistantProvider) createThread(ctx context.Context, messages []dto.HistoryEntry) (string, error) {
	var thread dto.ThreadResponse
	err := ap.do(ctx, http.MethodPost, "/v1/threads", dto.ThreadRequest{Messages: messages}, &thread)
	if err != nil {
		ap.Logger.Error(fmt.Sprintf("Failed to create thread: %s", err.Error()))
		return "", err
	}
	if thread.ID == "" {
		return "", errs.Gateway("thread", "no thread id in response", nil)
	}
	return thread.ID, nil
}

func (ap *OpenAIAssistantProvider) startRun(ctx context.Context, threadID string) (string, error) {
	var run dto.RunResponse
	path := fmt.Sprintf("/v1/threads/%s/runs", threadID)
	err := ap.do(ctx, http.MethodPost, path, dto.RunRequest{AssistantID: ap.Config.AssistantID}, &run)
	if err != nil {
		ap.Logger.Error(fmt.Sprintf("Failed to start run on thread %s: %s", threadID, err.Error()))
		return "", err
	}
	if run.ID == "" {
		return "", errs.Gateway("run", "no run id in response", nil)
	}
	return run.ID, nil
}

// waitRun polls the run until it leaves queued/in_progress. A
// non-completed terminal status does not fail here; the reply fetch
// decides whether a usable assistant message exists.
func (ap *OpenAIAssistantProvider) waitRun(ctx context.Context, threadID, runID string) error {
	if ap.Config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ap.Config.RunTimeout)
		defer cancel()
	}

	path := fmt.Sprintf("/v1/threads/%s/runs/%s", threadID, runID)
	status := "in_progress"
	for status == "in_progress" || status == "queued" {
		select {
		case <-ctx.Done():
			return errs.Gateway("run", "run wait aborted", ctx.Err())
		case <-time.After(ap.Config.PollInterval):
		}

		var run dto.RunResponse
		if err := ap.do(ctx, http.MethodGet, path, nil, &run); err != nil {
			return err
		}
		status = run.Status
	}

	if status != "completed" {
		ap.Logger.Warn(fmt.Sprintf("Run %s ended with status %s", runID, status))
	}
	return nil
}

func (ap *OpenAIAssistantProvider) fetchReply(ctx context.Context, threadID string) (string, error) {
	var list dto.ThreadMessageList
	path := fmt.Sprintf("/v1/threads/%s/messages", threadID)
	if err := ap.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return "", err
	}

	// The remote orders messages newest-first; the reply is the first
	// entry's first content block.
	if len(list.Data) == 0 || len(list.Data[0].Content) == 0 || list.Data[0].Content[0].Text.Value == "" {
		return "", errs.Gateway("messages", "no assistant reply in thread", nil)
	}
	return list.Data[0].Content[0].Text.Value, nil
}

func (ap *OpenAIAssistantProvider) do(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errs.Gateway(path, "failed to marshal payload", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, ap.Config.Host+path, body)
	if err != nil {
		return errs.Gateway(path, "failed to create HTTP request", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", ap.Config.APIKey))
	req.Header.Set("OpenAI-Beta", "assistants=v2")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := ap.HttpClient.Do(req)
	if err != nil {
		return errs.Gateway(path, "HTTP request failed", err)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(res.Body)
		ap.Logger.Error(fmt.Sprintf("Unexpected HTTP status %s response_body %s", res.Status, string(data)))
		return errs.Gateway(path, fmt.Sprintf("unexpected HTTP status: %s", res.Status), nil)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errs.Gateway(path, "failed to decode response body", err)
	}
	return nil
}
