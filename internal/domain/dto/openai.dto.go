package dto

// Wire types for the OpenAI Assistants v2 and audio endpoints. Only
// the fields this connector reads are declared.

type ThreadRequest struct {
	Messages []HistoryEntry `json:"messages"`
}

type ThreadResponse struct {
	ID string `json:"id"`
}

type RunRequest struct {
	AssistantID string `json:"assistant_id"`
}

type RunResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type ThreadMessageList struct {
	Data []ThreadMessage `json:"data"`
}

type ThreadMessage struct {
	Role    string           `json:"role"`
	Content []MessageContent `json:"content"`
}

type MessageContent struct {
	Type string      `json:"type"`
	Text MessageText `json:"text"`
}

type MessageText struct {
	Value string `json:"value"`
}

type SpeechRequest struct {
	Model string  `json:"model"`
	Input string  `json:"input"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}
