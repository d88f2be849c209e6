package dto

// HistoryEntry is one prior turn as the conversational service sees
// it: role and content only, timestamps and transcripts dropped.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message string         `json:"message"`
	History []HistoryEntry `json:"history"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

type TranscribeResponse struct {
	Text string `json:"text"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type TextMessageRequest struct {
	Text string `json:"text"`
}

type SpeakRequest struct {
	Text string `json:"text"`
}

// PipelineStatus exposes the transient busy flags and the latest
// error for the presentation layer to honor.
type PipelineStatus struct {
	Recording  bool   `json:"recording"`
	Processing bool   `json:"processing"`
	Sending    bool   `json:"sending"`
	LastError  string `json:"lastError,omitempty"`
}
