package services

import (
	"sync"
	"voice-connector/internal/domain/dto"
)

type pipelineState int

const (
	stateIdle pipelineState = iota
	stateRecording
	stateProcessing
	stateSending
)

// flagSet guards the mutually exclusive busy states and the single
// latest-error value.
type flagSet struct {
	mu        sync.Mutex
	state     pipelineState
	lastError string
}

// begin claims the pipeline for an action; false when busy.
func (f *flagSet) begin(state pipelineState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != stateIdle {
		return false
	}
	f.state = state
	return true
}

// transition moves an in-flight action to its next state, e.g.
// recording to processing.
func (f *flagSet) transition(state pipelineState) {
	f.mu.Lock()
	f.state = state
	f.mu.Unlock()
}

func (f *flagSet) end() {
	f.mu.Lock()
	f.state = stateIdle
	f.mu.Unlock()
}

func (f *flagSet) fail(message string) {
	f.mu.Lock()
	f.lastError = message
	f.mu.Unlock()
}

func (f *flagSet) clearError() {
	f.mu.Lock()
	f.lastError = ""
	f.mu.Unlock()
}

func (f *flagSet) snapshot() dto.PipelineStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return dto.PipelineStatus{
		Recording:  f.state == stateRecording,
		Processing: f.state == stateProcessing,
		Sending:    f.state == stateSending,
		LastError:  f.lastError,
	}
}
