package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
	"voice-connector/internal/domain/dto"
	"voice-connector/internal/domain/entities"
	"voice-connector/internal/domain/errs"
	"voice-connector/internal/infra/capture"
	"voice-connector/internal/infra/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssistant struct {
	mu         sync.Mutex
	calls      int
	gotMessage string
	gotHistory []dto.HistoryEntry
	reply      string
	err        error
	block      chan struct{}
}

func (f *fakeAssistant) Complete(ctx context.Context, message string, history []dto.HistoryEntry) (string, error) {
	f.mu.Lock()
	f.calls++
	f.gotMessage = message
	f.gotHistory = history
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", errs.Gateway("run", "run wait aborted", ctx.Err())
		}
	}
	return f.reply, f.err
}

func (f *fakeAssistant) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTranscription struct {
	mu       sync.Mutex
	calls    int
	gotAudio []byte
	gotMime  string
	text     string
	err      error
}

func (f *fakeTranscription) Transcribe(ctx context.Context, audio []byte, mimeHint string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.gotAudio = audio
	f.gotMime = mimeHint
	f.mu.Unlock()
	return f.text, f.err
}

func newTestPipeline(t *testing.T, assistant *fakeAssistant, transcription *fakeTranscription) (*PipelineService, *ConversationService) {
	t.Helper()
	log := logger.NewLogger(context.Background(), false)
	store := NewConversationService(log)
	recorder := capture.NewRecorder(200 * time.Millisecond)
	pipeline := NewPipelineService(log, store, assistant, transcription, recorder)
	return pipeline, store
}

func TestSendTextAppendsPairAndDerivesTitle(t *testing.T) {
	assistant := &fakeAssistant{reply: "claro!"}
	pipeline, store := newTestPipeline(t, assistant, &fakeTranscription{})
	store.CreateSession()

	long := "Hello there, this is a long test message exceeding thirty chars"
	session, err := pipeline.SendText(context.Background(), long)

	require.NoError(t, err)
	assert.Equal(t, "Hello there, this is a long te...", session.Title)
	require.Len(t, session.Turns, 2)
	assert.Equal(t, entities.RoleUser, session.Turns[0].Role)
	assert.Equal(t, long, session.Turns[0].Content)
	assert.Empty(t, session.Turns[0].Transcript)
	assert.Equal(t, entities.RoleAssistant, session.Turns[1].Role)
	assert.Equal(t, "claro!", session.Turns[1].Content)
	assert.Empty(t, pipeline.LastError())
}

func TestSendTextEmptyIsValidationError(t *testing.T) {
	assistant := &fakeAssistant{reply: "nunca"}
	pipeline, store := newTestPipeline(t, assistant, &fakeTranscription{})
	store.CreateSession()

	_, err := pipeline.SendText(context.Background(), "   \n ")

	assert.True(t, errs.IsValidation(err))
	assert.Zero(t, assistant.callCount())
}

func TestSendTextWithoutActiveSessionNeedsSession(t *testing.T) {
	assistant := &fakeAssistant{reply: "olá"}
	pipeline, store := newTestPipeline(t, assistant, &fakeTranscription{})

	_, err := pipeline.SendText(context.Background(), "oi")

	assert.True(t, errors.Is(err, errs.ErrNeedsSession))
	assert.Zero(t, assistant.callCount())
	require.Len(t, store.Sessions(), 1)

	// The explicit second invocation lands in the session just created.
	session, err := pipeline.SendText(context.Background(), "oi")
	require.NoError(t, err)
	assert.Len(t, session.Turns, 2)
}

func TestSendTextMapsHistoryToRoleContentOnly(t *testing.T) {
	assistant := &fakeAssistant{reply: "resposta"}
	pipeline, store := newTestPipeline(t, assistant, &fakeTranscription{})
	id := store.CreateSession()

	now := time.Now()
	store.AppendTurns(id,
		entities.ChatTurn{Role: entities.RoleUser, Content: "hi", Timestamp: now, Transcript: "hi"},
		entities.ChatTurn{Role: entities.RoleAssistant, Content: "hello", Timestamp: now},
	)

	_, err := pipeline.SendText(context.Background(), "next")

	require.NoError(t, err)
	assert.Equal(t, "next", assistant.gotMessage)
	assert.Equal(t, []dto.HistoryEntry{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}, assistant.gotHistory)
}

func TestSendTextGatewayErrorLeavesStoreUntouched(t *testing.T) {
	assistant := &fakeAssistant{err: errs.Gateway("thread", "no thread id in response", nil)}
	pipeline, store := newTestPipeline(t, assistant, &fakeTranscription{})
	id := store.CreateSession()

	_, err := pipeline.SendText(context.Background(), "oi")

	assert.True(t, errs.IsGateway(err))
	session, _ := store.Session(id)
	assert.Empty(t, session.Turns)
	assert.Equal(t, entities.DefaultTitle, session.Title)
	assert.NotEmpty(t, pipeline.LastError())

	status := pipeline.Status()
	assert.False(t, status.Recording || status.Processing || status.Sending)
}

func TestCreateSessionClearsLastError(t *testing.T) {
	assistant := &fakeAssistant{err: errs.Gateway("run", "no run id in response", nil)}
	pipeline, store := newTestPipeline(t, assistant, &fakeTranscription{})
	store.CreateSession()

	_, err := pipeline.SendText(context.Background(), "oi")
	require.Error(t, err)
	require.NotEmpty(t, pipeline.LastError())

	store.CreateSession()

	assert.Empty(t, pipeline.LastError())
}

func TestSendVoiceSetsTranscriptOnUserTurn(t *testing.T) {
	assistant := &fakeAssistant{reply: "tudo bem!"}
	transcription := &fakeTranscription{text: "como vai você"}
	pipeline, store := newTestPipeline(t, assistant, transcription)
	store.CreateSession()

	session, err := pipeline.SendVoice(context.Background(), bytes.NewReader([]byte("opus")), "audio/webm;codecs=opus")

	require.NoError(t, err)
	require.Len(t, session.Turns, 2)
	assert.Equal(t, "como vai você", session.Turns[0].Content)
	assert.Equal(t, "como vai você", session.Turns[0].Transcript)
	assert.Equal(t, "tudo bem!", session.Turns[1].Content)
	assert.Equal(t, "como vai você", session.Title)

	assert.Equal(t, []byte("opus"), transcription.gotAudio)
	assert.Equal(t, "audio/webm;codecs=opus", transcription.gotMime)
	assert.Equal(t, "como vai você", assistant.gotMessage)
}

func TestSendVoiceTranscriptionErrorLeavesStoreUntouched(t *testing.T) {
	assistant := &fakeAssistant{reply: "nunca"}
	transcription := &fakeTranscription{err: errs.Transcription("unexpected HTTP status: 500 Internal Server Error", nil)}
	pipeline, store := newTestPipeline(t, assistant, transcription)
	id := store.CreateSession()

	_, err := pipeline.SendVoice(context.Background(), bytes.NewReader([]byte("opus")), "audio/webm")

	assert.True(t, errs.IsTranscription(err))
	assert.Zero(t, assistant.callCount())
	session, _ := store.Session(id)
	assert.Empty(t, session.Turns)

	status := pipeline.Status()
	assert.False(t, status.Recording || status.Processing || status.Sending)
	assert.NotEmpty(t, pipeline.LastError())
}

func TestSendVoiceWithoutActiveSessionNeedsSession(t *testing.T) {
	transcription := &fakeTranscription{text: "oi"}
	pipeline, store := newTestPipeline(t, &fakeAssistant{reply: "olá"}, transcription)

	_, err := pipeline.SendVoice(context.Background(), bytes.NewReader([]byte("opus")), "audio/webm")

	assert.True(t, errors.Is(err, errs.ErrNeedsSession))
	assert.Zero(t, transcription.calls)
	assert.Len(t, store.Sessions(), 1)
}

// The poll loop has no timeout of its own: while the remote never
// reaches a terminal status the action stays pending and nothing is
// appended. The context knob is the only way out.
func TestActionStaysPendingWhileRunNeverTerminates(t *testing.T) {
	assistant := &fakeAssistant{reply: "tarde", block: make(chan struct{})}
	pipeline, store := newTestPipeline(t, assistant, &fakeTranscription{})
	id := store.CreateSession()

	done := make(chan error, 1)
	go func() {
		_, err := pipeline.SendText(context.Background(), "oi")
		done <- err
	}()

	require.Eventually(t, func() bool { return pipeline.Status().Sending }, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("action finished without a terminal run status")
	default:
	}
	session, _ := store.Session(id)
	assert.Empty(t, session.Turns)

	// A second action is refused while the first one hangs.
	_, err := pipeline.SendText(context.Background(), "outra")
	assert.True(t, errors.Is(err, errs.ErrBusy))

	close(assistant.block)
	require.NoError(t, <-done)
	session, _ = store.Session(id)
	assert.Len(t, session.Turns, 2)
}

func TestSendVoiceStopRecordingProceeds(t *testing.T) {
	assistant := &fakeAssistant{reply: "olá"}
	transcription := &fakeTranscription{text: "oi"}
	log := logger.NewLogger(context.Background(), false)
	store := NewConversationService(log)
	recorder := capture.NewRecorder(5 * time.Second)
	pipeline := NewPipelineService(log, store, assistant, transcription, recorder)
	store.CreateSession()

	src := &blockingSource{data: []byte("opus"), wait: make(chan struct{})}
	done := make(chan error, 1)
	go func() {
		_, err := pipeline.SendVoice(context.Background(), src, "audio/webm")
		done <- err
	}()

	require.Eventually(t, func() bool { return pipeline.Status().Recording }, time.Second, 5*time.Millisecond)
	pipeline.StopRecording()

	require.NoError(t, <-done)
	assert.Equal(t, []byte("opus"), transcription.gotAudio)
	close(src.wait)
}

// blockingSource serves its data once, then blocks until released.
type blockingSource struct {
	mu     sync.Mutex
	data   []byte
	served bool
	wait   chan struct{}
}

func (b *blockingSource) Read(p []byte) (int, error) {
	b.mu.Lock()
	if !b.served {
		b.served = true
		n := copy(p, b.data)
		b.mu.Unlock()
		return n, nil
	}
	b.mu.Unlock()
	<-b.wait
	return 0, io.EOF
}

func TestSendTextDeletedMidFlightNoops(t *testing.T) {
	assistant := &fakeAssistant{reply: "tarde", block: make(chan struct{})}
	pipeline, store := newTestPipeline(t, assistant, &fakeTranscription{})
	id := store.CreateSession()

	done := make(chan error, 1)
	go func() {
		_, err := pipeline.SendText(context.Background(), "oi")
		done <- err
	}()

	require.Eventually(t, func() bool { return pipeline.Status().Sending }, time.Second, 5*time.Millisecond)
	store.DeleteSession(id)
	close(assistant.block)

	require.NoError(t, <-done)
	assert.Empty(t, store.Sessions())
	_, ok := store.Session(id)
	assert.False(t, ok)
}

func TestHistoryOfDropsDecoration(t *testing.T) {
	turns := []entities.ChatTurn{
		{Role: entities.RoleUser, Content: "hi", Timestamp: time.Now(), Transcript: "hi"},
		{Role: entities.RoleAssistant, Content: "hello", Timestamp: time.Now()},
	}

	history := historyOf(turns)

	require.Len(t, history, 2)
	assert.Equal(t, dto.HistoryEntry{Role: "user", Content: "hi"}, history[0])
	assert.Equal(t, dto.HistoryEntry{Role: "assistant", Content: "hello"}, history[1])
}
