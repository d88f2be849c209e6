package capture

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
	"voice-connector/internal/domain/errs"
)

// Recorder drains one audio source at a time into a buffer. Capture
// ends at the wall-clock ceiling (auto-stop), on source EOF, on an
// explicit Stop, or when the context is cancelled. Only one capture
// may be active per recorder; a second Capture is rejected.
type Recorder struct {
	Limit time.Duration

	mu        sync.Mutex
	recording bool
	stop      chan struct{}
}

func NewRecorder(limit time.Duration) *Recorder {
	if limit <= 0 {
		limit = 10 * time.Second
	}
	return &Recorder{Limit: limit}
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Stop ends the active capture, keeping whatever was read so far.
// No-op when nothing is recording.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
}

func (r *Recorder) Capture(ctx context.Context, src io.Reader) ([]byte, error) {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return nil, errs.ErrBusy
	}
	r.recording = true
	stop := make(chan struct{})
	r.stop = stop
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.recording = false
		r.stop = nil
		r.mu.Unlock()
	}()

	quit := make(chan struct{})
	defer close(quit)

	chunks := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(chunks)
		buf := make([]byte, 4096)
		for {
			n, err := src.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case chunks <- chunk:
				case <-quit:
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					readErr <- err
				}
				return
			}
		}
	}()

	timer := time.NewTimer(r.Limit)
	defer timer.Stop()

	var captured bytes.Buffer
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				select {
				case err := <-readErr:
					return nil, err
				default:
				}
				return captured.Bytes(), nil
			}
			captured.Write(chunk)
		case <-timer.C:
			// ceiling reached, auto-stop
			return captured.Bytes(), nil
		case <-stop:
			return captured.Bytes(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
