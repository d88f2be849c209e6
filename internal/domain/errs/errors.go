package errs

import (
	"errors"
	"fmt"
)

// ErrNeedsSession signals that an action arrived without an active
// conversation. A new session was created; the caller must re-invoke
// the action against it.
var ErrNeedsSession = errors.New("nenhuma conversa ativa")

// ErrBusy signals that a recording, processing or sending action is
// already in flight.
var ErrBusy = errors.New("outra ação em andamento")

// ValidationError marks missing or empty required input. No remote
// call is attempted once one is raised.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func Validation(message string) error {
	return &ValidationError{Message: message}
}

// GatewayError marks a failed remote call or a remote response missing
// an expected field. Every gateway failure is terminal for its action.
type GatewayError struct {
	Op      string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func Gateway(op, message string, err error) error {
	return &GatewayError{Op: op, Message: message, Err: err}
}

// TranscriptionError is the GatewayError specialization for the
// speech-to-text boundary. errors.As against *GatewayError matches it
// through the unwrap chain.
type TranscriptionError struct {
	GatewayError
}

func (e *TranscriptionError) Unwrap() error {
	return &e.GatewayError
}

func Transcription(message string, err error) error {
	return &TranscriptionError{GatewayError{Op: "transcribe", Message: message, Err: err}}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsGateway(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}

func IsTranscription(err error) bool {
	var te *TranscriptionError
	return errors.As(err, &te)
}
