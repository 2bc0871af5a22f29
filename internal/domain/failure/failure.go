package failure

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the caller should react to it.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation covers rejected input caught before any external call.
	KindValidation
	// KindInsufficientText means OCR/normalization left too little text to analyze.
	KindInsufficientText
	KindOCR
	KindAIService
	// KindParse is recovered locally by the fallback synthesizer and never reaches HTTP.
	KindParse
	KindNotFound
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInsufficientText:
		return "insufficient_text"
	case KindOCR:
		return "ocr_failure"
	case KindAIService:
		return "ai_service_failure"
	case KindParse:
		return "parse_failure"
	case KindNotFound:
		return "not_found"
	case KindPersistence:
		return "persistence_failure"
	default:
		return "unknown"
	}
}

// Error is the error value carried across the application layer.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, &Error{Kind: k}) match on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error { return New(KindValidation, msg, nil) }

func InsufficientText(msg string) *Error { return New(KindInsufficientText, msg, nil) }

func OCR(err error) *Error { return New(KindOCR, "ocr service unavailable", err) }

func AIService(err error) *Error { return New(KindAIService, "ai service unavailable", err) }

func NotFound(what string) *Error { return New(KindNotFound, what+" not found", nil) }

func Persistence(op string, err error) *Error { return New(KindPersistence, op, err) }

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
