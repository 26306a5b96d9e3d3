package models

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	KindUnsupportedFormat   Kind = "unsupported_format"
	KindDecode              Kind = "decode_error"
	KindPayloadTooLarge     Kind = "payload_too_large"
	KindAudioTooLong        Kind = "audio_too_long"
	KindAudioTooShort       Kind = "audio_too_short"
	KindModelLoad           Kind = "model_load_error"
	KindEmbedding           Kind = "embedding_error"
	KindDegenerateEmbedding Kind = "degenerate_embedding"
	KindInvalidInput        Kind = "invalid_input"
	KindTimeout             Kind = "timeout"
	KindCanceled            Kind = "canceled"
	KindFetch               Kind = "fetch_error"
	KindInternal            Kind = "internal_error"
)

// Retryable reports whether the same request may succeed later without
// any change on the caller's side.
func (k Kind) Retryable() bool {
	return k == KindModelLoad || k == KindTimeout
}

// Internal reports whether the kind signals a fault in the system rather
// than in the caller's input.
func (k Kind) Internal() bool {
	switch k {
	case KindEmbedding, KindInternal, KindModelLoad:
		return true
	}
	return false
}

// Error is a classified pipeline error. Op names the stage that failed,
// Msg is safe to show to callers, Err keeps the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error with a formatted caller-facing message.
func Errorf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind Kind, op, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// ContextError classifies a context error. A caller that went away gives
// KindCanceled; an expired deadline gives KindTimeout with msg.
func ContextError(op, msg string, err error) error {
	if errors.Is(err, context.Canceled) {
		return Wrap(KindCanceled, op, "request was canceled", err)
	}
	return Wrap(KindTimeout, op, msg, err)
}

// KindOf returns the kind of the first *Error in err's chain. Context
// deadlines map to KindTimeout, cancellation to KindCanceled; anything
// unclassified is KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindInternal
}

// PublicMessage returns a message suitable for callers. Internal kinds
// never leak their causes.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	kind := KindOf(err)
	switch kind {
	case KindInternal, KindEmbedding:
		return "internal error while comparing voices"
	case KindTimeout:
		return "processing exceeded the time limit"
	case KindCanceled:
		return "request was canceled"
	}
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		if kind == KindDecode || kind == KindFetch {
			if e.Err != nil {
				return e.Msg + ": " + e.Err.Error()
			}
		}
		return e.Msg
	}
	return string(kind)
}
