package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	KindParse       ErrorKind = "ParseError"
	KindExtraction  ErrorKind = "ExtractionError"
	KindFetch       ErrorKind = "FetchError"
	KindGeneration  ErrorKind = "GenerationFailed"
	KindUnsupported ErrorKind = "Unsupported"
)

// FetchReason refines KindFetch.
type FetchReason string

const (
	ReasonNotPubliclyShared FetchReason = "NotPubliclyShared"
	ReasonUnsupportedType   FetchReason = "UnsupportedType"
	ReasonTransport         FetchReason = "Transport"
)

// Kind sentinels, matched with errors.Is against any *PipelineError.
var (
	ErrParse             = errors.New("parse error")
	ErrExtraction        = errors.New("extraction error")
	ErrFetch             = errors.New("fetch error")
	ErrGeneration        = errors.New("generation failed")
	ErrUnsupported       = errors.New("unsupported input")
	ErrNotPubliclyShared = errors.New("document is not publicly shared")
	ErrUnsupportedType   = errors.New("unsupported remote file type")
	ErrTransport         = errors.New("remote transport failure")
)

// PipelineError is the typed failure surfaced by detection, extraction, fetch and synthesis.
type PipelineError struct {
	Kind     ErrorKind
	Reason   FetchReason // only set for KindFetch
	Artifact string      // filename or URL the failure belongs to, when known
	Message  string
	Cause    error
}

func (e *PipelineError) Error() string {
	label := string(e.Kind)
	if e.Reason != "" {
		label += "(" + string(e.Reason) + ")"
	}
	msg := label + ": " + e.Message
	if e.Artifact != "" {
		msg = label + " [" + e.Artifact + "]: " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is matches the kind and reason sentinels.
func (e *PipelineError) Is(target error) bool {
	switch target {
	case ErrParse:
		return e.Kind == KindParse
	case ErrExtraction:
		return e.Kind == KindExtraction
	case ErrFetch:
		return e.Kind == KindFetch
	case ErrGeneration:
		return e.Kind == KindGeneration
	case ErrUnsupported:
		return e.Kind == KindUnsupported
	case ErrNotPubliclyShared:
		return e.Kind == KindFetch && e.Reason == ReasonNotPubliclyShared
	case ErrUnsupportedType:
		return e.Kind == KindFetch && e.Reason == ReasonUnsupportedType
	case ErrTransport:
		return e.Kind == KindFetch && e.Reason == ReasonTransport
	}
	return false
}

func ParseError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindParse, Message: message, Cause: cause}
}

func ExtractionError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindExtraction, Message: message, Cause: cause}
}

func FetchError(reason FetchReason, message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindFetch, Reason: reason, Message: message, Cause: cause}
}

func GenerationError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindGeneration, Message: message, Cause: cause}
}

func UnsupportedError(message string) *PipelineError {
	return &PipelineError{Kind: KindUnsupported, Message: message}
}

// WithArtifact tags err with the artifact it belongs to. Non-pipeline errors are
// returned unchanged.
func WithArtifact(err error, artifact string) error {
	var pe *PipelineError
	if !errors.As(err, &pe) {
		return err
	}
	cp := *pe
	cp.Artifact = artifact
	return &cp
}

// KindOf returns the pipeline error kind carried by err, if any.
func KindOf(err error) (ErrorKind, FetchReason, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, pe.Reason, true
	}
	return "", "", false
}

// StatusFromError maps an error onto a gRPC status for RPC-facing callers.
func StatusFromError(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		return s
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, ErrNotPubliclyShared):
		return status.New(codes.PermissionDenied, err.Error())
	case errors.Is(err, ErrUnsupportedType), errors.Is(err, ErrUnsupported):
		return status.New(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrTransport), errors.Is(err, ErrExtraction):
		return status.New(codes.Unavailable, err.Error())
	case errors.Is(err, ErrParse):
		return status.New(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrGeneration):
		return status.New(codes.Internal, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.New(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return status.New(codes.InvalidArgument, err.Error())
	}
	return status.New(codes.Internal, err.Error())
}
