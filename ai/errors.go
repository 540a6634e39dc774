package ai

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a service failure
type Kind string

const (
	KindTimeout     Kind = "timeout"
	KindUnavailable Kind = "unavailable"
	KindEmpty       Kind = "empty_response"
	KindInvalid     Kind = "invalid_input"
)

// ServiceError is returned by every Client call that fails, so callers can
// branch on Kind instead of inspecting transport errors.
type ServiceError struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai %s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("ai %s: %s", e.Kind, e.Detail)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// UserMessage is a short description safe to show in chat
func (e *ServiceError) UserMessage() string {
	switch e.Kind {
	case KindTimeout:
		return "сервис не ответил вовремя, попробуйте ещё раз"
	case KindEmpty:
		return "сервис вернул пустой ответ"
	case KindInvalid:
		return "не удалось обработать запрос"
	default:
		return "сервис временно недоступен"
	}
}

// KindOf returns the kind of a ServiceError in err's chain, or "" if none
func KindOf(err error) Kind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// wrap turns a provider error into a ServiceError, treating an expired
// deadline as a timeout.
func wrap(ctx context.Context, detail string, err error) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ServiceError{Kind: KindTimeout, Detail: detail, Err: err}
	}
	return &ServiceError{Kind: KindUnavailable, Detail: detail, Err: err}
}
