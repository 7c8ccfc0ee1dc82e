package oauth

import (
	"errors"
	"fmt"
)

// Reason classifies a failed callback.
type Reason string

const (
	ReasonProviderError  Reason = "provider_error"
	ReasonMissingParams  Reason = "missing_params"
	ReasonStateMismatch  Reason = "state_mismatch"
	ReasonNoPendingState Reason = "no_pending_state"
	ReasonExchangeFailed Reason = "exchange_failed"
)

// ErrCooldown is returned by Initiate when a flow was started moments ago.
// The earlier state stays valid.
var ErrCooldown = errors.New("oauth flow already started, wait before retrying")

// Sentinels for errors.Is, one per Reason.
var (
	ErrProviderError  = &FlowError{Reason: ReasonProviderError}
	ErrMissingParams  = &FlowError{Reason: ReasonMissingParams}
	ErrStateMismatch  = &FlowError{Reason: ReasonStateMismatch}
	ErrNoPendingState = &FlowError{Reason: ReasonNoPendingState}
	ErrExchangeFailed = &FlowError{Reason: ReasonExchangeFailed}
)

// FlowError is a hard failure of one flow instance. The user has to start
// over.
type FlowError struct {
	Reason Reason

	// Description carries the provider's error_description, if any.
	Description string

	// Err is the underlying failure, usually an *apierror.APIError.
	Err error
}

func (e *FlowError) Error() string {
	msg := fmt.Sprintf("discord authentication failed: %s", e.Reason)
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FlowError) Unwrap() error { return e.Err }

// Is matches FlowErrors with the same Reason.
func (e *FlowError) Is(target error) bool {
	t, ok := target.(*FlowError)
	return ok && t.Reason == e.Reason
}
