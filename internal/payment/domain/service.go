package domain

import (
	"context"
	"errors"
)

type Outcome string

const (
	OutcomeApplied       Outcome = "applied"
	OutcomeIgnored       Outcome = "ignored"
	OutcomeRejected      Outcome = "rejected"
	OutcomeAnomaly       Outcome = "anomaly"
	OutcomeUnprocessable Outcome = "unprocessable"
)

// Reconciler turns a raw provider delivery into an order status update.
type Reconciler interface {
	Reconcile(ctx context.Context, event RawWebhookEvent) (Outcome, error)
}

var (
	ErrInvalidProvider  = errors.New("invalid_provider")
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrInvalidConfig    = errors.New("invalid_config")
)
