// Package payment abstracts the card payment gateway behind Provider.
package payment

import (
	"context"
)

// Status is the gateway-neutral state of a payment intent
type Status string

const (
	StatusRequiresAction Status = "requires_action"
	StatusProcessing     Status = "processing"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	StatusCanceled       Status = "canceled"
)

// Metadata keys correlating an intent with an enrollment
const (
	MetaUserID   = "user_id"
	MetaCourseID = "course_id"
)

// Intent is a payment attempt as reported by the gateway
type Intent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret,omitempty"`
	AmountCents  int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       Status            `json:"status"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Succeeded reports whether the money was collected
func (i *Intent) Succeeded() bool { return i.Status == StatusSucceeded }

// Failed reports whether the attempt is over without payment
func (i *Intent) Failed() bool {
	return i.Status == StatusFailed || i.Status == StatusCanceled
}

// Provider creates and inspects payment intents
type Provider interface {
	Name() string
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*Intent, error)
}
