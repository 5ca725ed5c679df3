package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sahilchouksey/course-market-api/utils/apperr"
)

// SandboxProvider keeps intents in memory. It serves local development when
// no Stripe key is configured, and tests drive it with Succeed and Fail.
type SandboxProvider struct {
	mu          sync.Mutex
	intents     map[string]*Intent
	autoConfirm bool
}

// NewSandboxProvider creates a sandbox; with autoConfirm every new intent
// has already succeeded
func NewSandboxProvider(autoConfirm bool) *SandboxProvider {
	return &SandboxProvider{intents: map[string]*Intent{}, autoConfirm: autoConfirm}
}

func (p *SandboxProvider) Name() string { return "sandbox" }

func (p *SandboxProvider) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error) {
	if amountCents <= 0 {
		return nil, apperr.Validation("payment amount must be positive")
	}
	id := "pi_sandbox_" + uuid.NewString()
	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.NewString(),
		AmountCents:  amountCents,
		Currency:     currency,
		Status:       StatusRequiresAction,
		Metadata:     copyMetadata(metadata),
	}
	if p.autoConfirm {
		intent.Status = StatusSucceeded
	}

	p.mu.Lock()
	p.intents[id] = intent
	p.mu.Unlock()
	return cloneIntent(intent), nil
}

func (p *SandboxProvider) RetrievePaymentIntent(ctx context.Context, id string) (*Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	intent, ok := p.intents[id]
	if !ok {
		return nil, apperr.NotFound("payment intent")
	}
	return cloneIntent(intent), nil
}

// Succeed marks an intent as paid
func (p *SandboxProvider) Succeed(id string) error { return p.setStatus(id, StatusSucceeded) }

// Fail marks an intent as declined
func (p *SandboxProvider) Fail(id string) error { return p.setStatus(id, StatusFailed) }

func (p *SandboxProvider) setStatus(id string, status Status) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	intent, ok := p.intents[id]
	if !ok {
		return apperr.NotFound("payment intent")
	}
	intent.Status = status
	return nil
}

func cloneIntent(in *Intent) *Intent {
	out := *in
	out.Metadata = copyMetadata(in.Metadata)
	return &out
}

func copyMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
