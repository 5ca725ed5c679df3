package app

import (
	"errors"

	"github.com/sahilchouksey/course-market-api/config"
	"github.com/sahilchouksey/course-market-api/services/payment"
)

// ErrSandboxInProduction stops a production process from settling paid
// enrollments without a real payment processor
var ErrSandboxInProduction = errors.New("STRIPE_SECRET_KEY must be set when GO_ENV=production")

// newPaymentProvider picks Stripe when a key is configured and the in-process
// sandbox otherwise. Production refuses the sandbox.
func newPaymentProvider(env *config.EnvironmentVariable) (payment.Provider, error) {
	if env.STRIPE_SECRET_KEY != "" {
		return payment.NewStripeProvider(env.STRIPE_SECRET_KEY), nil
	}
	if env.IsProduction() {
		return nil, ErrSandboxInProduction
	}
	return payment.NewSandboxProvider(env.PAYMENT_SANDBOX_AUTO_CONFIRM), nil
}
