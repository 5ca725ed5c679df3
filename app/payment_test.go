package app

import (
	"context"
	"testing"

	"github.com/sahilchouksey/course-market-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentProviderSelection(t *testing.T) {
	t.Run("stripe when a key is set", func(t *testing.T) {
		provider, err := newPaymentProvider(&config.EnvironmentVariable{GO_ENV: "production", STRIPE_SECRET_KEY: "sk_test_123"})
		require.NoError(t, err)
		assert.Equal(t, "stripe", provider.Name())
	})

	t.Run("sandbox refused in production", func(t *testing.T) {
		provider, err := newPaymentProvider(&config.EnvironmentVariable{GO_ENV: "production", PAYMENT_SANDBOX_AUTO_CONFIRM: true})
		assert.ErrorIs(t, err, ErrSandboxInProduction)
		assert.Nil(t, provider)
	})

	t.Run("sandbox in development", func(t *testing.T) {
		provider, err := newPaymentProvider(&config.EnvironmentVariable{GO_ENV: "development", PAYMENT_SANDBOX_AUTO_CONFIRM: false})
		require.NoError(t, err)
		assert.Equal(t, "sandbox", provider.Name())

		intent, err := provider.CreatePaymentIntent(context.Background(), 1999, "usd", nil)
		require.NoError(t, err)
		assert.False(t, intent.Succeeded())
	})
}

func TestSandboxAutoConfirmDefault(t *testing.T) {
	t.Setenv("PAYMENT_SANDBOX_AUTO_CONFIRM", "")

	t.Setenv("GO_ENV", "production")
	env, err := config.Get()
	require.NoError(t, err)
	assert.False(t, env.PAYMENT_SANDBOX_AUTO_CONFIRM)

	t.Setenv("GO_ENV", "development")
	env, err = config.Get()
	require.NoError(t, err)
	assert.True(t, env.PAYMENT_SANDBOX_AUTO_CONFIRM)
}
