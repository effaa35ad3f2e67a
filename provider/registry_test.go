package provider

import (
	"testing"

	"github.com/mstgnz/cardgate/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderRegistry_Register(t *testing.T) {
	registry := NewProviderRegistry()

	mockFactory := func() PaymentProvider { return &mockProvider{} }
	registry.Register("Test-Provider", mockFactory)

	factory, err := registry.Get("test-provider")
	assert.NoError(t, err)
	assert.NotNil(t, factory)

	p, err := registry.CreateProvider("TEST-PROVIDER")
	require.NoError(t, err)
	assert.IsType(t, &mockProvider{}, p)
}

func TestProviderRegistry_GetProviderNames(t *testing.T) {
	registry := NewProviderRegistry()

	assert.Empty(t, registry.GetProviderNames())

	mockFactory := func() PaymentProvider { return nil }
	registry.Register("stripe", mockFactory)
	registry.Register("sandbox", mockFactory)

	assert.Equal(t, []string{"sandbox", "stripe"}, registry.GetProviderNames())
}

func TestProviderRegistry_Get_NotFound(t *testing.T) {
	registry := NewProviderRegistry()

	factory, err := registry.Get("non-existent")
	require.Error(t, err)
	assert.Nil(t, factory)
	assert.Contains(t, err.Error(), "is not registered")
	assert.Equal(t, 400, apperror.StatusCode(apperror.Classify(err)))
}

func TestDefaultRegistry(t *testing.T) {
	mockFactory := func() PaymentProvider { return nil }

	Register("default-test", mockFactory)

	factory, err := Get("default-test")
	assert.NoError(t, err)
	assert.NotNil(t, factory)

	assert.Contains(t, GetProviderNames(), "default-test")
}
