package unit_tests

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"armonia/internal/services"
)

func TestCredentialService_RoundTrip(t *testing.T) {
	keyring.MockInit()
	svc := services.NewCredentialService(nil)

	require.NoError(t, svc.SetToken("tok-123"))
	require.NoError(t, svc.SetLicenseKey("lic-456"))

	assert.Equal(t, "tok-123", svc.Token())
	assert.Equal(t, "lic-456", svc.LicenseKey())
}

func TestCredentialService_UnsetSlotsAreEmpty(t *testing.T) {
	keyring.MockInit()
	svc := services.NewCredentialService(nil)

	assert.Empty(t, svc.Token())
	assert.Empty(t, svc.LicenseKey())
}

func TestCredentialService_RejectsEmptyValues(t *testing.T) {
	keyring.MockInit()
	svc := services.NewCredentialService(nil)

	assert.Error(t, svc.SetToken(""))
	assert.Error(t, svc.SetLicenseKey(""))
}

func TestCredentialService_Clear(t *testing.T) {
	keyring.MockInit()
	svc := services.NewCredentialService(nil)

	require.NoError(t, svc.SetToken("tok"))
	require.NoError(t, svc.SetLicenseKey("lic"))
	require.NoError(t, svc.Clear())

	assert.Empty(t, svc.Token())
	assert.Empty(t, svc.LicenseKey())
}

func TestCredentialService_ClearOnEmptyIsNoop(t *testing.T) {
	keyring.MockInit()
	svc := services.NewCredentialService(nil)

	assert.NoError(t, svc.Clear())
}

// A broken keyring backend degrades to process memory: login still works for
// the lifetime of the session.
func TestCredentialService_FallsBackToMemory(t *testing.T) {
	keyring.MockInitWithError(errors.New("no dbus session"))
	defer keyring.MockInit()
	svc := services.NewCredentialService(nil)

	require.NoError(t, svc.SetToken("tok"))
	require.NoError(t, svc.SetLicenseKey("lic"))

	assert.Equal(t, "tok", svc.Token())
	assert.Equal(t, "lic", svc.LicenseKey())

	require.NoError(t, svc.Clear())
	assert.Empty(t, svc.Token())
	assert.Empty(t, svc.LicenseKey())
}
