package services

import (
	"errors"
	"sync"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"

	"armonia/pkg/logger"
)

const (
	keyringService = "armonia"
	keyAuthToken   = "auth_token"
	keyLicense     = "license_key"
)

// CredentialService holds the two process-wide credential slots (bearer
// token and license key) in the OS keyring. When no keyring backend is
// available the slots fall back to process memory, so login still works for
// the lifetime of the session.
type CredentialService struct {
	log *logger.Logger

	mu       sync.Mutex
	memory   map[string]string
	degraded bool
}

func NewCredentialService(log *logger.Logger) *CredentialService {
	if log == nil {
		log = logger.NewNop()
	}
	return &CredentialService{
		log:    log,
		memory: make(map[string]string),
	}
}

func (s *CredentialService) Token() string {
	return s.get(keyAuthToken)
}

func (s *CredentialService) LicenseKey() string {
	return s.get(keyLicense)
}

func (s *CredentialService) SetToken(token string) error {
	if token == "" {
		return errors.New("token is empty")
	}
	return s.set(keyAuthToken, token)
}

func (s *CredentialService) SetLicenseKey(key string) error {
	if key == "" {
		return errors.New("license key is empty")
	}
	return s.set(keyLicense, key)
}

// Clear removes both slots. Logout must always succeed locally, so missing
// entries are not errors.
func (s *CredentialService) Clear() error {
	s.mu.Lock()
	delete(s.memory, keyAuthToken)
	delete(s.memory, keyLicense)
	degraded := s.degraded
	s.mu.Unlock()

	if degraded {
		return nil
	}
	for _, key := range []string{keyAuthToken, keyLicense} {
		if err := keyring.Delete(keyringService, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *CredentialService) get(key string) string {
	s.mu.Lock()
	if s.degraded {
		value := s.memory[key]
		s.mu.Unlock()
		return value
	}
	s.mu.Unlock()

	value, err := keyring.Get(keyringService, key)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			s.fallBack(err)
			s.mu.Lock()
			value = s.memory[key]
			s.mu.Unlock()
			return value
		}
		return ""
	}
	return value
}

func (s *CredentialService) set(key, value string) error {
	s.mu.Lock()
	s.memory[key] = value
	degraded := s.degraded
	s.mu.Unlock()

	if degraded {
		return nil
	}
	if err := keyring.Set(keyringService, key, value); err != nil {
		s.fallBack(err)
	}
	return nil
}

func (s *CredentialService) fallBack(err error) {
	s.mu.Lock()
	already := s.degraded
	s.degraded = true
	s.mu.Unlock()
	if !already {
		s.log.Warn("keyring unavailable, keeping credentials in memory", zap.Error(err))
	}
}
