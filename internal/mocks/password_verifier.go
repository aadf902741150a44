package mocks

import "github.com/phrazzld/taskflow-api/internal/service/auth"

// MockPasswordVerifier implements auth.PasswordVerifier for testing
type MockPasswordVerifier struct {
	// ShouldSucceed determines whether Compare succeeds when CompareFn is unset.
	ShouldSucceed bool

	CompareFn func(hashedPassword, password string) error

	// CompareCalls and BurnCalls count invocations.
	CompareCalls int
	BurnCalls    int
}

var _ auth.PasswordVerifier = (*MockPasswordVerifier)(nil)

func (m *MockPasswordVerifier) Compare(hashedPassword, password string) error {
	m.CompareCalls++
	if m.CompareFn != nil {
		return m.CompareFn(hashedPassword, password)
	}
	if m.ShouldSucceed {
		return nil
	}
	return auth.ErrPasswordMismatch
}

func (m *MockPasswordVerifier) Burn(string) error {
	m.BurnCalls++
	return auth.ErrPasswordMismatch
}
