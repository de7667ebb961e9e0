package auth

import (
	"os"
	"time"
)

const (
	// AccessKeyEnv is the environment variable holding an access key
	AccessKeyEnv = "IMGFETCH_ACCESS_KEY"

	environmentAccountName = "environment"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only and always reports a single account.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets the access key from the environment
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	if name != "" && name != environmentAccountName {
		return nil, ErrCredentialsNotFound
	}

	accessKey := os.Getenv(AccessKeyEnv)
	if accessKey == "" {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Name:         environmentAccountName,
		AccessKey:    accessKey,
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if the environment variable is set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if an environment access key is set
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(AccessKeyEnv) != ""
}
