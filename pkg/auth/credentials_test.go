package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// memoryStore is an in-memory CredentialStore with failure injection
type memoryStore struct {
	mu       sync.Mutex
	accounts map[string]Account
	storeErr error
	listErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{accounts: map[string]Account{}}
}

func (m *memoryStore) Store(account *Account) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	if account == nil || account.Name == "" {
		return ErrInvalidCredentials
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Name] = *account
	return nil
}

func (m *memoryStore) Retrieve(name string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[name]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

func (m *memoryStore) List() ([]*Account, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var accounts []*Account
	for _, account := range m.accounts {
		account := account
		accounts = append(accounts, &account)
	}
	return accounts, nil
}

func (m *memoryStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[name]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, name)
	return nil
}

func (m *memoryStore) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.accounts[name]
	return ok
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

func newTestManager(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

func TestCredentialManager(t *testing.T) {
	mem := newMemoryStore()
	manager := newTestManager(mem)

	account := &Account{
		Name:      "work",
		AccessKey: "abcd_access_key_0123456789",
	}
	require.NoError(t, manager.Store(account))
	assert.False(t, account.LastModified.IsZero())
	assert.Equal(t, account.LastModified, account.CreatedAt)

	retrieved, err := manager.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, account.Name, retrieved.Name)
	assert.Equal(t, account.AccessKey, retrieved.AccessKey)

	accounts, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	sanitized := SanitizeAccount(account)
	assert.Equal(t, "abcd...6789", sanitized.AccessKey)
	assert.Equal(t, account.Name, sanitized.Name)
	assert.Nil(t, SanitizeAccount(nil))

	require.NoError(t, manager.Delete("work"))
	_, err = manager.Retrieve("work")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.Equal(t, 0, mem.count())

	err = manager.Delete("work")
	assert.Error(t, err)
}

func TestManagerStoreValidation(t *testing.T) {
	manager := newTestManager(newMemoryStore())

	assert.ErrorIs(t, manager.Store(nil), ErrInvalidCredentials)
	assert.Error(t, manager.Store(&Account{Name: "x"}))

	account := &Account{AccessKey: "key"}
	require.NoError(t, manager.Store(account))
	assert.Equal(t, DefaultAccountName, account.Name)
}

func TestManagerStoreFallsBack(t *testing.T) {
	broken := newMemoryStore()
	broken.storeErr = ErrStoreUnavailable
	working := newMemoryStore()
	manager := newTestManager(broken, working)

	require.NoError(t, manager.Store(&Account{Name: "a", AccessKey: "k"}))
	assert.Equal(t, 0, broken.count())
	assert.Equal(t, 1, working.count())

	all := newTestManager(broken)
	assert.ErrorIs(t, all.Store(&Account{Name: "a", AccessKey: "k"}), ErrStoreUnavailable)
}

func TestResolveAccessKey(t *testing.T) {
	t.Setenv(AccessKeyEnv, "")

	mock := newMemoryStore()
	manager := newTestManager(mock, NewEnvironmentStore())

	_, err := manager.ResolveAccessKey("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, mock.Store(&Account{Name: "zeta", AccessKey: "zeta-key"}))
	key, err := manager.ResolveAccessKey("")
	require.NoError(t, err)
	assert.Equal(t, "zeta-key", key, "first listed account when there is no default")

	require.NoError(t, mock.Store(&Account{Name: DefaultAccountName, AccessKey: "default-key"}))
	key, err = manager.ResolveAccessKey("")
	require.NoError(t, err)
	assert.Equal(t, "default-key", key)

	key, err = manager.ResolveAccessKey("zeta")
	require.NoError(t, err)
	assert.Equal(t, "zeta-key", key)

	t.Setenv(AccessKeyEnv, "env-key")
	key, err = manager.ResolveAccessKey("")
	require.NoError(t, err)
	assert.Equal(t, "env-key", key, "environment wins for the default lookup")

	_, err = manager.ResolveAccessKey("missing")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStore(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "creds.enc")
	t.Setenv(PassphraseEnv, "test_passphrase_123")

	store, err := NewEncryptedFileStore(tempFile)
	require.NoError(t, err)

	account := &Account{
		Name:      "encrypted",
		AccessKey: "plaintext_access_key_value",
	}
	require.NoError(t, store.Store(account))
	assert.True(t, store.Exists("encrypted"))

	retrieved, err := store.Retrieve("encrypted")
	require.NoError(t, err)
	assert.Equal(t, account.AccessKey, retrieved.AccessKey)

	fileContent, err := os.ReadFile(tempFile)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(fileContent, []byte("plaintext_access_key_value")), "file contains the plaintext key")

	info, err := os.Stat(tempFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// A second store with the same passphrase reads the same file
	other, err := NewEncryptedFileStore(tempFile)
	require.NoError(t, err)
	accounts, err := other.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	assert.False(t, accounts[0].CreatedAt.IsZero(), "store stamps the creation time")

	require.NoError(t, store.Delete("encrypted"))
	_, err = os.Stat(tempFile)
	assert.True(t, os.IsNotExist(err), "file is removed with the last account")
	assert.ErrorIs(t, store.Delete("encrypted"), ErrCredentialsNotFound)
	_, err = store.Retrieve("encrypted")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreRecords(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_records")
	path := filepath.Join(t.TempDir(), "credentials.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, store.Store(&Account{Name: "zeta", AccessKey: "zeta-key", CreatedAt: created}))
	require.NoError(t, store.Store(&Account{Name: "alpha", AccessKey: "alpha-key"}))

	used := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Store(&Account{Name: "zeta", AccessKey: "zeta-key", LastUsed: used}))

	accounts, err := store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alpha", accounts[0].Name)
	assert.Equal(t, "zeta", accounts[1].Name)
	assert.True(t, accounts[1].CreatedAt.Equal(created), "replacing a record keeps its creation time")
	assert.True(t, accounts[1].LastUsed.Equal(used))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var file keyFile
	require.NoError(t, json.Unmarshal(content, &file))
	assert.Equal(t, keyFileVersion, file.Version)
	assert.Equal(t, 2, file.Records)

	leftovers, err := filepath.Glob(path + ".*.tmp")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestEncryptedFileStoreRejectsUnknownVersion(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_version")
	path := filepath.Join(t.TempDir(), "credentials.enc")
	require.NoError(t, os.WriteFile(path, []byte(`{"salt":"c2FsdA==","encrypted":"AAAA"}`), 0600))

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = store.Retrieve("a")
	assert.ErrorIs(t, err, errUnsupportedKeyFile)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "creds.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(tempFile)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Name: "a", AccessKey: "k"}))

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(tempFile)
	require.NoError(t, err)
	_, err = other.Retrieve("a")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Name: "a", AccessKey: "k"}))

	content, err := os.ReadFile(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.NotEmpty(t, content)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(AccessKeyEnv, "env_access_key")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "env_access_key", account.AccessKey)
	assert.Equal(t, environmentAccountName, account.Name)

	_, err = store.Retrieve("someone-else")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	assert.True(t, store.Exists(""))
	accounts, err := store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	assert.ErrorIs(t, store.Store(&Account{}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("x"), ErrStoreUnavailable)

	t.Setenv(AccessKeyEnv, "")
	_, err = store.Retrieve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(&Account{Name: "ring", AccessKey: "ring-key", LastModified: time.Now()}))
	assert.True(t, store.Exists("ring"))

	account, err := store.Retrieve("ring")
	require.NoError(t, err)
	assert.Equal(t, "ring-key", account.AccessKey)

	require.NoError(t, store.Delete("ring"))
	assert.False(t, store.Exists("ring"))
	_, err = store.Retrieve("ring")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, store.Delete("ring"), ErrCredentialsNotFound)
	assert.ErrorIs(t, store.Store(&Account{}), ErrInvalidCredentials)
}

func TestRealManagerWithEncryptedStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_real_manager")
	t.Setenv(AccessKeyEnv, "")

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "credentials.enc"))
	require.NoError(t, err)

	manager := newTestManager(encryptedStore, NewEnvironmentStore())

	require.NoError(t, manager.Store(&Account{Name: "real", AccessKey: "real_access_key"}))

	accounts, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	retrieved, err := manager.Retrieve("real")
	require.NoError(t, err)
	assert.Equal(t, "real_access_key", retrieved.AccessKey)

	require.NoError(t, manager.DeleteAll())
	accounts, err = manager.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestManagerListSkipsFailingStore(t *testing.T) {
	broken := newMemoryStore()
	broken.listErr = fmt.Errorf("injected error")
	working := newMemoryStore()
	require.NoError(t, working.Store(&Account{Name: "b", AccessKey: "kb"}))
	require.NoError(t, working.Store(&Account{Name: "a", AccessKey: "ka"}))

	accounts, err := newTestManager(broken, working).List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "a", accounts[0].Name)
	assert.Equal(t, "b", accounts[1].Name)
}

func TestManagerStoreKeepsCreationTime(t *testing.T) {
	manager := newTestManager(newMemoryStore())
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, manager.Store(&Account{Name: "work", AccessKey: "old-key", CreatedAt: created}))
	replaced := &Account{Name: "work", AccessKey: "new-key"}
	require.NoError(t, manager.Store(replaced))

	stored, err := manager.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, "new-key", stored.AccessKey)
	assert.True(t, stored.CreatedAt.Equal(created))
	assert.True(t, stored.LastModified.After(created))
}

func TestResolveAccessKeyRecordsLastUse(t *testing.T) {
	t.Setenv(AccessKeyEnv, "")
	t.Setenv(PassphraseEnv, "test_passphrase_last_used")

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "credentials.enc"))
	require.NoError(t, err)
	manager := newTestManager(encryptedStore, NewEnvironmentStore())
	require.NoError(t, manager.Store(&Account{Name: "work", AccessKey: "work-key"}))

	before, err := encryptedStore.Retrieve("work")
	require.NoError(t, err)
	assert.True(t, before.LastUsed.IsZero())

	start := time.Now()
	key, err := manager.ResolveAccessKey("work")
	require.NoError(t, err)
	assert.Equal(t, "work-key", key)

	after, err := encryptedStore.Retrieve("work")
	require.NoError(t, err)
	assert.False(t, after.LastUsed.Before(start))
	assert.True(t, after.CreatedAt.Equal(before.CreatedAt))

	t.Setenv(AccessKeyEnv, "env-key")
	_, err = manager.ResolveAccessKey("")
	require.NoError(t, err, "environment keys are never written back")
}

func TestShowAccessKeyGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowAccessKeyGuide(&buf)
	assert.Contains(t, buf.String(), "https://unsplash.com/developers")
	assert.Contains(t, buf.String(), AccessKeyEnv)

	buf.Reset()
	ShowQuickGuide(&buf)
	assert.Contains(t, buf.String(), "Access Key")
}
