package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000

	keyFileVersion = 2
)

// PassphraseEnv overrides the generated passphrase of the encrypted store
const PassphraseEnv = "IMGFETCH_PASSPHRASE"

var errUnsupportedKeyFile = errors.New("unsupported key file version")

// EncryptedFileStore keeps access-key records in one AES-GCM sealed file.
// The sealing key is derived from a passphrase with PBKDF2.
type EncryptedFileStore struct {
	path       string
	passphrase string
	mu         sync.RWMutex
}

// keyFile is the on-disk envelope; Sealed holds the JSON record map
type keyFile struct {
	Version  int       `json:"version"`
	Salt     string    `json:"salt"`
	Sealed   string    `json:"sealed"`
	Records  int       `json:"records"`
	Modified time.Time `json:"modified"`
}

// keyRecords maps record name to access-key record
type keyRecords map[string]Account

// NewEncryptedFileStore opens the key file at path, creating its directory
// and passphrase on first use
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	passphrase, err := loadPassphrase(filepath.Join(filepath.Dir(path), ".passphrase"))
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}

	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

// Store adds or replaces a record. A replaced record keeps its creation time.
func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.Name == "" {
		return ErrInvalidCredentials
	}

	return e.update(func(records keyRecords) error {
		record := *account
		if prev, ok := records[record.Name]; ok && record.CreatedAt.IsZero() {
			record.CreatedAt = prev.CreatedAt
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now()
		}
		records[record.Name] = record
		return nil
	})
}

// Retrieve returns the record stored under name
func (e *EncryptedFileStore) Retrieve(name string) (*Account, error) {
	if name == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	records, err := e.read()
	if err != nil {
		return nil, err
	}
	record, ok := records[name]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &record, nil
}

// List returns every record ordered by name
func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	records, err := e.read()
	if err != nil {
		return nil, err
	}

	accounts := make([]*Account, 0, len(records))
	for _, record := range records {
		record := record
		accounts = append(accounts, &record)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

// Delete removes a record. The file goes away with its last record.
func (e *EncryptedFileStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidCredentials
	}

	return e.update(func(records keyRecords) error {
		if _, ok := records[name]; !ok {
			return ErrCredentialsNotFound
		}
		delete(records, name)
		return nil
	})
}

// Exists reports whether a record is stored under name
func (e *EncryptedFileStore) Exists(name string) bool {
	account, err := e.Retrieve(name)
	return err == nil && account != nil
}

// update applies fn to the current records and persists the result
func (e *EncryptedFileStore) update(fn func(keyRecords) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.read()
	if err != nil {
		return err
	}
	if err := fn(records); err != nil {
		return err
	}
	if len(records) == 0 {
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return e.write(records)
}

// read opens the key file. A missing file is an empty record set.
func (e *EncryptedFileStore) read() (keyRecords, error) {
	content, err := os.ReadFile(e.path)
	if os.IsNotExist(err) {
		return keyRecords{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	var file keyFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse key file: %w", err)
	}
	if file.Version != keyFileVersion {
		return nil, fmt.Errorf("%w: %d", errUnsupportedKeyFile, file.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(file.Sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	plain, err := open(sealed, e.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key file: %w", err)
	}

	records := keyRecords{}
	if err := json.Unmarshal(plain, &records); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	return records, nil
}

// write seals records under a fresh salt and replaces the file atomically
func (e *EncryptedFileStore) write(records keyRecords) error {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	plain, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	sealed, err := seal(plain, e.deriveKey(salt))
	if err != nil {
		return fmt.Errorf("failed to encrypt records: %w", err)
	}

	content, err := json.MarshalIndent(keyFile{
		Version:  keyFileVersion,
		Salt:     base64.StdEncoding.EncodeToString(salt),
		Sealed:   base64.StdEncoding.EncodeToString(sealed),
		Records:  len(records),
		Modified: time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal key file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(e.path), filepath.Base(e.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, e.path)
}

func (e *EncryptedFileStore) deriveKey(salt []byte) []byte {
	return pbkdf2.Key([]byte(e.passphrase), salt, iterations, keySize, sha256.New)
}

// loadPassphrase prefers PassphraseEnv, then the passphrase file, generating
// the file when neither exists
func loadPassphrase(file string) (string, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return pass, nil
	}

	if content, err := os.ReadFile(file); err == nil && len(content) > 0 {
		return string(content), nil
	}

	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := base64.URLEncoding.EncodeToString(b)

	if err := os.WriteFile(file, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// seal prefixes the ciphertext with its nonce
func seal(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func open(sealed, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
