package verification

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoCredential indicates no stored passphrase digest for the agent.
var ErrNoCredential = errors.New("no stored credential for agent")

// CredentialStore resolves the stored passphrase digest for an agent.
type CredentialStore interface {
	DigestFor(ctx context.Context, agentID string) (string, error)
	Put(ctx context.Context, agentID, digest string) error
}

// MemoryStore is an in-memory CredentialStore for tests and single-process
// deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	digests map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{digests: make(map[string]string)}
}

func (s *MemoryStore) DigestFor(_ context.Context, agentID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	digest, ok := s.digests[agentID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoCredential, agentID)
	}
	return digest, nil
}

func (s *MemoryStore) Put(_ context.Context, agentID, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digests[agentID] = digest
	return nil
}

// SQLiteStore persists passphrase digests encrypted at rest with
// AES-256-GCM. The encryption key is derived from the same site secret as
// the digest MAC key, under a distinct purpose label.
type SQLiteStore struct {
	db     *sql.DB
	encKey []byte
}

// NewSQLiteStore derives the encryption key and ensures the schema exists.
func NewSQLiteStore(db *sql.DB, siteSecret []byte) (*SQLiteStore, error) {
	encKey, err := DeriveKey(siteSecret, "callcore/verification/enc")
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db, encKey: encKey}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS admin_credentials (
		agent_id   TEXT PRIMARY KEY,
		digest     TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteStore) DigestFor(ctx context.Context, agentID string) (string, error) {
	var sealed string
	err := s.db.QueryRowContext(ctx,
		`SELECT digest FROM admin_credentials WHERE agent_id = ?`, agentID,
	).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNoCredential, agentID)
	}
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	return s.open(sealed)
}

func (s *SQLiteStore) Put(ctx context.Context, agentID, digest string) error {
	sealed, err := s.seal(digest)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO admin_credentials (agent_id, digest, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET digest = excluded.digest, updated_at = excluded.updated_at`,
		agentID, sealed, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

func (s *SQLiteStore) seal(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *SQLiteStore) open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode credential: %w", err)
	}
	block, err := aes.NewCipher(s.encKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("credential ciphertext truncated")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt credential: %w", err)
	}
	return string(plaintext), nil
}
