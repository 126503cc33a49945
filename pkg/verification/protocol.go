// Package verification implements the verbal admin-passphrase protocol that
// gates discussion of sensitive topics on a call, and the credential store
// holding each agent's passphrase digest.
//
// The digest is a deterministic HMAC-SHA256 of the passphrase under a
// site-wide key, and comparisons are constant time, so neither a precomputed
// digest mismatch nor a timing side-channel can leak the stored credential.
package verification

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/linedesk/callcore/pkg/contracts"
)

// MaxAttempts is the number of passphrase attempts allowed per session
// before the session is permanently locked.
const MaxAttempts = 3

// ErrLocked is returned once a session has exhausted its attempts. The
// rejected call records no further attempt.
var ErrLocked = errors.New("admin verification locked for session")

// Digester computes and compares passphrase digests under a site key.
type Digester struct {
	key []byte
}

// NewDigester derives the MAC key from the site secret.
func NewDigester(siteSecret []byte) (*Digester, error) {
	if len(siteSecret) == 0 {
		return nil, errors.New("verification site secret must not be empty")
	}
	key, err := DeriveKey(siteSecret, "callcore/verification/mac")
	if err != nil {
		return nil, err
	}
	return &Digester{key: key}, nil
}

// Digest returns the hex-encoded HMAC-SHA256 of the passphrase.
func (d *Digester) Digest(passphrase string) string {
	mac := hmac.New(sha256.New, d.key)
	mac.Write([]byte(passphrase))
	return hex.EncodeToString(mac.Sum(nil))
}

// Compare digests the spoken passphrase and compares it to the stored
// digest in constant time.
func (d *Digester) Compare(spokenPassphrase, storedDigest string) bool {
	stored, err := hex.DecodeString(storedDigest)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, d.key)
	mac.Write([]byte(spokenPassphrase))
	return hmac.Equal(mac.Sum(nil), stored)
}

// DeriveKey derives a 32-byte subkey from the site secret for the given
// purpose label.
func DeriveKey(siteSecret []byte, purpose string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, siteSecret, nil, []byte(purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", purpose, err)
	}
	return key, nil
}

// Verify runs one verification attempt against the session. The caller must
// hold the session's lock: the attempt count check and append are only
// race-free when serialized with every other operation on the session.
//
// On the third consecutive failure the session is locked and the result
// carries EscalateToManager; any later call returns ErrLocked without
// recording an attempt. A successful match sets VerificationPassed, which
// stays true for the rest of the session.
func Verify(sess *contracts.CallSession, agentID, spokenPassphrase, storedDigest string, d *Digester, now time.Time) (contracts.VerificationResult, error) {
	if sess.VerificationLocked {
		return contracts.VerificationResult{
			RemainingAttempts: 0,
			EscalateToManager: true,
			Message:           "Admin verification locked. Manager escalation already in progress.",
		}, ErrLocked
	}

	matched := d.Compare(spokenPassphrase, storedDigest)
	attempt := len(sess.VerificationAttempts) + 1
	sess.VerificationAttempts = append(sess.VerificationAttempts, contracts.VerificationAttempt{
		Attempt:   attempt,
		AgentID:   agentID,
		Matched:   matched,
		Timestamp: now,
	})

	if matched {
		sess.VerificationPassed = true
		return contracts.VerificationResult{
			Verified:          true,
			RemainingAttempts: MaxAttempts - attempt,
			Message:           "Admin identity verified. Proceeding with sensitive data discussion.",
		}, nil
	}

	if attempt >= MaxAttempts {
		sess.VerificationLocked = true
		return contracts.VerificationResult{
			RemainingAttempts: 0,
			EscalateToManager: true,
			Message:           "Admin verification failed after 3 attempts. Escalating to manager.",
		}, nil
	}

	return contracts.VerificationResult{
		RemainingAttempts: MaxAttempts - attempt,
		Message:           "Admin passphrase incorrect. Please try again.",
	}, nil
}
