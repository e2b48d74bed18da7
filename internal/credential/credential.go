// Package credential abstracts login secret verification so the plaintext
// placeholder carried over from the legacy system can be swapped for a real
// hashing scheme without touching the login contract.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Verifier encodes a secret for storage and verifies a presented secret
// against the stored form.
type Verifier interface {
	// Hash returns the storable form of a secret.
	Hash(secret string) (string, error)
	// Verify reports whether presented matches the stored form.
	Verify(presented, stored string) bool
}

// ByName selects a verifier by its configured scheme name. Unknown names
// fall back to the plaintext placeholder.
func ByName(scheme string) Verifier {
	if scheme == "argon2" {
		return Argon2{}
	}
	return Plaintext{}
}

// Plaintext stores secrets as-is. It mirrors the legacy system's behavior
// and exists so historical records keep validating; new deployments should
// wire Argon2 instead.
type Plaintext struct{}

func (Plaintext) Hash(secret string) (string, error) { return secret, nil }

func (Plaintext) Verify(presented, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}

// Argon2id parameters (tuned for interactive login).
const (
	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
	argonSaltLen        = 16

	argonPrefix = "argon2id$"
)

// Argon2 stores secrets as salted Argon2id hashes encoded as
// "argon2id$<b64 salt>$<b64 hash>".
type Argon2 struct{}

func (Argon2) Hash(secret string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("credential: salt: %w", err)
	}
	key := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return argonPrefix +
		base64.RawStdEncoding.EncodeToString(salt) + "$" +
		base64.RawStdEncoding.EncodeToString(key), nil
}

func (Argon2) Verify(presented, stored string) bool {
	rest, ok := strings.CutPrefix(stored, argonPrefix)
	if !ok {
		return false
	}
	parts := strings.SplitN(rest, "$", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(presented), salt, argonTime, argonMemory, argonThreads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
