// Package auth verifies author credentials and tracks browser sessions for
// the HTTP surface. The credential file is plain text like everything else:
// one "username hash" pair per line.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters for credential hashes.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

const hashPrefix = "argon2id"

// Credential file errors.
var (
	ErrBadCredentialLine = errors.New("malformed credential line")
	ErrBadHash           = errors.New("malformed credential hash")
)

// Credentials holds the username to hash mapping loaded from file.
type Credentials struct {
	users map[string]string
}

// LoadCredentials reads a credential file. Each non-blank line is
// "username hash"; the hash format is produced by [HashPassword].
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	users := make(map[string]string)

	for lineNo, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		username, hash, ok := strings.Cut(line, " ")
		if !ok || username == "" || hash == "" {
			return nil, fmt.Errorf("%w: line %d", ErrBadCredentialLine, lineNo+1)
		}

		users[username] = hash
	}

	return &Credentials{users: users}, nil
}

// Verify reports whether the password matches the stored hash for username.
// Unknown usernames and malformed hashes verify as false.
func (c *Credentials) Verify(username, password string) bool {
	hash, ok := c.users[username]
	if !ok {
		return false
	}

	match, err := verifyHash(hash, password)
	if err != nil {
		return false
	}

	return match
}

// HashPassword derives an argon2id hash with a fresh random salt, in the
// format stored in the credential file: "argon2id$<salt>$<key>" with
// unpadded standard base64.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)

	_, err := rand.Read(salt)
	if err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return hashPrefix + "$" +
		base64.RawStdEncoding.EncodeToString(salt) + "$" +
		base64.RawStdEncoding.EncodeToString(key), nil
}

func verifyHash(hash, password string) (bool, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 3 || parts[0] != hashPrefix {
		return false, ErrBadHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBadHash, err)
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrBadHash, err)
	}

	derived := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return subtle.ConstantTimeCompare(derived, key) == 1, nil
}
