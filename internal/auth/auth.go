// Package auth checks API bearer tokens, either against a plain configured
// token or against an Argon2id hash of it.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Mode selects how tokens are checked.
type Mode string

// Supported modes.
const (
	ModeDisabled Mode = "disabled"
	ModeToken    Mode = "token"
	ModeHash     Mode = "hash"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeDisabled, ModeToken, ModeHash}

// Argon2id parameters (OWASP recommended minimum).
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// ErrInvalidHash is returned for a hash that is not an Argon2id PHC string.
var ErrInvalidHash = errors.New("auth: invalid argon2id hash")

// Hash returns an Argon2id PHC string for token:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>.
func Hash(token string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(token), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// Verify reports whether token matches hash.
func Verify(token, hash string) (bool, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, fmt.Errorf("%w: version %q", ErrInvalidHash, parts[2])
	}
	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("%w: params: %v", ErrInvalidHash, err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: salt: %v", ErrInvalidHash, err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false, fmt.Errorf("%w: key", ErrInvalidHash)
	}

	got := argon2.IDKey([]byte(token), salt, time, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// Checker validates presented tokens for one mode.
type Checker struct {
	mode  Mode
	token string
	hash  string
}

// NewChecker builds a Checker. token is used in ModeToken, hash in ModeHash.
func NewChecker(mode Mode, token, hash string) (*Checker, error) {
	switch mode {
	case ModeDisabled, "":
		return &Checker{mode: ModeDisabled}, nil
	case ModeToken:
		if token == "" {
			return nil, errors.New("auth: token mode requires a token")
		}
	case ModeHash:
		if _, err := Verify("", hash); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("auth: unknown mode %q", mode)
	}
	return &Checker{mode: mode, token: token, hash: hash}, nil
}

// Enabled reports whether requests must present a token.
func (c *Checker) Enabled() bool { return c.mode != ModeDisabled }

// Check reports whether presented is accepted.
func (c *Checker) Check(presented string) bool {
	switch c.mode {
	case ModeDisabled:
		return true
	case ModeToken:
		return presented != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(c.token)) == 1
	case ModeHash:
		if presented == "" {
			return false
		}
		ok, err := Verify(presented, c.hash)
		return err == nil && ok
	}
	return false
}

// BearerToken extracts the token of an "Authorization: Bearer <token>"
// header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
