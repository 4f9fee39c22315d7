// Package auth checks usernames and access keys against the USERS and ACCESS_KEYS configuration.
//
// USERS is a JSON array of usernames and ACCESS_KEYS a parallel JSON array holding the hex SHA-256 digest of each
// user's access key. The configuration is read on every call so that changes apply without a restart.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"github.com/myrjola/tutorai/internal/audit"
	"github.com/myrjola/tutorai/internal/errors"
	"github.com/myrjola/tutorai/internal/metrics"
	"log/slog"
	"slices"
	"strings"
)

const (
	UsersEnv      = "USERS"
	AccessKeysEnv = "ACCESS_KEYS"
)

// Recorder receives one access event per authentication attempt.
type Recorder interface {
	Access(ctx context.Context, kind audit.EventKind, details string, identity string, md audit.Metadata)
}

type Authenticator struct {
	lookupEnv func(string) (string, bool)
	recorder  Recorder
}

// NewAuthenticator creates an Authenticator. lookupEnv has the signature of [os.LookupEnv].
func NewAuthenticator(lookupEnv func(string) (string, bool), recorder Recorder) *Authenticator {
	return &Authenticator{lookupEnv: lookupEnv, recorder: recorder}
}

// HashSecret returns the lowercase hex SHA-256 digest of secret, the format stored in ACCESS_KEYS.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Configured reports whether USERS is present in the environment.
func (a *Authenticator) Configured() bool {
	_, ok := a.lookupEnv(UsersEnv)
	return ok
}

// Authenticate reports whether secret is the access key of username. Malformed configuration fails closed.
func (a *Authenticator) Authenticate(ctx context.Context, username, secret string, md audit.Metadata) bool {
	kind, details := a.check(username, secret)
	metrics.AuthAttemptsTotal.WithLabelValues(string(kind)).Inc()
	a.recorder.Access(ctx, kind, details, username, md)
	return kind == audit.AuthSuccess
}

func (a *Authenticator) check(username, secret string) (audit.EventKind, string) {
	users, keys, err := a.credentials()
	if err != nil {
		return audit.AuthError, fmt.Sprintf("Authentication error: %s", err.Error())
	}
	index := slices.Index(users, username)
	if index < 0 {
		return audit.AuthFailed, "Username not found: " + username
	}
	if index >= len(keys) || strings.TrimSpace(keys[index]) == "" {
		return audit.AuthFailed, "No access key found for user: " + username
	}
	stored := strings.ToLower(strings.TrimSpace(keys[index]))
	if subtle.ConstantTimeCompare([]byte(HashSecret(secret)), []byte(stored)) != 1 {
		return audit.AuthFailed, "Invalid access key for user: " + username
	}
	return audit.AuthSuccess, "User authenticated: " + username
}

func (a *Authenticator) credentials() ([]string, []string, error) {
	users, err := a.list(UsersEnv)
	if err != nil {
		return nil, nil, err
	}
	keys, err := a.list(AccessKeysEnv)
	if err != nil {
		return nil, nil, err
	}
	return users, keys, nil
}

func (a *Authenticator) list(name string) ([]string, error) {
	raw, ok := a.lookupEnv(name)
	if !ok || strings.TrimSpace(raw) == "" {
		raw = "[]"
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, errors.Wrap(err, "parse "+name, slog.String("env", name))
	}
	return list, nil
}
