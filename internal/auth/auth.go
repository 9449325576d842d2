// Package auth decides whether a login attempt presents the password whose
// digest is on record. Plaintext passwords are hashed and compared in
// memory and never stored or logged.
package auth

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"os"
)

// Decision is the outcome of a credential check.
type Decision int

const (
	Rejected Decision = iota
	Accepted
)

func (d Decision) String() string {
	if d == Accepted {
		return "accepted"
	}
	return "rejected"
}

// Digest returns the lowercase hex SHA-512 digest of the UTF-8 bytes of
// password.
func Digest(password string) string {
	sum := sha512.Sum512([]byte(password))
	return hex.EncodeToString(sum[:])
}

// dummyDigest is compared against when the username is unknown so that the
// work done does not depend on whether the user exists.
var dummyDigest = Digest("")

// Validator checks credentials against a fixed table of username to
// digest. It is read-only after construction and safe for concurrent use.
type Validator struct {
	users map[string]string
}

// NewValidator returns a Validator over a copy of users. Digests are
// expected in lowercase hex, as produced by Digest.
func NewValidator(users map[string]string) *Validator {
	v := &Validator{users: make(map[string]string, len(users))}
	for u, d := range users {
		v.users[u] = d
	}
	return v
}

// Validate reports whether password matches the stored digest for
// username. An unknown username is Rejected. There is no error path: a
// malformed stored digest simply never matches.
func (v *Validator) Validate(username, password string) Decision {
	want, known := v.users[username]
	if !known {
		want = dummyDigest
	}
	got := Digest(password)
	match := subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
	if known && match {
		return Accepted
	}
	return Rejected
}

// Authenticator adapts v to the FTP server's login hook. rootFor returns
// the directory served to an accepted user. Rejections are logged with the
// user and remote host only.
func (v *Validator) Authenticator(rootFor func(user string) string, log *slog.Logger) func(user, pass, host string) (string, bool, error) {
	if log == nil {
		log = slog.Default()
	}
	return func(user, pass, host string) (string, bool, error) {
		if v.Validate(user, pass) != Accepted {
			log.Warn("login_rejected", "user", user, "host", host)
			return "", false, os.ErrPermission
		}
		log.Info("login_accepted", "user", user, "host", host)
		return rootFor(user), false, nil
	}
}
