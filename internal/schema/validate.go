package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// DigestLen is the length of a hex-encoded SHA-512 digest.
const DigestLen = 128

// validators maps known keys to their value checks. Keys without an entry
// accept any string.
var validators = map[string]func(string) error{
	KeyUsername: func(v string) error {
		if v == "" {
			return fmt.Errorf("must not be empty")
		}
		if strings.ContainsAny(v, " \t\r\n") {
			return fmt.Errorf("must not contain whitespace")
		}
		return nil
	},
	KeyPort: func(v string) error {
		_, err := ParsePort(v)
		return err
	},
	KeyPassivePorts: func(v string) error {
		if v == "" {
			return nil
		}
		_, _, err := ParsePortRange(v)
		return err
	},
	KeyPassword: func(v string) error {
		if !IsDigest(v) {
			return fmt.Errorf("must be a %d character lowercase hex SHA-512 digest", DigestLen)
		}
		return nil
	},
	KeyPID: func(v string) error {
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("must be a non-negative decimal integer")
		}
		return nil
	},
	KeyRunning: func(v string) error {
		if v != "0" && v != "1" {
			return fmt.Errorf(`must be "0" or "1"`)
		}
		return nil
	},
}

// ValidateValue checks value against the rules for key.
func ValidateValue(key, value string) error {
	check, ok := validators[key]
	if !ok {
		return nil
	}
	if err := check(value); err != nil {
		if namespaces[key] == Secrets {
			return fmt.Errorf("%s: %v: %w", key, err, ErrInvalidValue)
		}
		return fmt.Errorf("%s: %v (got %q): %w", key, err, value, ErrInvalidValue)
	}
	return nil
}

// IsDigest reports whether s looks like a lowercase hex SHA-512 digest.
func IsDigest(s string) bool {
	if len(s) != DigestLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// ParsePort parses a TCP port number.
func ParsePort(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("must be a port between 1 and 65535")
	}
	return n, nil
}

// ParsePortRange parses "min-max".
func ParsePortRange(v string) (int, int, error) {
	lo, hi, ok := strings.Cut(v, "-")
	if !ok {
		return 0, 0, fmt.Errorf(`must be a range "min-max"`)
	}
	first, err := ParsePort(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, err
	}
	last, err := ParsePort(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, err
	}
	if first > last {
		return 0, 0, fmt.Errorf("range start %d is above range end %d", first, last)
	}
	return first, last, nil
}
