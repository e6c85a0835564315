// Package idnax contains IDNA extensions.
package idnax

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/idna"
)

// ErrInvalidHostName indicates that a host name is not syntactically valid.
var ErrInvalidHostName = errors.New("invalid host name")

// hostNameProfile is like [idna.Lookup] but also enforces the
// RFC 1035 length limits and rejects empty labels.
var hostNameProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.VerifyDNSLength(true),
)

// ValidateHostName checks whether name is usable as the server name
// of a TLS handshake and returns its canonical ASCII form. We accept
// IP address literals and DNS names, possibly internationalized and
// possibly terminated by the root label. We perform no DNS lookup.
//
// On failure, the returned error wraps [ErrInvalidHostName].
func ValidateHostName(name string) (string, error) {
	if ip := net.ParseIP(name); ip != nil {
		return ip.String(), nil
	}
	ascii, err := hostNameProfile.ToASCII(strings.TrimSuffix(name, "."))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrInvalidHostName, name, err)
	}
	if strings.HasSuffix(ascii, ".") {
		return "", fmt.Errorf("%w: %q: empty label", ErrInvalidHostName, name)
	}
	// a numeric top-level label would make the name look like an IP address
	labels := strings.Split(ascii, ".")
	if isAllDigits(labels[len(labels)-1]) {
		return "", fmt.Errorf("%w: %q: numeric top-level label", ErrInvalidHostName, name)
	}
	return strings.ToLower(ascii), nil
}

func isAllDigits(label string) bool {
	for _, c := range label {
		if c < '0' || c > '9' {
			return false
		}
	}
	return label != ""
}
