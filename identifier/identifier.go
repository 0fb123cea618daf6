package identifier

import (
	"context"
	"net"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Kind selects the shape rule applied to an identifier.
type Kind uint8

const (
	// KindDirectory accepts directory-style handles such as "jdoe-2".
	KindDirectory Kind = iota + 1
	// KindEmail accepts e-mail addresses whose domain receives mail.
	KindEmail
)

const (
	// DefaultMaxHandleLength is the prefix length considered for directory handles.
	DefaultMaxHandleLength = 64
	// DefaultDNSTimeout bounds a single MX lookup.
	DefaultDNSTimeout = 3 * time.Second

	minEmailLength = 8
	maxEmailLength = 60
)

var handlePattern = regexp.MustCompile(`^[a-z][a-z0-9_.\-]*$`)

// MXResolver looks up mail exchangers for a domain. *net.Resolver satisfies it.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Config tunes the validator.
type Config struct {
	MaxHandleLength int
	RequireMX       bool
	DNSTimeout      time.Duration
}

// Validator checks identifiers against the rule of a [Kind]. It holds no
// mutable state and is safe for concurrent use.
type Validator struct {
	cfg      Config
	resolver MXResolver
}

// NewValidator returns a Validator. A nil resolver falls back to
// net.DefaultResolver; zero limits fall back to the package defaults.
func NewValidator(cfg Config, resolver MXResolver) *Validator {
	if cfg.MaxHandleLength <= 0 {
		cfg.MaxHandleLength = DefaultMaxHandleLength
	}
	if cfg.DNSTimeout <= 0 {
		cfg.DNSTimeout = DefaultDNSTimeout
	}
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Validator{cfg: cfg, resolver: resolver}
}

// Normalize trims surrounding whitespace and lower-cases raw.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Validate normalizes raw and checks it against kind. On success it returns
// the normalized identifier that downstream lookups must use.
func (v *Validator) Validate(ctx context.Context, raw string, kind Kind) (string, error) {
	id := Normalize(raw)
	if id == "" {
		return "", &Error{Reason: ReasonNotProvided}
	}

	switch kind {
	case KindDirectory:
		return v.validateHandle(id)
	case KindEmail:
		return v.validateEmail(ctx, id)
	default:
		return "", ErrUnknownKind
	}
}

func (v *Validator) validateHandle(id string) (string, error) {
	if utf8.RuneCountInString(id) > v.cfg.MaxHandleLength {
		id = string([]rune(id)[:v.cfg.MaxHandleLength])
	}
	if !handlePattern.MatchString(id) {
		return "", &Error{Reason: ReasonBadStructure, Detail: "handle pattern"}
	}
	return id, nil
}

func (v *Validator) validateEmail(ctx context.Context, id string) (string, error) {
	n := utf8.RuneCountInString(id)
	if n < minEmailLength || n > maxEmailLength {
		return "", &Error{Reason: ReasonBadStructure, Detail: "email length"}
	}
	if SanitizeEmail(id) != id {
		return "", &Error{Reason: ReasonBadStructure, Detail: "illegal email characters"}
	}
	addr, err := mail.ParseAddress(id)
	if err != nil || addr.Name != "" || addr.Address != id {
		return "", &Error{Reason: ReasonBadStructure, Detail: "email syntax", Err: err}
	}

	if !v.cfg.RequireMX {
		return id, nil
	}

	domain := id[strings.LastIndexByte(id, '@')+1:]
	if ctx == nil {
		ctx = context.Background()
	}
	lookupCtx, cancel := context.WithTimeout(ctx, v.cfg.DNSTimeout)
	defer cancel()

	records, err := v.resolver.LookupMX(lookupCtx, domain)
	if err != nil {
		return "", &Error{Reason: ReasonDNSResolution, Detail: domain, Err: err}
	}
	if len(records) == 0 {
		return "", &Error{Reason: ReasonDNSResolution, Detail: domain}
	}
	return id, nil
}

// SanitizeEmail drops every character that may not appear in an e-mail
// address. Validation requires the result to equal the input.
func SanitizeEmail(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if emailChar(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func emailChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$%&'*+-=?^_`{|}~@.[]", c) >= 0
}
