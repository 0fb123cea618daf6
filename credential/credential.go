package credential

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Format names a credential shape rule.
type Format uint8

const (
	// FormatNone accepts any credential; used where no secret is presented.
	FormatNone Format = iota + 1
	// FormatHexDigest requires exactly HexDigestLength hex characters.
	FormatHexDigest
	// FormatLegacyComplexity requires 7..8 characters from at least 3 classes.
	FormatLegacyComplexity
)

const (
	// HexDigestLength is the length of a hex-encoded 512-bit digest.
	HexDigestLength = 128

	legacyMinLength  = 7
	legacyMaxLength  = 8
	legacyMinClasses = 3
)

var (
	// ErrBadStructure is wrapped by every *Error a rule returns.
	ErrBadStructure = errors.New("credential bad structure")
	// ErrUnknownFormat is returned for a format with no registered rule.
	ErrUnknownFormat = errors.New("unknown credential format")
)

var hexDigestPattern = regexp.MustCompile(`^[0-9a-fA-F]{128}$`)

func (f Format) String() string {
	switch f {
	case FormatNone:
		return "none"
	case FormatHexDigest:
		return "hex_digest"
	case FormatLegacyComplexity:
		return "legacy_complexity"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// Error reports which rule rejected a credential. It never carries the
// credential itself.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return ErrBadStructure
}

// Rule validates a credential.
type Rule interface {
	Validate(credential string) error
}

// RuleFunc adapts a function to be used as a Rule.
type RuleFunc func(credential string) error

// Validate executes the underlying rule function.
func (f RuleFunc) Validate(credential string) error {
	return f(credential)
}

// Validator dispatches to the rule registered for a format.
type Validator struct {
	mu    sync.RWMutex
	rules map[Format]Rule
}

// NewValidator returns a Validator with the built-in formats registered.
func NewValidator() *Validator {
	return &Validator{
		rules: map[Format]Rule{
			FormatNone:             RuleFunc(func(string) error { return nil }),
			FormatHexDigest:        HexDigestRule(),
			FormatLegacyComplexity: LegacyComplexityRule(),
		},
	}
}

// Register installs or replaces the rule for format.
func (v *Validator) Register(format Format, rule Rule) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rules[format] = rule
}

// Registered reports whether a rule is installed for format.
func (v *Validator) Registered(format Format) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.rules[format]
	return ok
}

// Validate checks credential against the rule for format.
func (v *Validator) Validate(credential string, format Format) error {
	v.mu.RLock()
	rule, ok := v.rules[format]
	v.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	return rule.Validate(credential)
}

// HexDigestRule accepts exactly 128 hex digits of either case.
func HexDigestRule() Rule {
	return RuleFunc(func(credential string) error {
		if utf8.RuneCountInString(credential) != HexDigestLength || !hexDigestPattern.MatchString(credential) {
			return &Error{
				Code:    "hex_digest",
				Message: fmt.Sprintf("credential must be %d hex characters", HexDigestLength),
			}
		}
		return nil
	})
}

// LegacyComplexityRule accepts 7..8 character passwords that mix at least
// three of digits, lowercase, uppercase and other characters.
func LegacyComplexityRule() Rule {
	return RuleFunc(func(credential string) error {
		n := utf8.RuneCountInString(credential)
		if n < legacyMinLength || n > legacyMaxLength {
			return &Error{
				Code:    "length",
				Message: fmt.Sprintf("credential must be %d to %d characters", legacyMinLength, legacyMaxLength),
			}
		}

		var hasDigit, hasLower, hasUpper, hasOther bool
		for _, r := range credential {
			switch {
			case unicode.IsDigit(r):
				hasDigit = true
			case unicode.IsLower(r):
				hasLower = true
			case unicode.IsUpper(r):
				hasUpper = true
			default:
				hasOther = true
			}
		}

		classes := 0
		for _, ok := range []bool{hasDigit, hasLower, hasUpper, hasOther} {
			if ok {
				classes++
			}
		}
		if classes < legacyMinClasses {
			return &Error{
				Code:    "character_classes",
				Message: fmt.Sprintf("credential must mix at least %d character classes", legacyMinClasses),
			}
		}
		return nil
	})
}
