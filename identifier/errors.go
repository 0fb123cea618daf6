package identifier

import "errors"

// Reason classifies why an identifier was rejected.
type Reason uint8

const (
	// ReasonNotProvided means the identifier was empty after trimming.
	ReasonNotProvided Reason = iota + 1
	// ReasonBadStructure means the identifier failed a shape rule.
	ReasonBadStructure
	// ReasonDNSResolution means the e-mail domain has no usable MX record.
	ReasonDNSResolution
)

// Sentinels matched by errors.Is against an *Error.
var (
	ErrNotProvided   = errors.New("identifier not provided")
	ErrBadStructure  = errors.New("identifier bad structure")
	ErrDNSResolution = errors.New("identifier domain has no mail exchanger")
	// ErrUnknownKind is returned for a Kind with no validation rule.
	ErrUnknownKind   = errors.New("unknown identifier kind")
)

func (r Reason) String() string {
	switch r {
	case ReasonNotProvided:
		return "not_provided"
	case ReasonBadStructure:
		return "bad_structure"
	case ReasonDNSResolution:
		return "dns_resolution"
	default:
		return "unknown"
	}
}

// Error is returned for every rejected identifier.
type Error struct {
	Reason Reason
	// Detail is a short, non-sensitive explanation suitable for audit metadata.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.sentinel().Error()
	}
	return e.sentinel().Error() + ": " + e.Detail
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.sentinel()}
	}
	return []error{e.sentinel(), e.Err}
}

func (e *Error) sentinel() error {
	switch e.Reason {
	case ReasonNotProvided:
		return ErrNotProvided
	case ReasonDNSResolution:
		return ErrDNSResolution
	default:
		return ErrBadStructure
	}
}

// ReasonOf extracts the rejection reason from err, or zero if err is not an
// identifier error.
func ReasonOf(err error) Reason {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Reason
	}
	return 0
}
