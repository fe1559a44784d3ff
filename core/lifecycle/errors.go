package lifecycle

import "errors"

var (
	// ErrInvalidRequest is returned when a certify request is malformed,
	// before any collaborator is called.
	ErrInvalidRequest = errors.New("invalid certify request")
	// ErrNoDomains is returned when a renewal targets an authorization id
	// that no domain currently maps to.
	ErrNoDomains = errors.New("no domains match the authorization id")
	// ErrNoCredentials is returned when a revocation targets an
	// authorization id with no stored bundle.
	ErrNoCredentials = errors.New("no credentials exist for the authorization id")
	// ErrUnknownDomain is returned when a domain filter names a domain with
	// no active credentials.
	ErrUnknownDomain = errors.New("unknown domain")
	// ErrUnsupportedFilter is returned for a nil or unrecognized filter.
	ErrUnsupportedFilter = errors.New("unsupported credential filter")
	// ErrAccountRequired is returned when an operation needs a registered
	// CA account and none exists.
	ErrAccountRequired = errors.New("no registered account")
	// ErrCertification wraps any ACME client or key utility failure during
	// issuance, renewal or revocation.
	ErrCertification = errors.New("certification failed")
)
