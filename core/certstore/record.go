package certstore

import (
	"encoding/json"
	"maps"
	"time"
)

// Section identifies one of the three top-level parts of the persisted record.
type Section string

const (
	SectionAccount Section = "account"
	SectionDomains Section = "domains"
	SectionAuth    Section = "auth"
)

// Account holds the CA account registration created on first successful
// registration. It is never mutated afterwards except by full replacement.
type Account struct {
	// ID is the account identity assigned by the CA. ACME v2 account
	// identities are URLs, so this is a string rather than a number.
	ID string `json:"id"`
	// Key is the account private key in JWK form.
	Key       json.RawMessage `json:"key"`
	Agreement string          `json:"agreement"`
	InitialIP string          `json:"initialIp,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Subject carries extra certificate subject attributes requested at issuance.
type Subject map[string]string

// Credentials is one issued certificate bundle, keyed in the store by an
// opaque authorization id generated at issuance time.
type Credentials struct {
	// Key is the domain private key in PEM form.
	Key string `json:"key"`
	// Cert is the leaf certificate in PEM form.
	Cert string `json:"cert"`
	// CA is the issuer chain in PEM form.
	CA        string    `json:"ca"`
	Email     string    `json:"email"`
	Subject   Subject   `json:"subject,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// record is the full persisted state. Domains maps domain name to
// authorization id; Auth maps authorization id to credentials. Every
// mutation keeps the two maps consistent with each other.
type record struct {
	Account *Account               `json:"account"`
	Domains map[string]string      `json:"domains"`
	Auth    map[string]Credentials `json:"auth"`
}

func newRecord() record {
	return record{
		Domains: make(map[string]string),
		Auth:    make(map[string]Credentials),
	}
}

// normalize backfills nil maps after unmarshalling a hand-edited or
// truncated state file.
func (r *record) normalize() {
	if r.Domains == nil {
		r.Domains = make(map[string]string)
	}
	if r.Auth == nil {
		r.Auth = make(map[string]Credentials)
	}
}

func (r *record) clone() record {
	out := record{
		Domains: maps.Clone(r.Domains),
		Auth:    maps.Clone(r.Auth),
	}
	if r.Account != nil {
		acc := *r.Account
		out.Account = &acc
	}
	return out
}
