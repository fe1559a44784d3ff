// Package keyutil generates and converts the private keys used for ACME
// accounts and issued certificates: RSA generation, PEM import/export, and
// JWK export for the persisted account key.
package keyutil
