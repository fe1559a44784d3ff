package keyutil

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/go-acme/lego/v4/certcrypto"
	jose "github.com/go-jose/go-jose/v4"
)

// DefaultRSAKeySize is used when no key size is configured.
const DefaultRSAKeySize = 2048

// minRSAKeySize guards against accidentally weak account or domain keys.
const minRSAKeySize = 2048

var (
	// ErrKeyTooSmall is returned when an RSA key size below 2048 bits is requested.
	ErrKeyTooSmall = errors.New("rsa key size below 2048 bits")
	// ErrInvalidPEM is returned when a private key cannot be parsed from PEM.
	ErrInvalidPEM = errors.New("invalid private key pem")
	// ErrInvalidJWK is returned when a private key cannot be parsed from JWK.
	ErrInvalidJWK = errors.New("invalid private key jwk")
)

// GenerateRSA creates a new RSA key pair. A non-positive size falls back to
// DefaultRSAKeySize.
func GenerateRSA(bits int) (*rsa.PrivateKey, error) {
	if bits <= 0 {
		bits = DefaultRSAKeySize
	}
	if bits < minRSAKeySize {
		return nil, ErrKeyTooSmall
	}
	return rsa.GenerateKey(rand.Reader, bits)
}

// ParsePrivatePEM parses a PEM-encoded private key of any supported type.
func ParsePrivatePEM(pemData string) (crypto.PrivateKey, error) {
	key, err := certcrypto.ParsePEMPrivateKey([]byte(pemData))
	if err != nil {
		return nil, errors.Join(ErrInvalidPEM, err)
	}
	return key, nil
}

// EncodePrivatePEM renders a private key as PEM.
func EncodePrivatePEM(key crypto.PrivateKey) (string, error) {
	data := certcrypto.PEMEncode(key)
	if len(data) == 0 {
		return "", fmt.Errorf("unsupported private key type %T", key)
	}
	return string(data), nil
}

// EncodePublicPEM renders the public half of a private key as PEM.
func EncodePublicPEM(key crypto.PrivateKey) (string, error) {
	signer, ok := key.(crypto.Signer)
	if !ok {
		return "", fmt.Errorf("unsupported private key type %T", key)
	}

	der, err := x509.MarshalPKIXPublicKey(signer.Public())
	if err != nil {
		return "", err
	}

	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// MarshalJWK renders a private key as a JSON Web Key, the form in which the
// CA account key is persisted.
func MarshalJWK(key crypto.PrivateKey) (json.RawMessage, error) {
	jwk := jose.JSONWebKey{Key: key}
	data, err := jwk.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// ParseJWK parses a private key from its JSON Web Key form.
func ParseJWK(raw json.RawMessage) (crypto.PrivateKey, error) {
	var jwk jose.JSONWebKey
	if err := jwk.UnmarshalJSON(raw); err != nil {
		return nil, errors.Join(ErrInvalidJWK, err)
	}
	if jwk.Key == nil || !jwk.Valid() {
		return nil, ErrInvalidJWK
	}
	return jwk.Key, nil
}
