package lifecycle

import (
	"crypto"

	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"
)

// ACMEClient is the slice of the ACME protocol the orchestrator drives.
// The abstraction allows testing without real CA requests and swapping
// directories (staging vs production).
type ACMEClient interface {
	// Register creates a new account at the CA for the client's user.
	Register(options registration.RegisterOptions) (*registration.Resource, error)

	// TermsOfServiceURL reports the CA's current terms-of-service URL.
	TermsOfServiceURL() string

	// SetHTTP01Provider installs the provider that publishes and withdraws
	// HTTP-01 challenge tokens during issuance.
	SetHTTP01Provider(provider challenge.Provider) error

	// Obtain runs the certificate issuance flow and returns the signed
	// certificate material.
	Obtain(request certificate.ObtainRequest) (*certificate.Resource, error)

	// Revoke revokes a previously issued certificate, given its PEM bytes.
	Revoke(cert []byte) error
}

// ClientFactory builds an ACMEClient from a lego configuration. The
// orchestrator constructs one client per operation, bound to the account
// key of that operation's user.
type ClientFactory func(*lego.Config) (ACMEClient, error)

func defaultClientFactory(cfg *lego.Config) (ACMEClient, error) {
	client, err := lego.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &legoClientAdapter{client: client}, nil
}

type legoClientAdapter struct {
	client *lego.Client
}

func (l *legoClientAdapter) Register(options registration.RegisterOptions) (*registration.Resource, error) {
	return l.client.Registration.Register(options)
}

func (l *legoClientAdapter) TermsOfServiceURL() string {
	return l.client.GetToSURL()
}

func (l *legoClientAdapter) SetHTTP01Provider(provider challenge.Provider) error {
	return l.client.Challenge.SetHTTP01Provider(provider)
}

func (l *legoClientAdapter) Obtain(request certificate.ObtainRequest) (*certificate.Resource, error) {
	return l.client.Certificate.Obtain(request)
}

func (l *legoClientAdapter) Revoke(cert []byte) error {
	return l.client.Certificate.Revoke(cert)
}

// accountUser carries the account identity lego needs for signing requests.
type accountUser struct {
	email        string
	registration *registration.Resource
	key          crypto.PrivateKey
}

func (u *accountUser) GetEmail() string {
	return u.email
}

func (u *accountUser) GetRegistration() *registration.Resource {
	return u.registration
}

func (u *accountUser) GetPrivateKey() crypto.PrivateKey {
	return u.key
}
