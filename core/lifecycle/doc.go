// Package lifecycle coordinates the full lifetime of domain certificates
// against an ACME certificate authority: issuance, renewal, revocation and
// credential selection.
//
// The orchestrator drives three collaborators, all passed in explicitly:
// the credential store (durable state), the TLS context cache (derived,
// invalidated as bundles change) and the challenge registry (HTTP-01 proof
// of control during issuance). The ACME protocol itself is behind the
// ACMEClient interface with a lego-backed default; tests inject mock
// clients through WithClientFactory.
//
//	store, _ := certstore.Open(statePath)
//	contexts := tlscache.New(store)
//	challenges := challenge.NewRegistry()
//
//	orch, err := lifecycle.New(store, contexts, challenges,
//		lifecycle.WithDirectoryURL(lego.LEDirectoryStaging),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	authID, err := orch.Certify(ctx, lifecycle.CertifyRequest{
//		Email:   "admin@example.com",
//		Domains: []string{"example.com", "www.example.com"},
//	})
//
// # Renewal and revocation
//
// Both operations select their targets through a Filter: a Predicate over
// stored bundles, a DomainList, or an AgeThreshold expressed against the
// fixed 90-day certificate lifetime.
//
//	// renew everything issued more than 60 days ago
//	err = orch.Renew(ctx, lifecycle.AgeThreshold{OlderThan: 60 * 24 * time.Hour}, nil)
//
//	// revoke one domain's certificate
//	err = orch.Revoke(ctx, lifecycle.Domain("example.com"))
//
// Batch operations fan out concurrently and join on all completions; the
// returned error aggregates every per-id failure rather than reporting only
// the first.
//
// # Failure semantics
//
// Input validation fails synchronously before any CA call. Collaborator
// failures wrap ErrCertification. Partial progress is kept: an account
// registered during a failed issuance stays registered and is reused by the
// next attempt.
package lifecycle
