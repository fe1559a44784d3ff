// Package certward manages the lifecycle of domain TLS certificates obtained
// through the ACME protocol: issuance, renewal, revocation, durable storage
// and fast lookup for TLS termination.
//
// The root package wires the building blocks together behind a single
// Manager; each block is usable on its own:
//
//	github.com/dmitrymomot/certward/core/certstore  - durable certificate state with debounced saves
//	github.com/dmitrymomot/certward/core/lifecycle  - issuance, renewal and revocation orchestration
//	github.com/dmitrymomot/certward/core/tlscache   - memoized TLS certificates for SNI selection
//	github.com/dmitrymomot/certward/core/challenge  - HTTP-01 challenge token registry and handler
//	github.com/dmitrymomot/certward/core/config     - type-safe environment configuration
//	github.com/dmitrymomot/certward/core/logger     - slog helpers and domain attributes
//	github.com/dmitrymomot/certward/pkg/async       - future-based concurrent fan-out with error collection
//	github.com/dmitrymomot/certward/pkg/keyutil     - RSA generation, PEM and JWK key conversion
//
// # Usage
//
//	mgr, err := certward.New(certward.Config{
//		StatePath:    "/var/lib/certward/state.json",
//		DirectoryURL: lego.LEDirectoryStaging,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer mgr.Close()
//
//	authID, err := mgr.Certify(ctx, lifecycle.CertifyRequest{
//		Email:   "admin@example.com",
//		Domains: []string{"example.com"},
//	})
//
//	// plaintext listener answers CA validation requests
//	go http.ListenAndServe(":80", mgr.HTTPHandler(redirectHandler))
//
//	// TLS listener serves managed certificates by SNI
//	srv := &http.Server{Addr: ":443", TLSConfig: mgr.TLSConfig()}
//	srv.ListenAndServeTLS("", "")
package certward
