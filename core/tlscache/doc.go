// Package tlscache serves ready-to-use TLS certificates for SNI selection,
// memoized per authorization id on top of the credential store.
//
// Certificates are built lazily on first lookup and cached until the
// authorization id is revoked or renewed, at which point the orchestrator
// invalidates the entry. The cache holds derived state only; restarting the
// process rebuilds it from the store on demand.
//
//	cache := tlscache.New(store)
//	srv := &http.Server{
//		Addr:      ":443",
//		TLSConfig: cache.TLSConfig(),
//	}
package tlscache
