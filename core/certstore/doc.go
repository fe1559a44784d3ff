// Package certstore persists ACME certificate state: the CA account record,
// the mapping of domains to authorization ids, and the credential bundle
// stored under each authorization id.
//
// The store is the single source of truth for durable state. Derived caches
// (TLS contexts, in-flight challenge tokens) live elsewhere and are
// rebuildable from it. Every mutation keeps the domain map and the auth map
// consistent as one unit: a domain never points at an authorization id whose
// bundle is missing.
//
// # Persistence
//
// State is a single JSON file, fully rewritten on every save through a temp
// file and rename. Saves are debounced: the first Save after a mutation arms
// a timer (5 seconds by default) and later Saves within the window coalesce
// into that one write. This bounds write amplification under bursty mutation
// such as a batch renewal, at the cost of up to one window of staleness.
//
//	store, err := certstore.Open("/var/lib/certward/state.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close() // drains any pending debounced write
//
// A failed background write is not retried automatically; the error is
// returned from the next Save call, which also schedules a fresh write.
// In-memory state is never rolled back on a failed write.
//
// # Mutation
//
// Use the transactional mutators rather than Set for normal operation:
//
//	err := store.PutCredentials(authID, creds, []string{"example.com", "www.example.com"})
//
// PutCredentials, ReplaceCredentials and DeleteCredentials each apply their
// domain-map and auth-map changes in a single critical section and schedule
// a save.
package certstore
