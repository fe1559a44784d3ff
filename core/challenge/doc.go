// Package challenge tracks HTTP-01 challenge tokens for in-flight ACME
// issuances and answers CA validation requests.
//
// The registry is transient by design: tokens are published when the ACME
// client starts solving a challenge and withdrawn as soon as the challenge
// succeeds or is abandoned. Nothing in it survives a restart, and nothing
// needs to.
//
// The registry implements lego's challenge.Provider, so it plugs straight
// into the issuance flow, and it exposes an http.Handler for the serving
// layer:
//
//	registry := challenge.NewRegistry()
//	client.Challenge.SetHTTP01Provider(registry)
//
//	// plaintext listener on :80
//	http.ListenAndServe(":80", registry.Handler(appHandler))
package challenge
