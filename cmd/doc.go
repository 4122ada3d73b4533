// Package cmd provides CLI commands for the anonymous survey services.
//
// # Commands
//
// authority: Runs the survey authority service. Hosts the campaign ledger,
// the token issuer with its blind-signing keys, and the result publisher
// behind a single HTTP server.
//
//	go run ./cmd/authority --addr=:8080
//	go run ./cmd/authority --addr=:8080 --postgres-host=localhost --postgres-db=survey
//
// demo-cli: Drives a full campaign against a running authority: create the
// campaign, issue tokens, submit a blinded response for each token, flush
// the queue, publish, and verify the inclusion proof.
//
//	go run ./cmd/demo-cli --authority=http://localhost:8080 --responses=5
//
// # Token Storage
//
// The authority keeps one-time tokens in Postgres when --postgres-host is
// given, falling back to an in-memory store suitable for local runs. The
// in-memory store loses all tokens on restart.
package cmd
