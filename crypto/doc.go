// Package crypto provides the cryptographic primitives for the anonymous
// survey protocol.
//
// This package implements the operations the submission flow depends on:
//
//   - Hash commitments (SHA-256) binding a canonical answer string to a
//     fixed 32-byte digest
//   - RSA blind signatures (RSA-BSSA, SHA-384 with PSS padding) so the
//     authority can authorize a submission without seeing its content
//   - RSA-OAEP answer encryption producing fixed 256-byte ciphertexts
//   - Key pair generation and PKIX serialization for campaign key material
//
// The package provides low-level primitives that are used by the ledger,
// issuer and client implementations. All operations are pure, CPU-bound
// computations; none of them block on I/O.
//
// # Canonical Answer Encoding
//
// Commitments are computed over a canonical answer string whose byte layout
// is part of the wire format: survey id, course code, scope id and the
// answer digits joined with '|'. Any change to field order or delimiter
// invalidates previously stored commitments, so the encoding carries an
// explicit version constant.
package crypto
