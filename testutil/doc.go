/*
Package testutil provides testing utilities for the anonymous survey
protocol implementation.

This package contains test data generators and fixtures shared by the
package test suites: deterministic commitments and ciphertexts, Ed25519
identities, cached RSA campaign keys, and ledger builders that stand up a
campaign in a given lifecycle state.

# Cryptographic Generators

	// Generate an identity for an authority or submitter
	pub, priv := testutil.GenerateTestIdentity(t)

	// Fixed-size deterministic leaves
	commitment := testutil.TestCommitment(1)
	ciphertext := testutil.TestCiphertext(1)

	// RSA key pairs, generated once and shared across tests
	keys := testutil.TestCampaignKeys(t)

# Ledger Builders

	// Create a campaign owned by the authority, advanced to open
	l := ledger.New()
	handle := testutil.CreateOpenCampaign(t, l, authority, "C1")

The builders fail the test immediately on any setup error, keeping the
test bodies about the behavior under test.
*/
package testutil
