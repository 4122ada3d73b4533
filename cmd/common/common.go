// Package common provides shared utilities for the survey CLI commands.
//
// This package contains helper functions used across the service binaries
// to reduce code duplication:
//
//   - Key loading and generation for Ed25519 authority identities
//   - Token store selection between Postgres and in-memory
//   - Logger construction shared by all binaries
package common

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/meomun1/anonsurvey/crypto"
	"github.com/meomun1/anonsurvey/tokens"
)

// LoadOrGenerateSigningKey loads an Ed25519 private key from a hex string,
// or generates a new key pair if hexKey is empty.
func LoadOrGenerateSigningKey(hexKey string) (crypto.PrivateKey, error) {
	if hexKey != "" {
		keyBytes, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid hex: %w", err)
		}
		return crypto.NewPrivateKeyFromBytes(keyBytes), nil
	}
	_, privKey, err := crypto.GenerateIdentity()
	return privKey, err
}

// NewTokenStore opens the Postgres token store when a host is configured
// and falls back to the in-memory store otherwise.
func NewTokenStore(cfg *tokens.PostgresConfig) (tokens.Store, error) {
	if cfg == nil || cfg.Host == "" {
		return tokens.NewInMemoryStore(), nil
	}
	return tokens.NewPostgresStore(cfg)
}

// NewLogger creates the structured logger the binaries share. JSON output
// is for deployments, text for local runs.
func NewLogger(json, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
