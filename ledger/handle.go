package ledger

import (
	"encoding/hex"

	xcrypto "github.com/meomun1/anonsurvey/crypto"
	"golang.org/x/crypto/sha3"
)

// Handle addresses a ledger account. Accounts are resolved through the
// explicit id-to-handle mapping tables the ledger keeps, never by
// recomputing the derivation; the derived form only gives handles a stable
// printable value.
type Handle string

// handleDigestLen is the truncation length of the derived handle digest.
// Part of the printable form, not of any lookup path.
const handleDigestLen = 8

func deriveHandle(kind string, authority xcrypto.PublicKey, id string) Handle {
	h := sha3.New256()
	h.Write([]byte(kind))
	h.Write(authority.Bytes())
	h.Write([]byte(id))
	sum := h.Sum(nil)
	return Handle(kind + ":" + hex.EncodeToString(sum[:handleDigestLen]))
}

// String returns the handle's printable form.
func (h Handle) String() string {
	return string(h)
}
