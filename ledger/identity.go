/*
Package ledger provides the chain-level facts the decision engine runs against.

PURPOSE:
  This package contains domain-agnostic ledger types: identities derived from
  public keys, asset amounts, validity intervals, and the read-only context of
  an enclosing transaction (signers, outputs, time window). The subscription
  package builds its authorization checks on top of these primitives.

KEY CONCEPTS IN THIS FILE (identity.go):
  - Identity: A public-key-derived identity (BLAKE2b-224 of an Ed25519 key)
  - Plain-signature addressing: an output "pays" an identity when its
    destination is exactly that key hash

DESIGN PRINCIPLES:
  1. Identities are opaque hashes, never raw keys
  2. Parsing is strict: anything that is not 28 bytes of hex is rejected
  3. No signature verification here - the host attests the signer set

SEE ALSO:
  - context.go: TxContext uses Identity for signers and output destinations
  - ../subscription/decision.go: consumes these primitives
*/
package ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// IdentityHashSize is the digest size of the key hash (BLAKE2b-224).
const IdentityHashSize = 28

// Identity is a public-key-derived identity: the lowercase hex encoding of
// the BLAKE2b-224 hash of an Ed25519 public key.
type Identity string

// IdentityFromPublicKey derives the Identity for an Ed25519 public key.
func IdentityFromPublicKey(pub ed25519.PublicKey) Identity {
	h, err := blake2b.New(IdentityHashSize, nil)
	if err != nil {
		// blake2b.New only fails for oversized keys; we pass none.
		panic(err)
	}
	h.Write(pub)
	return Identity(hex.EncodeToString(h.Sum(nil)))
}

// ParseIdentity validates and normalizes an identity string.
// Returns an error for anything that is not 28 bytes of hex.
func ParseIdentity(s string) (Identity, error) {
	s = strings.ToLower(s)
	raw, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("identity is not valid hex: %w", err)
	}
	if len(raw) != IdentityHashSize {
		return "", fmt.Errorf("identity must be %d bytes, got %d", IdentityHashSize, len(raw))
	}
	return Identity(s), nil
}

// Valid reports whether the identity is well-formed.
func (id Identity) Valid() bool {
	_, err := ParseIdentity(string(id))
	return err == nil
}

func (id Identity) String() string { return string(id) }
