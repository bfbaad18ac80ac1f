/*
Package workflow is the off-chain collaborator of the decision engine.

PURPOSE:
  The engine only renders verdicts; somebody has to open subscriptions,
  assemble each action's transaction (signer set, outputs, validity window),
  and produce the correct successor state record - including everything the
  engine deliberately does not check. That somebody is this package.

KEY COMPONENTS:
  Keyring:   Ed25519 key generation and identity derivation
  Builder:   per-action proposal construction, pre-validated by Evaluate
  Successor: the continuing state record for an accepted action

SEE ALSO:
  - ../subscription/decision.go: the checks proposals must satisfy
  - ../api/handlers.go: applies Successor after an accepted action
*/
package workflow

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/warp/pullpay/ledger"
)

// Keyring holds the Ed25519 keys the workflow controls and maps them to
// their derived identities.
type Keyring struct {
	keys map[ledger.Identity]ed25519.PrivateKey
}

func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[ledger.Identity]ed25519.PrivateKey)}
}

// Generate creates a fresh keypair and returns its identity.
func (k *Keyring) Generate() (ledger.Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	id := ledger.IdentityFromPublicKey(pub)
	k.keys[id] = priv
	return id, nil
}

// Holds reports whether the keyring controls the key behind id.
func (k *Keyring) Holds(id ledger.Identity) bool {
	_, ok := k.keys[id]
	return ok
}

// Sign produces a signature over msg with the key behind id. The host
// verifies these against the transaction body; the decision engine itself
// only ever sees the attested signer set.
func (k *Keyring) Sign(id ledger.Identity, msg []byte) ([]byte, error) {
	priv, ok := k.keys[id]
	if !ok {
		return nil, fmt.Errorf("no key held for identity %s", id)
	}
	return ed25519.Sign(priv, msg), nil
}
