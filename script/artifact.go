/*
Package script packages the compiled decision engine into a content-addressed
artifact.

PURPOSE:
  Hosts reference the decision engine by content address. This package
  serializes a script descriptor into canonical JSON (RFC 8785 / JCS), hashes
  the canonical bytes with BLAKE2b-224, and writes the artifact to a file
  named by its address. Pure packaging - none of the decision logic runs
  here.

CONTENT ADDRESSING:
  The same descriptor must always produce the same address, regardless of
  field order or whitespace in the input encoding. jcs.Transform provides
  the canonical form; equality of addresses is equality of scripts.

USAGE:
  art, err := script.Build(script.Descriptor{Name: "pullpay", Version: "1"})
  path, err := art.WriteFile("./artifacts")
*/
package script

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gowebpki/jcs"
	"golang.org/x/crypto/blake2b"
)

// addressSize is the digest size of the content address (BLAKE2b-224),
// matching the identity hash used on the ledger side.
const addressSize = 28

// Descriptor identifies one compiled build of the decision engine.
type Descriptor struct {
	// Name of the script family.
	Name string `json:"name"`

	// Version of the decision logic.
	Version string `json:"version"`

	// Checks lists the named conditions the engine enforces, in evaluation
	// order. Part of the content address: changing the checks changes the
	// script.
	Checks []string `json:"checks"`
}

// Artifact is a serialized, content-addressed script.
type Artifact struct {
	Address string
	Body    []byte
}

// Canonical returns the RFC 8785 canonical JSON encoding of the descriptor.
func (d Descriptor) Canonical() ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal descriptor: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize descriptor: %w", err)
	}
	return canonical, nil
}

// Build serializes the descriptor and derives its content address.
func Build(d Descriptor) (Artifact, error) {
	if d.Name == "" {
		return Artifact{}, fmt.Errorf("descriptor requires a name")
	}
	body, err := d.Canonical()
	if err != nil {
		return Artifact{}, err
	}
	h, err := blake2b.New(addressSize, nil)
	if err != nil {
		return Artifact{}, err
	}
	h.Write(body)
	return Artifact{
		Address: hex.EncodeToString(h.Sum(nil)),
		Body:    body,
	}, nil
}

// WriteFile writes the artifact into dir as <address>.script.json and
// returns the full path.
func (a Artifact) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	path := filepath.Join(dir, a.Address+".script.json")
	if err := os.WriteFile(path, a.Body, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}

// EngineDescriptor is the descriptor for the decision engine built in this
// repository, with its checks in evaluation order.
func EngineDescriptor(version string) Descriptor {
	return Descriptor{
		Name:    "pullpay",
		Version: version,
		Checks: []string{
			"charge: merchant signature",
			"charge: positive amount",
			"charge: within remaining allowance",
			"charge: matching payment to merchant",
			"cancel: subscriber signature",
			"top_up: subscriber signature",
			"top_up: positive amount",
			"update: subscriber signature",
			"update: non-negative parameters",
		},
	}
}
