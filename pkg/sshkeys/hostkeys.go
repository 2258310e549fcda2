// Package sshkeys generates the Ed25519 host-key material mounted into
// every SSH-enabled DevServer. The engine carries no teacher precedent for
// this (StreamSpace sessions are VNC-only); golang.org/x/crypto already
// rides along transitively for client-go's auth plugins, so this promotes
// it to a direct dependency instead of reaching for a new library.
package sshkeys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// HostKeyPair holds the PEM-encoded private key and the OpenSSH
// authorized-keys-format public key for one generated host key.
type HostKeyPair struct {
	PrivateKeyPEM []byte
	PublicKeyLine []byte
}

// Generate creates a fresh Ed25519 SSH host key pair. Called exactly once
// per DevServer, the first time the engine observes it without an existing
// hostkeys secret; callers must never call this again for an object that
// already has one (see buildHostKeySecret's create-only contract).
func Generate() (*HostKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sshkeys: generate ed25519 key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, "devserver host key")
	if err != nil {
		return nil, fmt.Errorf("sshkeys: marshal private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("sshkeys: derive public key: %w", err)
	}

	return &HostKeyPair{
		PrivateKeyPEM: pem.EncodeToMemory(block),
		PublicKeyLine: ssh.MarshalAuthorizedKey(sshPub),
	}, nil
}
