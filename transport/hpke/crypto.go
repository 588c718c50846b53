package hpke

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	hkdfExportContext = "tinfoil-hpke-transport/v1"
	hkdfInfo          = "tinfoil-hpke-transport/aead-key"
	aeadKeyLen        = 32
)

// sealedRequest is the wire form of an encrypted request: the client's
// ephemeral public key plus the AEAD-sealed body (nonce prepended, as
// secure_channel.go's framing does).
type sealedRequest struct {
	clientPublicKey []byte
	sealedBody      []byte
}

// seal generates a fresh client ephemeral keypair, derives a shared AEAD key
// against the server's static public key, and encrypts plaintext under it.
// Each call uses a fresh ephemeral key, so seal never reuses a nonce/key pair
// across requests even when the handle itself is shared.
func seal(serverPub *ecdh.PublicKey, plaintext []byte) (*sealedRequest, error) {
	curve := ecdh.X25519()
	clientPriv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating client ephemeral key: %w", err)
	}

	sharedSecret, err := clientPriv.ECDH(serverPub)
	if err != nil {
		return nil, fmt.Errorf("ECDH: %w", err)
	}

	aead, err := deriveAEAD(sharedSecret)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	sealedBody := make([]byte, len(nonce)+len(ciphertext))
	copy(sealedBody, nonce)
	copy(sealedBody[len(nonce):], ciphertext)

	return &sealedRequest{
		clientPublicKey: clientPriv.PublicKey().Bytes(),
		sealedBody:      sealedBody,
	}, nil
}

// open reverses seal for a holder of the other half of the ECDH exchange.
// The transport itself does not call it: responses are returned as received.
func open(serverPub *ecdh.PublicKey, clientPriv *ecdh.PrivateKey, sealedBody []byte) ([]byte, error) {
	sharedSecret, err := clientPriv.ECDH(serverPub)
	if err != nil {
		return nil, fmt.Errorf("ECDH: %w", err)
	}
	aead, err := deriveAEAD(sharedSecret)
	if err != nil {
		return nil, err
	}
	if len(sealedBody) < aead.NonceSize() {
		return nil, fmt.Errorf("sealed body shorter than nonce")
	}
	nonce, ciphertext := sealedBody[:aead.NonceSize()], sealedBody[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}

// deriveAEAD turns an ECDH shared secret into an AES-256-GCM AEAD via
// HKDF-Extract then HKDF-Expand, binding the shared secret to a fixed export
// context before expanding it to a symmetric key.
func deriveAEAD(sharedSecret []byte) (cipher.AEAD, error) {
	prk := hkdf.Extract(sha256.New, sharedSecret, []byte(hkdfExportContext))
	reader := hkdf.Expand(sha256.New, prk, []byte(hkdfInfo))

	key := make([]byte, aeadKeyLen)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("deriving AEAD key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("constructing AES cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
