package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
)

const signatureAlgorithm = "ML-DSA-44"

// transferSigner attaches a post-quantum signature to transfer attestations.
// Messages are signed as compact JSON with sorted keys.
type transferSigner struct {
	pk *mldsa44.PublicKey
	sk *mldsa44.PrivateKey
}

func newTransferSigner(rand io.Reader) (*transferSigner, error) {
	pk, sk, err := mldsa44.GenerateKey(rand)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return &transferSigner{pk: pk, sk: sk}, nil
}

func (s *transferSigner) Sign(msg map[string]any) (string, error) {
	blob, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	sig := make([]byte, mldsa44.SignatureSize)
	if err := mldsa44.SignTo(s.sk, blob, nil, false, sig); err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

func (s *transferSigner) PublicKey() (string, error) {
	raw, err := s.pk.MarshalBinary()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// verifyTransfer checks sigHex over msg against a hex-encoded public key.
func verifyTransfer(publicKeyHex string, msg map[string]any, sigHex string) (bool, error) {
	raw, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return false, fmt.Errorf("decode public key: %w", err)
	}
	var pk mldsa44.PublicKey
	if err := pk.UnmarshalBinary(raw); err != nil {
		return false, fmt.Errorf("parse public key: %w", err)
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	blob, err := json.Marshal(msg)
	if err != nil {
		return false, err
	}
	return mldsa44.Verify(&pk, blob, nil, sig), nil
}
