/*
Copyright 2026 ATFT Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package atap

import (
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"math/big"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
	"crypto/sha256"
)

// Session holds one provisioning attempt's ephemeral ECDH state (spec §3
// "ATAP session"). It is single-use: callers construct a fresh Session per
// attempt via NewSession.
type Session struct {
	Algorithm Algorithm
	Operation Operation

	hostPriv []byte   // P-256: 32-byte scalar. X25519: 32-byte scalar.
	HostPub  [33]byte // compressed P-256 point, or X25519 key zero-padded.

	DevicePub [33]byte
	SharedKey [16]byte
	AuthValue [16]byte

	MessageVersion uint8
}

// NewSession generates a fresh ephemeral keypair for algorithm/operation.
func NewSession(algorithm Algorithm, operation Operation) (*Session, error) {
	s := &Session{
		Algorithm:      algorithm,
		Operation:      operation,
		MessageVersion: innerVersionFor(operation),
	}

	switch algorithm {
	case AlgorithmP256:
		priv, x, y, err := elliptic.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, &CryptoFailure{Reason: "p256 keygen: " + err.Error()}
		}
		s.hostPriv = priv
		copy(s.HostPub[:], elliptic.MarshalCompressed(elliptic.P256(), x, y))
	case AlgorithmX25519:
		priv := make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, priv); err != nil {
			return nil, &CryptoFailure{Reason: "x25519 keygen: " + err.Error()}
		}
		pub, err := curve25519.X25519(priv, curve25519.Basepoint)
		if err != nil {
			return nil, &CryptoFailure{Reason: "x25519 keygen: " + err.Error()}
		}
		s.hostPriv = priv
		copy(s.HostPub[:32], pub)
		s.HostPub[32] = 0x00
	default:
		return nil, &BadRequest{Reason: "unsupported algorithm"}
	}
	return s, nil
}

// DeriveSessionKey computes shared_key and auth_value from devicePub (spec
// §4.3 "Session-key derivation"). It must be called exactly once, after the
// CA-Request envelope has been structurally parsed.
func (s *Session) DeriveSessionKey(devicePub [33]byte) error {
	s.DevicePub = devicePub

	var ecdhX []byte
	switch s.Algorithm {
	case AlgorithmP256:
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), devicePub[:])
		if x == nil {
			return &CryptoFailure{Reason: "invalid P-256 device public key"}
		}
		sx, _ := elliptic.P256().ScalarMult(x, y, s.hostPriv)
		ecdhX = leftPad32(sx)
	case AlgorithmX25519:
		if devicePub[32] != 0x00 {
			return &CryptoFailure{Reason: "x25519 device key padding byte non-zero"}
		}
		shared, err := curve25519.X25519(s.hostPriv, devicePub[:32])
		if err != nil {
			return &CryptoFailure{Reason: "x25519 ecdh: " + err.Error()}
		}
		ecdhX = shared
	default:
		return &BadRequest{Reason: "unsupported algorithm"}
	}

	salt := make([]byte, 0, 66)
	salt = append(salt, s.HostPub[:]...)
	salt = append(salt, devicePub[:]...)

	if _, err := io.ReadFull(hkdf.New(sha256.New, ecdhX, salt, []byte("KEY")), s.SharedKey[:]); err != nil {
		return &CryptoFailure{Reason: "hkdf expand KEY: " + err.Error()}
	}
	if _, err := io.ReadFull(hkdf.New(sha256.New, ecdhX, salt, []byte("SIGN")), s.AuthValue[:]); err != nil {
		return &CryptoFailure{Reason: "hkdf expand SIGN: " + err.Error()}
	}
	return nil
}

func leftPad32(v *big.Int) []byte {
	b := v.Bytes()
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}
