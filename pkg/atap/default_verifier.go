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
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
)

// DefaultVerifier checks a signature directly against the leaf certificate's
// public key, with no chain-of-trust validation. Callers that need to pin a
// root CA should supply their own SignatureVerifier instead.
type DefaultVerifier struct{}

func (DefaultVerifier) Verify(leaf *x509.Certificate, hash crypto.Hash, message, sig []byte) error {
	h := digest(hash, message)

	switch pub := leaf.PublicKey.(type) {
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(pub, h, sig) {
			return &SignatureFailure{Reason: "ecdsa verification failed"}
		}
		return nil
	case *rsa.PublicKey:
		opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: hash}
		if err := rsa.VerifyPSS(pub, hash, h, sig, opts); err != nil {
			return &SignatureFailure{Reason: "rsa-pss verification failed: " + err.Error()}
		}
		return nil
	default:
		return &BadRequest{Reason: "unsupported leaf public key type"}
	}
}
