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
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/asn1"
)

var (
	oidSHA256WithECDSA   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}
	oidSHA256WithRSAPSS  = asn1.ObjectIdentifier{1, 2, 840, 113741, 1, 9, 4, 3}
	oidSHA512WithECDSA   = asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}
)

// hashAlgorithmFor selects the digest algorithm for a leaf certificate's
// signature-algorithm OID (spec §4.3).
func hashAlgorithmFor(oid asn1.ObjectIdentifier) (crypto.Hash, error) {
	switch {
	case oid.Equal(oidSHA256WithECDSA), oid.Equal(oidSHA256WithRSAPSS):
		return crypto.SHA256, nil
	case oid.Equal(oidSHA512WithECDSA):
		return crypto.SHA512, nil
	default:
		return 0, &BadRequest{Reason: "dgst algorithm not supported"}
	}
}

// digest hashes msg with the algorithm selected by the leaf certificate's
// signature OID.
func digest(h crypto.Hash, msg []byte) []byte {
	switch h {
	case crypto.SHA256:
		sum := sha256.Sum256(msg)
		return sum[:]
	case crypto.SHA512:
		sum := sha512.Sum512(msg)
		return sum[:]
	default:
		return nil
	}
}

// SignatureVerifier is the injected capability the codec calls to validate a
// SoM certificate chain and its signature over auth_value (spec §4.3). A
// real implementation checks the chain against a trusted root; it is kept
// injectable so tests can stub it and so the codec itself never owns trust
// anchors.
type SignatureVerifier interface {
	// Verify checks that sig is a valid signature, under leaf's public key
	// and the hash algorithm selected from leaf's OID, over message.
	Verify(leaf *x509.Certificate, hash crypto.Hash, message, sig []byte) error
}

// VerifySomSignature parses the DER chain, selects the hash algorithm from
// the leaf certificate's signature OID, and asks verifier to check som_sig
// over auth_value.
func VerifySomSignature(verifier SignatureVerifier, somChain [][]byte, somSig, authValue []byte) error {
	if len(somChain) == 0 {
		return &SignatureFailure{Reason: "empty som_chain"}
	}
	leaf, err := x509.ParseCertificate(somChain[0])
	if err != nil {
		return &BadRequest{Reason: "som_chain leaf parse: " + err.Error()}
	}

	var oid asn1.ObjectIdentifier
	switch leaf.SignatureAlgorithm {
	case x509.ECDSAWithSHA256:
		oid = oidSHA256WithECDSA
	case x509.ECDSAWithSHA512:
		oid = oidSHA512WithECDSA
	case x509.SHA256WithRSAPSS:
		oid = oidSHA256WithRSAPSS
	default:
		return &BadRequest{Reason: "dgst algorithm not supported"}
	}

	hash, err := hashAlgorithmFor(oid)
	if err != nil {
		return err
	}

	if err := verifier.Verify(leaf, hash, authValue, somSig); err != nil {
		return &SignatureFailure{Reason: err.Error()}
	}
	return nil
}
