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

// EncodeOperationStart builds the Operation-Start message (host -> device):
// an 8-byte header with payload_len=35 followed by {algorithm, operation,
// host_pub[33]}.
func EncodeOperationStart(s *Session) []byte {
	payload := make([]byte, 35)
	payload[0] = byte(s.Algorithm)
	payload[1] = byte(s.Operation)
	copy(payload[2:35], s.HostPub[:])

	out := encodeHeader(header{Version: s.MessageVersion, PayloadLen: 35})
	return append(out, payload...)
}

// CARequestEnvelope is the structurally-parsed (but not yet decrypted)
// CA-Request (device -> host).
type CARequestEnvelope struct {
	Header     header
	DevicePub  [33]byte
	GCMIV      [12]byte
	Ciphertext []byte
	GCMTag     [16]byte
}

// ParseCARequestEnvelope parses the outer CA-Request framing without
// touching any cryptography; callers derive the session key from DevicePub
// and then call DecryptInner.
func ParseCARequestEnvelope(raw []byte) (*CARequestEnvelope, error) {
	c := newCursor(raw)

	hb, err := c.take(headerLen)
	if err != nil {
		return nil, err
	}
	h, err := decodeHeader(hb)
	if err != nil {
		return nil, err
	}

	devicePubB, err := c.take(ecdhKeyLen)
	if err != nil {
		return nil, err
	}
	ivB, err := c.take(gcmIVLen)
	if err != nil {
		return nil, err
	}
	ciphertext, err := c.takeLenPrefixed()
	if err != nil {
		return nil, err
	}
	tagB, err := c.take(gcmTagLen)
	if err != nil {
		return nil, err
	}

	env := &CARequestEnvelope{Header: h, Ciphertext: ciphertext}
	copy(env.DevicePub[:], devicePubB)
	copy(env.GCMIV[:], ivB)
	copy(env.GCMTag[:], tagB)
	return env, nil
}

// DecryptInner decrypts env's ciphertext using the session's derived
// shared_key. DeriveSessionKey must have been called first.
func DecryptInner(s *Session, env *CARequestEnvelope) ([]byte, error) {
	return openGCM(s.SharedKey[:], env.GCMIV[:], env.Ciphertext, env.GCMTag[:])
}

// InnerSomRequest is the decrypted inner CA-Request body for a SoM-key
// operation.
type InnerSomRequest struct {
	Header      header
	SomIDSHA256 [32]byte
}

// InnerProductRequest is the decrypted inner CA-Request body for a product
// (non-SoM) operation.
type InnerProductRequest struct {
	Header         header
	SomChain       []byte // concatenated, length-prefixed DER certificates; see SplitSomChain
	SomSig         []byte
	ProductIDSHA256 [32]byte
	RSAPubkey      []byte
	ECDSAPubkey    []byte
	EdDSAPubkey    []byte
}

// ParseInnerSom parses the SoM-operation inner CA-Request: {outer_header
// (version=2); [32] som_id_sha256}.
func ParseInnerSom(plaintext []byte, outerVersion uint8) (*InnerSomRequest, error) {
	c := newCursor(plaintext)
	hb, err := c.take(headerLen)
	if err != nil {
		return nil, err
	}
	h, err := decodeHeader(hb)
	if err != nil {
		return nil, err
	}
	if h.Version != outerVersion {
		return nil, &BadRequest{Reason: "inner header version does not match outer version"}
	}
	idB, err := c.take(hashLen)
	if err != nil {
		return nil, err
	}
	req := &InnerSomRequest{Header: h}
	copy(req.SomIDSHA256[:], idB)
	return req, nil
}

// ParseInnerProduct parses the product-operation inner CA-Request. It
// enforces that the trailing RSA/ECDSA/EdDSA pubkey fields are empty, since
// this codec only supports key-issuance operations, never certify.
func ParseInnerProduct(plaintext []byte, outerVersion uint8) (*InnerProductRequest, error) {
	c := newCursor(plaintext)
	hb, err := c.take(headerLen)
	if err != nil {
		return nil, err
	}
	h, err := decodeHeader(hb)
	if err != nil {
		return nil, err
	}
	if h.Version != outerVersion {
		return nil, &BadRequest{Reason: "inner header version does not match outer version"}
	}

	somChain, err := c.takeLenPrefixed()
	if err != nil {
		return nil, err
	}
	somSig, err := c.takeLenPrefixed()
	if err != nil {
		return nil, err
	}
	productIDB, err := c.take(hashLen)
	if err != nil {
		return nil, err
	}
	rsaPub, err := c.takeLenPrefixed()
	if err != nil {
		return nil, err
	}
	ecdsaPub, err := c.takeLenPrefixed()
	if err != nil {
		return nil, err
	}
	eddsaPub, err := c.takeLenPrefixed()
	if err != nil {
		return nil, err
	}
	if len(rsaPub) != 0 || len(ecdsaPub) != 0 || len(eddsaPub) != 0 {
		return nil, &BadRequest{Reason: "Certify not supported"}
	}

	req := &InnerProductRequest{
		Header:   h,
		SomChain: somChain,
		SomSig:   somSig,
		RSAPubkey: rsaPub,
		ECDSAPubkey: ecdsaPub,
		EdDSAPubkey: eddsaPub,
	}
	copy(req.ProductIDSHA256[:], productIDB)
	return req, nil
}

// SplitSomChain splits a SomChain blob into its sequence of length-prefixed
// DER certificates.
func SplitSomChain(chain []byte) ([][]byte, error) {
	c := newCursor(chain)
	var certs [][]byte
	for c.remaining() > 0 {
		cert, err := c.takeLenPrefixed()
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

// EncodeCAResponse encrypts an opaque key bundle (produced by the appliance
// and never interpreted here) into the CA-Response wire message.
func EncodeCAResponse(s *Session, keyBundle []byte) ([]byte, error) {
	iv, ciphertext, tag, err := sealGCM(s.SharedKey[:], keyBundle)
	if err != nil {
		return nil, err
	}

	payloadLen := uint32(gcmIVLen + 4 + len(ciphertext) + gcmTagLen)
	out := encodeHeader(header{Version: s.MessageVersion, PayloadLen: payloadLen})
	out = append(out, iv...)
	lenField := make([]byte, 4)
	putU32(lenField, uint32(len(ciphertext)))
	out = append(out, lenField...)
	out = append(out, ciphertext...)
	out = append(out, tag...)
	return out, nil
}
