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
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
)

// sealGCM encrypts plaintext under key with a freshly generated IV and empty
// AAD, returning iv, ciphertext, tag separately to match the wire layout.
func sealGCM(key, plaintext []byte) (iv, ciphertext, tag []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, nil, &CryptoFailure{Reason: "aes init: " + err.Error()}
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmIVLen)
	if err != nil {
		return nil, nil, nil, &CryptoFailure{Reason: "gcm init: " + err.Error()}
	}
	iv = make([]byte, gcmIVLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, nil, &CryptoFailure{Reason: "iv generation: " + err.Error()}
	}
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ct := sealed[:len(sealed)-gcmTagLen]
	tg := sealed[len(sealed)-gcmTagLen:]
	return iv, ct, tg, nil
}

// openGCM decrypts ciphertext||tag under key/iv with empty AAD. A tag
// mismatch surfaces as CryptoFailure per spec §7.
func openGCM(key, iv, ciphertext, tag []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &CryptoFailure{Reason: "aes init: " + err.Error()}
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmIVLen)
	if err != nil {
		return nil, &CryptoFailure{Reason: "gcm init: " + err.Error()}
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, &CryptoFailure{Reason: "gcm tag mismatch"}
	}
	return plaintext, nil
}
