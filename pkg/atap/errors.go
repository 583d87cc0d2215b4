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

import "fmt"

// BadRequest is returned for any structural wire-format violation: bad
// length, non-zero reserved bytes, unsupported version, or an unsupported
// certify operation (spec §4.3, §7).
type BadRequest struct {
	Reason string
}

func (e *BadRequest) Error() string { return fmt.Sprintf("atap: bad request: %s", e.Reason) }

// CryptoFailure covers GCM tag mismatch and ECDH failure.
type CryptoFailure struct {
	Reason string
}

func (e *CryptoFailure) Error() string { return fmt.Sprintf("atap: crypto failure: %s", e.Reason) }

// SignatureFailure is returned when a SoM certificate chain's signature does
// not verify.
type SignatureFailure struct {
	Reason string
}

func (e *SignatureFailure) Error() string {
	return fmt.Sprintf("atap: signature failure: %s", e.Reason)
}
