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

package token

import (
	"context"
	"errors"
)

var errBusy = errors.New("token: already held")

// Pair acquires target then appliance, in that fixed order (spec §3, §5),
// without blocking, and returns a release function that releases in reverse
// order. If either token is already held, Pair holds neither and returns an
// error. Callers that only need the target token should pass a nil appliance.
func Pair(ctx context.Context, target, appliance *Token) (release func(), err error) {
	if !target.TryAcquire() {
		return nil, errBusy
	}
	if appliance == nil {
		return target.Release, nil
	}
	if !appliance.TryAcquire() {
		target.Release()
		return nil, errBusy
	}
	return func() {
		appliance.Release()
		target.Release()
	}, nil
}
