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

// Package token implements the single-holder exclusivity token used by a
// target device and the appliance (spec §5): a step must acquire a target's
// token, then the appliance's, and release in reverse order.
package token

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Token is a binary semaphore with both non-blocking and blocking
// acquisition, matching §5's "non-blocking is the default; blocking
// acquisition is used only by the key-bundle ingest scanner, where
// back-pressure is desirable."
type Token struct {
	sem *semaphore.Weighted
}

// New returns a free token.
func New() *Token {
	return &Token{sem: semaphore.NewWeighted(1)}
}

// TryAcquire attempts to take the token without blocking.
func (t *Token) TryAcquire() bool {
	return t.sem.TryAcquire(1)
}

// Acquire blocks until the token is free or ctx is cancelled.
func (t *Token) Acquire(ctx context.Context) error {
	return t.sem.Acquire(ctx, 1)
}

// Release returns the token. It must only be called by the holder.
func (t *Token) Release() {
	t.sem.Release(1)
}
