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

package provision

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/atft/pkg/fastboot"
	"github.com/google/uuid"
)

// transferContent copies staged content from src to dst through a temporary
// file, deleting it on every exit path (spec §4.5.1 step 5/6/7; grounded on
// the original tool's TransferContent helper).
func transferContent(ctx context.Context, src, dst fastboot.Device) error {
	path := filepath.Join(os.TempDir(), uuid.NewString())
	defer os.Remove(path)

	if err := src.Upload(ctx, path); err != nil {
		return err
	}
	if err := dst.Download(ctx, path); err != nil {
		return err
	}
	return nil
}
