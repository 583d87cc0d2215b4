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

// Package buildinfo holds build-time information like the console's own
// version and the lowest ATFA firmware version it can drive. Kept separate
// so any package can import it without risking an import cycle.
package buildinfo

// Version is the current version of the console, set by the linker's -X flag
// at build time and printed by `atft version`. It is not written into the
// config file's ATFT_VERSION key.
var Version = "v1.0.0"

// GitSHA is the commit being built, set by the linker's -X flag.
var GitSHA string

// CompatibleATFAVersion is the lowest ATFA firmware `getvar version` this
// release can drive, as printed by `atft version`. The registry's admission
// check compares against the configured COMPATIBLE_ATFA_VERSION instead of
// this value; an appliance reporting an older version is still admitted into
// the registry but is flagged Incompatible (see pkg/registry).
var CompatibleATFAVersion = "2.0"
