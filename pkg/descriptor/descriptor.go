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

// Package descriptor parses the product/SoM attestation descriptor file
// (spec §4.11, C11): a UTF-8 key/value dictionary naming the vboot key and
// either a product's permanent attribute or a SoM identifier.
package descriptor

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const permanentAttributeLen = 1052

// DescriptorFormat is returned for any malformed descriptor (spec §7).
type DescriptorFormat struct {
	Reason string
}

func (e *DescriptorFormat) Error() string { return fmt.Sprintf("descriptor: %s", e.Reason) }

// Mode distinguishes product vs SoM descriptors; exactly one is ever loaded
// at a time (spec §3).
type Mode int

const (
	ModeProduct Mode = iota
	ModeSom
)

// Descriptor is the parsed, validated attestation descriptor.
type Descriptor struct {
	Mode Mode

	Name                string
	VbootPublicKey      []byte
	PermanentAttribute  []byte // product mode only; exactly 1052 bytes
	SomID               string // SoM mode only
	ProductID           string // lowercase hex, product mode only
}

// IsSom reports whether this descriptor describes a SoM-key flow.
func (d *Descriptor) IsSom() bool { return d.Mode == ModeSom }

// Parse decodes a descriptor file's contents (spec §4.11). Recognized keys:
// productName, productPermanentAttribute (base64), somId, bootloaderPublicKey
// (base64). Exactly one of productPermanentAttribute/somId must be present.
func Parse(content string) (*Descriptor, error) {
	fields, err := parseDictionary(content)
	if err != nil {
		return nil, err
	}

	name, hasName := fields["productName"]
	if !hasName || name == "" {
		return nil, &DescriptorFormat{Reason: "missing productName"}
	}

	bootloaderB64, hasBootloader := fields["bootloaderPublicKey"]
	if !hasBootloader || bootloaderB64 == "" {
		return nil, &DescriptorFormat{Reason: "missing bootloaderPublicKey"}
	}
	vbootKey, err := base64.StdEncoding.DecodeString(bootloaderB64)
	if err != nil {
		return nil, &DescriptorFormat{Reason: "bootloaderPublicKey: invalid base64: " + err.Error()}
	}

	permAttrB64, hasPermAttr := fields["productPermanentAttribute"]
	somID, hasSomID := fields["somId"]

	switch {
	case hasPermAttr && hasSomID:
		return nil, &DescriptorFormat{Reason: "productPermanentAttribute and somId are mutually exclusive"}
	case hasPermAttr:
		permAttr, err := base64.StdEncoding.DecodeString(permAttrB64)
		if err != nil {
			return nil, &DescriptorFormat{Reason: "productPermanentAttribute: invalid base64: " + err.Error()}
		}
		if len(permAttr) != permanentAttributeLen {
			return nil, &DescriptorFormat{Reason: fmt.Sprintf("productPermanentAttribute length %d, want %d", len(permAttr), permanentAttributeLen)}
		}
		productID := hex.EncodeToString(permAttr[len(permAttr)-16:])
		return &Descriptor{
			Mode:               ModeProduct,
			Name:               name,
			VbootPublicKey:     vbootKey,
			PermanentAttribute: permAttr,
			ProductID:          productID,
		}, nil
	case hasSomID:
		if somID == "" {
			return nil, &DescriptorFormat{Reason: "somId is empty"}
		}
		return &Descriptor{
			Mode:           ModeSom,
			Name:           name,
			VbootPublicKey: vbootKey,
			SomID:          somID,
		}, nil
	default:
		return nil, &DescriptorFormat{Reason: "exactly one of productPermanentAttribute or somId is required"}
	}
}

// parseDictionary reads "key: value" or "key=value" lines, one per line,
// ignoring blank lines and lines starting with '#'.
func parseDictionary(content string) (map[string]string, error) {
	fields := map[string]string{}
	for lineNo, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.IndexAny(line, ":=")
		if idx < 0 {
			return nil, &DescriptorFormat{Reason: fmt.Sprintf("line %d: not a key/value pair", lineNo+1)}
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" {
			return nil, &DescriptorFormat{Reason: fmt.Sprintf("line %d: empty key", lineNo+1)}
		}
		fields[key] = value
	}
	return fields, nil
}
