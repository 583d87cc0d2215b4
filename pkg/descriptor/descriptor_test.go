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

package descriptor

import (
	"encoding/base64"
	"strings"
	"testing"
)

func validProductDescriptor() string {
	permAttr := make([]byte, permanentAttributeLen)
	for i := range permAttr {
		permAttr[i] = byte(i)
	}
	vbootKey := []byte("vboot-key-bytes")
	var b strings.Builder
	b.WriteString("productName: widget\n")
	b.WriteString("productPermanentAttribute: " + base64.StdEncoding.EncodeToString(permAttr) + "\n")
	b.WriteString("bootloaderPublicKey: " + base64.StdEncoding.EncodeToString(vbootKey) + "\n")
	return b.String()
}

func TestParseProductDescriptor(t *testing.T) {
	d, err := Parse(validProductDescriptor())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if d.Mode != ModeProduct {
		t.Errorf("Mode = %v, want ModeProduct", d.Mode)
	}
	if len(d.ProductID) != 32 {
		t.Errorf("ProductID = %q, want 32 hex chars", d.ProductID)
	}
	wantTail := []byte{}
	for i := permanentAttributeLen - 16; i < permanentAttributeLen; i++ {
		wantTail = append(wantTail, byte(i))
	}
	if got := d.ProductID; got != hexEncode(wantTail) {
		t.Errorf("ProductID = %s, want derived from last 16 bytes", got)
	}
}

func hexEncode(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0xf]
	}
	return string(out)
}

func TestParseSomDescriptor(t *testing.T) {
	content := "productName: widget-som\n" +
		"somId: SOM123\n" +
		"bootloaderPublicKey: " + base64.StdEncoding.EncodeToString([]byte("key")) + "\n"
	d, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !d.IsSom() || d.SomID != "SOM123" {
		t.Errorf("got %+v, want SoM descriptor with SomID=SOM123", d)
	}
}

func TestParseRejectsBothModes(t *testing.T) {
	content := validProductDescriptor() + "somId: SOM1\n"
	_, err := Parse(content)
	if _, ok := err.(*DescriptorFormat); !ok {
		t.Fatalf("err = %v, want *DescriptorFormat", err)
	}
}

func TestParseRejectsWrongAttributeLength(t *testing.T) {
	content := "productName: widget\n" +
		"productPermanentAttribute: " + base64.StdEncoding.EncodeToString([]byte("too-short")) + "\n" +
		"bootloaderPublicKey: " + base64.StdEncoding.EncodeToString([]byte("key")) + "\n"
	_, err := Parse(content)
	df, ok := err.(*DescriptorFormat)
	if !ok {
		t.Fatalf("err = %v, want *DescriptorFormat", err)
	}
	if !strings.Contains(df.Reason, "length") {
		t.Errorf("Reason = %q, want length complaint", df.Reason)
	}
}

func TestParseRejectsNeitherMode(t *testing.T) {
	content := "productName: widget\n" +
		"bootloaderPublicKey: " + base64.StdEncoding.EncodeToString([]byte("key")) + "\n"
	_, err := Parse(content)
	if _, ok := err.(*DescriptorFormat); !ok {
		t.Fatalf("err = %v, want *DescriptorFormat", err)
	}
}
