// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package device

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const spdxLine = "// SPDX-License-Identifier: BSD-3-Clause"

// TestLicenseHeaders checks every source file of the compute layer.
func TestLicenseHeaders(t *testing.T) {
	dirs := []string{".", "../internal/kernel", "../internal/gpu", "../internal/software", "../internal/pipeline"}
	for _, dir := range dirs {
		files, err := filepath.Glob(filepath.Join(dir, "*.go"))
		if err != nil {
			t.Fatal(err)
		}
		if len(files) == 0 {
			t.Errorf("no sources in %s", dir)
		}
		for _, name := range files {
			if !hasHeader(t, name) {
				t.Errorf("%s: missing %q in the first lines", name, spdxLine)
			}
		}
	}
}

func hasHeader(t *testing.T, name string) bool {
	t.Helper()
	f, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for i := 0; i < 5 && sc.Scan(); i++ {
		if strings.TrimSpace(sc.Text()) == spdxLine {
			return true
		}
	}
	return false
}
