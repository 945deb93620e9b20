// Copyright 2026 The TagTagTag Ears Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "earsconfig")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	p := filepath.Join(dir, "ears.yaml")
	if err := ioutil.WriteFile(p, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad(t *testing.T) {
	p := writeFile(t, `
left:
  encoder: GPIO17
  socket: /tmp/left.sock
right:
  socket: /tmp/right.sock
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	want := Default
	want.Left.Encoder = "GPIO17"
	want.Left.Socket = "/tmp/left.sock"
	want.Right.Socket = "/tmp/right.sock"
	if diff := cmp.Diff(*c, want); diff != "" {
		t.Errorf("Load() difference (-got +want):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/ears.yaml"); err == nil {
		t.Fatal("Load() of a missing file should fail")
	}
}

func TestLoadBadYAML(t *testing.T) {
	p := writeFile(t, "left: [")
	if _, err := Load(p); err == nil {
		t.Fatal("Load() of invalid YAML should fail")
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"stock wiring", func(c *Config) {}, ""},
		{
			"missing encoder",
			func(c *Config) { c.Right.Encoder = "" },
			"encoder is required",
		},
		{
			"shared pin",
			func(c *Config) { c.Right.Encoder = c.Left.MotorForward },
			"already used",
		},
		{
			"shared socket",
			func(c *Config) { c.Right.Socket = c.Left.Socket },
			"already used",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := Default
			tc.mutate(&c)
			err := Validate(&c)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() = %v, want %q", err, tc.wantErr)
			}
		})
	}
}
