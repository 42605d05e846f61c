package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml")))
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute(%v) failed: %v", args, err)
	}
	return out.String()
}

func TestThresholdCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"Reference point", []string{"threshold", "--temperature", "25"}, "450.00"},
		{"Interpolated", []string{"threshold", "--temperature", "22.5", "--reference", "100"}, "95.00"},
		{"Clamped cold", []string{"threshold", "--temperature=-10", "--reference", "100"}, "50.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.TrimSpace(execute(t, tt.args...))
			if got != tt.want {
				t.Errorf("threshold = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigCommandPrintsYAML(t *testing.T) {
	out := execute(t, "config")
	for _, key := range []string{"device_id: default", "reference_concentration: 450", "sensors: sim"} {
		if !strings.Contains(out, key) {
			t.Errorf("config output missing %q:\n%s", key, out)
		}
	}
}
