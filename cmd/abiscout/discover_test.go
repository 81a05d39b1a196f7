package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestDiscoverRejectsConflictingStrategies(t *testing.T) {
	defer func() {
		flagGetters = ""
		flagProxy = false
		flagNetwork = ""
	}()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{
		"discover",
		"--network", "mainnet",
		"--getters", "vault",
		"--proxy",
		"0x1000000000000000000000000000000000000001",
	})

	err := rootCmd.Execute()
	if err == nil {
		t.Fatalf("expected --getters with --proxy to fail")
	}
	if !strings.Contains(err.Error(), "mutually exclusive") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSplitGetters(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"vault", []string{"vault"}},
		{"vault, oracle ,router", []string{"vault", "oracle", "router"}},
		{" , ,", nil},
	}
	for _, tt := range tests {
		got := splitGetters(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("splitGetters(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("splitGetters(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}
