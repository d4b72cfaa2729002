package server

import (
	"testing"
)

func TestNewLeavesCallerConfigUntouched(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrustedProxies = []string{"10.0.0.0/8"}

	s := New(nil, cfg, nil)

	if cfg.CheckOrigin != nil {
		t.Error("New set CheckOrigin on the caller's config")
	}
	if s.config.CheckOrigin == nil {
		t.Error("server config did not get the default origin check")
	}

	// The server holds a copy: later caller edits must not leak in.
	cfg.Address = ":0"
	cfg.TrustedProxies[0] = "changed"
	if s.config.Address == ":0" {
		t.Error("server shares Address with the caller's config")
	}
	if s.config.TrustedProxies[0] == "changed" {
		t.Error("server shares the TrustedProxies slice with the caller's config")
	}
}
