package gfx

import (
	"errors"
	"slices"
	"testing"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		name string
		want Backend
	}{
		{"", BackendAuto},
		{"auto", BackendAuto},
		{"Vulkan", BackendVulkan},
		{"metal", BackendMetal},
		{"DX12", BackendDX12},
		{" gl ", BackendGL},
		{"headless", BackendHeadless},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.name)
		if err != nil {
			t.Errorf("ParseBackend(%q) error: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBackend(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestParseBackend_Unknown(t *testing.T) {
	if _, err := ParseBackend("glide"); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	expectPanic(t, "MustParseBackend", func() { MustParseBackend("glide") })
	expectPanic(t, "WithBackendName", func() { WithBackendName("glide") })
}

func TestBackend_String(t *testing.T) {
	if got := BackendDX12.String(); got != "dx12" {
		t.Errorf("String() = %q, want dx12", got)
	}
	if got := Backend(42).String(); got != "Backend(42)" {
		t.Errorf("String() = %q, want Backend(42)", got)
	}
	if Backend(-1).Valid() || numBackends.Valid() {
		t.Error("out of range backends reported valid")
	}
}

func TestAvailableBackends_IncludesHeadless(t *testing.T) {
	if !slices.Contains(AvailableBackends(), BackendHeadless) {
		t.Fatalf("AvailableBackends() = %v, want headless present", AvailableBackends())
	}
}

func TestResolveBackend_Unregistered(t *testing.T) {
	// Test binaries link only the noop backend.
	if slices.Contains(AvailableBackends(), BackendMetal) {
		t.Skip("metal backend linked")
	}
	_, err := New(WithBackend(BackendMetal))
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("New(metal) error = %v, want ErrBackendUnavailable", err)
	}
}

func TestResolveBackend_InvalidPanics(t *testing.T) {
	expectPanic(t, "resolveBackend", func() { _, _, _ = resolveBackend(Backend(99)) })
}
