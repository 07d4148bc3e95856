package libvirt

import (
	"context"
	"testing"
	"time"
)

// TestConnect is an integration test that requires libvirt to be running.
func TestConnect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	c, err := Connect("", 0)
	if err != nil {
		t.Skipf("libvirt not available: %v", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}()

	if err := c.Ping(); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	version, err := c.Version()
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version == "" {
		t.Fatal("Expected a non-empty version string")
	}
}

func TestConnect_InvalidSocket(t *testing.T) {
	_, err := Connect("/nonexistent/socket", 100*time.Millisecond)
	if err == nil {
		t.Fatal("expected error connecting to nonexistent socket, got nil")
	}
}

func TestConnectWithContext_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ConnectWithContext(ctx, "", 0)
	if err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

func TestClose_Idempotent(t *testing.T) {
	c := &Client{libvirt: nil}

	if err := c.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestPing_Disconnected(t *testing.T) {
	c := &Client{libvirt: nil}

	if err := c.Ping(); err == nil {
		t.Fatal("expected error from Ping on nil client, got nil")
	}
}

func TestVersion_Disconnected(t *testing.T) {
	c := &Client{libvirt: nil}

	if _, err := c.Version(); err == nil {
		t.Fatal("expected error from Version on nil client, got nil")
	}
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		raw  uint64
		want string
	}{
		{10002000, "10.2.0"},
		{7000000, "7.0.0"},
		{11009003, "11.9.3"},
		{0, "0.0.0"},
	}
	for _, tt := range tests {
		if got := FormatVersion(tt.raw); got != tt.want {
			t.Errorf("FormatVersion(%d) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
