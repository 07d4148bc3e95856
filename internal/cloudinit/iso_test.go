package cloudinit

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/kdomanski/iso9660"
)

func TestGenerateISO(t *testing.T) {
	seed := &Seed{
		Hostname:   "web",
		InstanceID: "abc-123",
		Commands:   []string{"apt-get update"},
		Interfaces: []Interface{
			{Address: "10.55.22.22/24", MACAddress: "be:ef:0a:37:16:16"},
		},
	}

	isoBytes, err := seed.GenerateISO()
	if err != nil {
		t.Fatalf("GenerateISO failed: %v", err)
	}
	if len(isoBytes) == 0 {
		t.Fatal("GenerateISO returned an empty image")
	}

	files := readISO(t, isoBytes)

	userData, ok := files["user-data"]
	if !ok {
		t.Fatal("Expected user-data in the image")
	}
	if !strings.HasPrefix(userData, "#cloud-config\n") {
		t.Errorf("Expected #cloud-config header, got:\n%s", userData)
	}
	if !strings.Contains(userData, "apt-get update") {
		t.Errorf("Expected runcmd entry in user-data, got:\n%s", userData)
	}

	metaData, ok := files["meta-data"]
	if !ok {
		t.Fatal("Expected meta-data in the image")
	}
	if !strings.Contains(metaData, "instance-id: abc-123") {
		t.Errorf("Expected instance-id in meta-data, got:\n%s", metaData)
	}

	networkConfig, ok := files["network-config"]
	if !ok {
		t.Fatal("Expected network-config in the image")
	}
	if !strings.Contains(networkConfig, "be:ef:0a:37:16:16") {
		t.Errorf("Expected MAC in network-config, got:\n%s", networkConfig)
	}
}

func TestGenerateISO_NoNetworkConfig(t *testing.T) {
	seed := &Seed{Hostname: "web", InstanceID: "abc-123"}

	isoBytes, err := seed.GenerateISO()
	if err != nil {
		t.Fatalf("GenerateISO failed: %v", err)
	}

	files := readISO(t, isoBytes)
	if _, ok := files["network-config"]; ok {
		t.Error("Expected network-config omitted without static interfaces")
	}
	if _, ok := files["user-data"]; !ok {
		t.Error("Expected user-data in the image")
	}
	if _, ok := files["meta-data"]; !ok {
		t.Error("Expected meta-data in the image")
	}
}

// readISO opens a generated image, verifies the CIDATA label, and returns
// the root directory files keyed by name.
func readISO(t *testing.T, isoBytes []byte) map[string]string {
	t.Helper()

	img, err := iso9660.OpenImage(bytes.NewReader(isoBytes))
	if err != nil {
		t.Fatalf("failed to open ISO image: %v", err)
	}

	label, err := img.Label()
	if err != nil {
		t.Fatalf("failed to get volume label: %v", err)
	}
	if label != "CIDATA" {
		t.Errorf("ISO volume label = %q, want CIDATA", label)
	}

	rootDir, err := img.RootDir()
	if err != nil {
		t.Fatalf("failed to get root directory: %v", err)
	}
	children, err := rootDir.GetChildren()
	if err != nil {
		t.Fatalf("failed to list root directory: %v", err)
	}

	files := make(map[string]string, len(children))
	for _, child := range children {
		if child.IsDir() {
			continue
		}
		content, err := io.ReadAll(child.Reader())
		if err != nil {
			t.Fatalf("failed to read %s: %v", child.Name(), err)
		}
		files[child.Name()] = string(content)
	}
	return files
}
