package cloudinit

import (
	"bytes"
	"fmt"

	"github.com/kdomanski/iso9660"
)

// GenerateISO renders the seed as a NoCloud ISO image.
//
// The image carries user-data, meta-data, and (when the seed declares
// static interfaces) network-config in the root directory, under the
// "CIDATA" volume label the NoCloud datasource requires.
//
// Returns the ISO image as a byte slice, ready to be written into the
// backend's image directory.
func (s *Seed) GenerateISO() ([]byte, error) {
	userData, err := s.GenerateUserData()
	if err != nil {
		return nil, err
	}

	metaData, err := s.GenerateMetaData()
	if err != nil {
		return nil, err
	}

	networkConfig, err := s.GenerateNetworkConfig()
	if err != nil {
		return nil, err
	}

	writer, err := iso9660.NewWriter()
	if err != nil {
		return nil, fmt.Errorf("failed to create ISO writer: %w", err)
	}
	defer func() {
		// Cleanup removes the writer's temporary staging files; a failure
		// here does not invalidate an image already written out.
		_ = writer.Cleanup()
	}()

	if err := writer.AddFile(bytes.NewReader([]byte(userData)), "user-data"); err != nil {
		return nil, fmt.Errorf("failed to add user-data: %w", err)
	}

	if err := writer.AddFile(bytes.NewReader([]byte(metaData)), "meta-data"); err != nil {
		return nil, fmt.Errorf("failed to add meta-data: %w", err)
	}

	if networkConfig != "" {
		if err := writer.AddFile(bytes.NewReader([]byte(networkConfig)), "network-config"); err != nil {
			return nil, fmt.Errorf("failed to add network-config: %w", err)
		}
	}

	var buf bytes.Buffer
	// The volume identifier must be the uppercase "CIDATA" per the
	// NoCloud specification.
	if err := writer.WriteTo(&buf, "CIDATA"); err != nil {
		return nil, fmt.Errorf("failed to write ISO image: %w", err)
	}

	return buf.Bytes(), nil
}
