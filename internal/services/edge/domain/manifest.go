package domain

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// Manifest describes one release of the delivered client application: the
// shell resources required for offline bootstrap, the external resources
// pre-populated at install, and the classification tokens.
type Manifest struct {
	// Version is the release token embedded in partition names.
	Version string `json:"version"`
	// Shell lists root-relative paths; every entry must resolve during
	// install or the install fails.
	Shell []string `json:"shell"`
	// External lists absolute URLs fetched with credentials during
	// install; same all-or-nothing contract.
	External []string `json:"external"`
	// TileTokens are substrings that mark a host or path as tile-serving.
	TileTokens []string `json:"tile_tokens"`
	// APITokens are substrings that mark a host as a geocoding/API host.
	APITokens []string `json:"api_tokens"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (Manifest, error) {
	if strings.TrimSpace(path) == "" {
		return Manifest{}, fmt.Errorf("manifest path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	return ParseManifest(f)
}

// ParseManifest decodes and validates a manifest document.
func ParseManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks version and entry shape. Shell entries must be
// root-relative, external entries absolute.
func (m Manifest) Validate() error {
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("manifest version is required")
	}
	if len(m.Shell) == 0 {
		return fmt.Errorf("manifest shell list is empty")
	}
	for _, path := range m.Shell {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("shell entry %q is not root-relative", path)
		}
	}
	for _, raw := range m.External {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("external entry %q is not an absolute URL", raw)
		}
	}
	return nil
}
