// Package versiontoken derives a release version token from a delivery
// manifest, so a content change always produces a new partition set.
package versiontoken

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/veldtmaps/edge/internal/services/edge/domain"
)

// Config holds configuration for version token generation.
type Config struct {
	ManifestPath string
	HashLength   int
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{ManifestPath: "manifest.json", HashLength: 12}
	fs.StringVar(&cfg.ManifestPath, "manifest", cfg.ManifestPath, "path to the delivery manifest")
	fs.IntVar(&cfg.HashLength, "hash-length", cfg.HashLength, "hex characters of the manifest hash to keep (default: 12)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run derives the token and writes it to out.
func Run(cfg Config, out io.Writer) error {
	if cfg.HashLength <= 0 || cfg.HashLength > sha256.Size*2 {
		return fmt.Errorf("hash length must be between 1 and %d", sha256.Size*2)
	}
	if out == nil {
		return errors.New("output is required")
	}

	raw, err := os.ReadFile(cfg.ManifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	// Reject malformed manifests before stamping them into a release.
	manifest, err := domain.LoadManifest(cfg.ManifestPath)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(raw)
	token := fmt.Sprintf("%s-%s", manifest.Version, hex.EncodeToString(sum[:])[:cfg.HashLength])
	_, err = fmt.Fprintf(out, "VELDT_EDGE_VERSION=%s\n", token)
	return err
}
