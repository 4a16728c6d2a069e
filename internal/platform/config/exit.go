package config

import (
	"fmt"
	"os"
)

// Exitf reports a fatal configuration error on stderr and exits with code 1.
// The gateway and release-tooling mains share it so flag and env failures
// read the same across binaries.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
