package main

import (
	"flag"
	"os"

	"github.com/veldtmaps/edge/internal/platform/config"
	"github.com/veldtmaps/edge/internal/tools/versiontoken"
)

func main() {
	cfg, err := versiontoken.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := versiontoken.Run(cfg, os.Stdout); err != nil {
		config.Exitf("derive version token: %v", err)
	}
}
