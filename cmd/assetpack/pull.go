package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/meridian-engine/assetvfs/dist"
)

func pullCommand() *command {
	var params targetParams
	return &command{
		name:    "pull",
		summary: "Pull a package from an OCI registry or layout into a directory",
		usage:   "assetpack pull <ref> <dest-dir> [flags]",
		examples: []string{
			"assetpack pull registry.example.com/game/basepack:v3 packs/basepack",
			"assetpack pull v3 packs/basepack --layout ./packs.oci",
		},
		flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("pull", pflag.ContinueOnError)
			params.register(fs)
			return fs
		},
		run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <ref> and <dest-dir>")
			}
			return runPull(args[0], args[1], &params)
		},
	}
}

func runPull(ref, destDir string, params *targetParams) error {
	src, tag, err := openTarget(ref, params)
	if err != nil {
		return err
	}

	m, err := dist.Pull(context.Background(), src, tag, destDir, dist.PullWithLogger(newLogger(params.verbose)))
	if err != nil {
		return err
	}
	fmt.Printf("pulled %s into %s\n", m.Name, destDir)
	return nil
}
