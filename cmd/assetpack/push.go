package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/registry"

	"github.com/meridian-engine/assetvfs/dist"
)

// targetParams are the connection flags shared by push and pull.
type targetParams struct {
	layout    string
	plainHTTP bool
	username  string
	password  string
	verbose   bool
}

func (p *targetParams) register(fs *pflag.FlagSet) {
	fs.StringVar(&p.layout, "layout", "", "use a local OCI layout directory instead of a registry; <ref> is then just the tag")
	fs.BoolVar(&p.plainHTTP, "plain-http", false, "use HTTP for the registry connection")
	fs.StringVar(&p.username, "username", "", "registry username")
	fs.StringVar(&p.password, "password", "", "registry password")
	fs.BoolVarP(&p.verbose, "verbose", "v", false, "log library detail to stderr")
}

// openTarget resolves ref to an ORAS target and the tag to act on. With a
// layout directory, ref is the bare tag; otherwise it is a repository
// reference like "registry.example.com/game/basepack:v3".
func openTarget(ref string, p *targetParams) (oras.Target, string, error) {
	if p.layout != "" {
		store, err := oci.New(p.layout)
		if err != nil {
			return nil, "", err
		}
		return store, ref, nil
	}

	parsed, err := registry.ParseReference(ref)
	if err != nil {
		return nil, "", fmt.Errorf("parse reference %q: %w", ref, err)
	}
	tag := parsed.Reference
	if tag == "" {
		tag = "latest"
	}

	var opts []dist.RepositoryOption
	if p.plainHTTP {
		opts = append(opts, dist.WithPlainHTTP())
	}
	if p.username != "" || p.password != "" {
		opts = append(opts, dist.WithCredential(p.username, p.password))
	}
	repo, err := dist.NewRepository(parsed.Registry+"/"+parsed.Repository, opts...)
	if err != nil {
		return nil, "", err
	}
	return repo, tag, nil
}

func pushCommand() *command {
	var (
		params    targetParams
		extraTags []string
	)
	return &command{
		name:    "push",
		summary: "Push a built package to an OCI registry or layout",
		usage:   "assetpack push <package-dir> <ref> [flags]",
		examples: []string{
			"assetpack push dist/basepack registry.example.com/game/basepack:v3",
			"assetpack push dist/basepack v3 --layout ./packs.oci",
			"assetpack push dist/basepack localhost:5000/dev/basepack:v3 --plain-http --tag latest",
		},
		flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("push", pflag.ContinueOnError)
			params.register(fs)
			fs.StringArrayVar(&extraTags, "tag", nil, "additional tag to apply (repeatable)")
			return fs
		},
		run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <package-dir> and <ref>")
			}
			return runPush(args[0], args[1], &params, extraTags)
		},
	}
}

func runPush(dir, ref string, params *targetParams, extraTags []string) error {
	dst, tag, err := openTarget(ref, params)
	if err != nil {
		return err
	}

	opts := []dist.PushOption{dist.PushWithLogger(newLogger(params.verbose))}
	if len(extraTags) > 0 {
		opts = append(opts, dist.PushWithTags(extraTags...))
	}

	desc, err := dist.Push(context.Background(), dst, tag, dir, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("pushed %s (%s)\n", ref, desc.Digest)
	return nil
}
