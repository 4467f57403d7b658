package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/meridian-engine/assetvfs/arc"
	"github.com/meridian-engine/assetvfs/codec"
	"github.com/meridian-engine/assetvfs/manifest"
)

func inspectCommand() *command {
	var (
		prefix string
		show   string
	)
	return &command{
		name:    "inspect",
		summary: "List the contents of a built package archive",
		usage:   "assetpack inspect <package-dir> [flags]",
		examples: []string{
			"assetpack inspect dist/basepack",
			"assetpack inspect dist/basepack --prefix textures/",
			"assetpack inspect dist/basepack --show materials/gold.mat",
		},
		flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			fs.StringVar(&prefix, "prefix", "", "only list entries under this path prefix")
			fs.StringVar(&show, "show", "", "print one entry's payload details instead of the listing")
			return fs
		},
		run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one package directory")
			}
			return runInspect(args[0], prefix, show)
		},
	}
}

// openArchive resolves a package directory to its manifest and opens the
// backing archive.
func openArchive(dir string) (*arc.Archive, *manifest.Manifest, error) {
	m, err := manifest.ParseFile(dir)
	if err != nil {
		return nil, nil, err
	}
	if m.Archive == nil {
		return nil, nil, fmt.Errorf("%s: package is not archive-backed", m.Name)
	}
	a, err := arc.Open(
		filepath.Join(m.Dir, filepath.FromSlash(m.Archive.Index)),
		filepath.Join(m.Dir, filepath.FromSlash(m.Archive.Data)),
	)
	if err != nil {
		return nil, nil, err
	}
	return a, m, nil
}

func runInspect(dir, prefix, show string) error {
	a, m, err := openArchive(dir)
	if err != nil {
		return err
	}
	defer a.Close()

	if show != "" {
		return showEntry(a, show)
	}

	idx := a.Index()
	entries := idx.Entries()
	if prefix != "" {
		entries = idx.EntriesWithPrefix(prefix)
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tSIZE\tSTORED\tCOMP\tHASH")
	var count int
	var stored, original uint64
	for e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Path, formatSize(e.OriginalSize), formatSize(e.DataSize), e.Compression, shortHash(e.Hash))
		count++
		stored += e.DataSize
		original += e.OriginalSize
	}
	tw.Flush()

	fmt.Printf("\n%s: %d entries, %s stored (%s original)\n", m.Name, count, formatSize(stored), formatSize(original))
	if d := idx.DataDigest(); d != "" {
		fmt.Printf("data digest: %s\n", d)
	}
	return nil
}

// showEntry prints one entry's metadata and, for sealed blobs, the decoded
// header and a CBOR diagnostic rendering of the payload.
func showEntry(a *arc.Archive, path string) error {
	entry, ok := a.Stat(path)
	if !ok {
		return fmt.Errorf("no entry %q in archive", path)
	}
	payload, err := a.ReadFile(path)
	if err != nil {
		return err
	}

	fmt.Printf("path: %s\n", entry.Path)
	fmt.Printf("size: %s (%s stored, %s)\n",
		formatSize(entry.OriginalSize), formatSize(entry.DataSize), entry.Compression)
	fmt.Printf("modified: %s\n", entry.ModTime.UTC().Format(time.RFC3339))
	fmt.Printf("hash: %s\n", hex.EncodeToString(entry.Hash))

	h, err := codec.DecodeHeader(payload)
	if err != nil {
		fmt.Println("format: raw")
		return nil
	}
	fmt.Printf("format: sealed, type %d, version %d, %s payload\n", h.Type, h.Version, formatSize(uint64(h.Size)))

	body := payload[codec.HeaderSize:]
	if uint64(len(body)) < uint64(h.Size) {
		fmt.Println("payload: truncated")
		return nil
	}
	body = body[:h.Size]
	diag, err := codec.Diagnose(body)
	if err != nil {
		fmt.Println("payload: not CBOR")
		return nil
	}
	fmt.Printf("payload: %s\n", diag)
	return nil
}

func shortHash(h []byte) string {
	if len(h) == 0 {
		return "-"
	}
	s := hex.EncodeToString(h)
	if len(s) > 12 {
		s = s[:12]
	}
	return s
}
