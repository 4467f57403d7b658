package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-engine/assetvfs/arc"
	"github.com/meridian-engine/assetvfs/internal/buildspec"
	"github.com/meridian-engine/assetvfs/manifest"
)

// minCompressSize is the size below which entries are stored uncompressed.
const minCompressSize = 512

func buildCommand() *command {
	var (
		defPath string
		jobs    int
	)
	return &command{
		name:    "build",
		summary: "Build package archives from a YAML build definition",
		usage:   "assetpack build [flags]",
		examples: []string{
			"assetpack build",
			"assetpack build -f tools/assetpack.yaml -j 4",
		},
		flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("build", pflag.ContinueOnError)
			fs.StringVarP(&defPath, "file", "f", "assetpack.yaml", "build definition file")
			fs.IntVarP(&jobs, "jobs", "j", 0, "concurrent package builds (0 = number of CPUs)")
			return fs
		},
		run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return runBuild(defPath, jobs)
		},
	}
}

func runBuild(defPath string, jobs int) error {
	spec, err := buildspec.Load(defPath)
	if err != nil {
		return err
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(jobs)
	for i := range spec.Packages {
		p := &spec.Packages[i]
		g.Go(func() error {
			if err := buildPackage(ctx, spec, p); err != nil {
				return fmt.Errorf("build %s: %w", p.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func buildPackage(ctx context.Context, spec *buildspec.Spec, p *buildspec.Package) error {
	algo, err := p.Algorithm()
	if err != nil {
		return err
	}
	outDir := spec.OutputDir(p.Name)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	var indexBuf bytes.Buffer
	if err := writeDataFile(ctx, spec.SourceDir(p), filepath.Join(outDir, "pack.dat"), &indexBuf, algo); err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(outDir, "pack.idx"), indexBuf.Bytes()); err != nil {
		return err
	}

	m := manifest.Manifest{
		Name:       p.Name,
		Archive:    &manifest.ArchiveRef{Index: "pack.idx", Data: "pack.dat"},
		References: p.References,
	}
	if p.SourceRoot != "" {
		// The manifest records the source tree relative to itself so the
		// built directory stays relocatable alongside it.
		rel, err := filepath.Rel(outDir, spec.Resolve(p.SourceRoot))
		if err != nil {
			return fmt.Errorf("source root %s: %w", p.SourceRoot, err)
		}
		m.SourceRoot = filepath.ToSlash(rel)
	}
	doc, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(outDir, manifest.DefaultFileName), append(doc, '\n')); err != nil {
		return err
	}

	idx, err := arc.LoadIndex(indexBuf.Bytes())
	if err != nil {
		return err
	}
	fmt.Printf("built %s: %d entries, %s data -> %s\n", p.Name, idx.Len(), formatSize(idx.DataSize()), outDir)
	return nil
}

// writeDataFile streams the archive data section through a temp file so an
// interrupted build never leaves a half-written archive at path.
func writeDataFile(ctx context.Context, srcDir, path string, indexW io.Writer, algo arc.Compression) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pack-*")
	if err != nil {
		return err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	bw := bufio.NewWriterSize(tmp, 1<<20)
	err = arc.Create(ctx, srcDir, indexW, bw,
		arc.CreateWithCompression(algo),
		arc.CreateWithSkipCompression(arc.DefaultSkipCompression(minCompressSize)),
	)
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func formatSize(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
