package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

func verifyCommand() *command {
	return &command{
		name:    "verify",
		summary: "Verify archive integrity for built packages",
		usage:   "assetpack verify <package-dir>...",
		examples: []string{
			"assetpack verify dist/basepack",
			"assetpack verify dist/*",
		},
		run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("expected at least one package directory")
			}
			return runVerify(args)
		},
	}
}

func runVerify(dirs []string) error {
	ctx := context.Background()
	var errs []error
	for _, dir := range dirs {
		if err := verifyPackage(ctx, dir); err != nil {
			fmt.Printf("FAIL %s: %v\n", dir, err)
			errs = append(errs, fmt.Errorf("%s: %w", dir, err))
		}
	}
	return errors.Join(errs...)
}

func verifyPackage(ctx context.Context, dir string) error {
	a, m, err := openArchive(dir)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Verify(ctx); err != nil {
		return err
	}

	fp, err := dataFingerprint(filepath.Join(m.Dir, filepath.FromSlash(m.Archive.Data)))
	if err != nil {
		return err
	}
	fmt.Printf("ok %s: %d entries, %s data, blake3 %s\n",
		m.Name, a.Len(), formatSize(a.Index().DataSize()), fp)
	return nil
}

// dataFingerprint hashes the data section with blake3 for quick
// cross-machine comparison of build outputs. The recorded digest checked
// by Verify stays authoritative.
func dataFingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil))[:16], nil
}
