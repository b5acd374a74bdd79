package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/archive-runtime/archive"
)

// runExtract recreates the archive's members under opts.dest. Payload
// blocks are written at their offsets, so holes in sparse members stay
// holes.
func runExtract(opts *options, logger *zap.Logger) error {
	path, err := archiveArg(opts)
	if err != nil {
		return err
	}

	s, err := openArchive(opts.profile, path)
	if err != nil {
		return err
	}
	defer s.Close()

	for e, err := range s.Headers() {
		if err != nil {
			return err
		}
		target, err := safeJoin(opts.dest, e.Pathname())
		if err != nil {
			return err
		}
		if err := prepareTarget(opts.dest, target); err != nil {
			return err
		}
		if err := extractMember(s, e, opts.dest, target, logger); err != nil {
			return fmt.Errorf("%s: %w", e.Pathname(), err)
		}
		logger.Debug("extracted", zap.String("path", e.Pathname()), zap.String("type", e.Filetype().String()))
	}
	return s.Close()
}

func extractMember(s *archive.ReadSession, e *archive.Entry, dest, target string, logger *zap.Logger) error {
	perm := os.FileMode(e.Perm() & 0o777)

	switch e.Filetype() {
	case archive.TypeDir:
		if err := os.MkdirAll(target, perm|0o700); err != nil {
			return err
		}
	case archive.TypeRegular:
		if link := e.Hardlink(); link != "" {
			source, err := safeJoin(dest, link)
			if err != nil {
				return err
			}
			if err := checkParents(dest, source); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			return os.Link(source, target)
		}
		if err := writeFile(s, e, target, perm); err != nil {
			return err
		}
	case archive.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.Symlink(e.Symlink(), target)
	default:
		logger.Warn("skipping unsupported member type",
			zap.String("path", e.Pathname()),
			zap.String("type", e.Filetype().String()))
		return nil
	}

	if mtime := e.Mtime(); !mtime.IsZero() {
		return os.Chtimes(target, mtime, mtime)
	}
	return nil
}

func writeFile(s *archive.ReadSession, e *archive.Entry, target string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer f.Close()

	for {
		blk, err := s.Data()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if _, err := f.WriteAt(blk.Data, blk.Offset); err != nil {
			return err
		}
	}
	// A trailing hole is not covered by any block.
	if size, ok := e.Size(); ok {
		if err := f.Truncate(size); err != nil {
			return err
		}
	}
	return f.Close()
}

// safeJoin resolves name under dest, refusing names that escape it.
func safeJoin(dest, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("refusing to extract %q outside the destination", name)
	}
	return filepath.Join(dest, clean), nil
}

// prepareTarget makes target safe to create: no directory between dest and
// target may be a symlink, and a symlink already at target is removed so
// the new member replaces it instead of writing through it.
func prepareTarget(dest, target string) error {
	if filepath.Clean(target) == filepath.Clean(dest) {
		return nil
	}
	if err := checkParents(dest, target); err != nil {
		return err
	}
	fi, err := os.Lstat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if fi.Mode()&fs.ModeSymlink != 0 {
		return os.Remove(target)
	}
	return nil
}

// checkParents refuses paths whose parent directories under dest include a
// symlink, which an earlier member could have pointed anywhere.
func checkParents(dest, target string) error {
	rel, err := filepath.Rel(dest, filepath.Dir(target))
	if err != nil {
		return err
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	cur := dest
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		fi, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if fi.Mode()&fs.ModeSymlink != 0 {
			return fmt.Errorf("refusing to extract %q through symlink %q", target, cur)
		}
	}
	return nil
}
