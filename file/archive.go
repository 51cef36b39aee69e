package file

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/gzip"

	"github.com/mensylisir/xmsync/common"
	"github.com/mensylisir/xmsync/exclude"
)

// TarOptions controls which paths Tar includes.
type TarOptions struct {
	// Matcher excludes paths; nil includes everything.
	Matcher *exclude.Matcher
	// Visit, when set, is called for every path the walk reaches, before the
	// exclusion decision. Paths under a pruned directory are never visited.
	Visit func(rel string, excluded bool)
}

// TarStats summarizes a finished archive.
type TarStats struct {
	Files   int
	Dirs    int
	Links   int
	Bytes   int64
	Entries []string
}

// Tar writes a gzip-compressed tarball of srcDir to dstTarball. Entry names
// are slash-separated paths relative to srcDir. Excluded directories are
// pruned before the walk descends into them. If dstTarball lives inside
// srcDir it is skipped.
func Tar(srcDir, dstTarball string, opts TarOptions) (stats *TarStats, err error) {
	srcDir, err = filepath.Abs(srcDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source %s: %w", srcDir, err)
	}
	if ok, statErr := IsDir(srcDir); statErr != nil || !ok {
		return nil, fmt.Errorf("source %s is not a readable directory", srcDir)
	}
	dstAbs, err := filepath.Abs(dstTarball)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination %s: %w", dstTarball, err)
	}

	fw, err := os.OpenFile(dstAbs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, common.FileMode0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination tarball %s: %w", dstTarball, err)
	}
	gw := gzip.NewWriter(fw)
	tw := tar.NewWriter(gw)

	defer func() {
		var result *multierror.Error
		if err != nil {
			result = multierror.Append(result, err)
		}
		if cerr := tw.Close(); cerr != nil {
			result = multierror.Append(result, fmt.Errorf("failed to finish tar stream: %w", cerr))
		}
		if cerr := gw.Close(); cerr != nil {
			result = multierror.Append(result, fmt.Errorf("failed to finish gzip stream: %w", cerr))
		}
		if cerr := fw.Close(); cerr != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close %s: %w", dstTarball, cerr))
		}
		err = result.ErrorOrNil()
		if err != nil {
			stats = nil
			_ = os.Remove(dstAbs)
		}
	}()

	stats = &TarStats{}
	walkErr := filepath.WalkDir(srcDir, func(current string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("error accessing path %s during tar: %w", current, walkErr)
		}
		if current == srcDir {
			return nil
		}
		if current == dstAbs {
			return nil
		}

		rel, relErr := filepath.Rel(srcDir, current)
		if relErr != nil {
			return fmt.Errorf("failed to calculate relative path for %s: %w", current, relErr)
		}
		rel = filepath.ToSlash(rel)

		excluded := opts.Matcher != nil && opts.Matcher.Excluded(rel)
		if opts.Visit != nil {
			opts.Visit(rel, excluded)
		}
		if excluded {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		return addEntry(tw, current, rel, d, stats)
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return stats, nil
}

func addEntry(tw *tar.Writer, current, rel string, d fs.DirEntry, stats *TarStats) error {
	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("failed to get FileInfo for %s: %w", current, err)
	}

	link := ""
	if d.Type()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(current); err != nil {
			return fmt.Errorf("failed to read symlink %s: %w", current, err)
		}
	} else if !d.IsDir() && !d.Type().IsRegular() {
		// sockets, devices and fifos have no place in a source tree
		return nil
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("failed to create tar header for %s: %w", current, err)
	}
	hdr.Name = rel
	if d.IsDir() {
		hdr.Name += "/"
	}
	hdr.Uname, hdr.Gname = "", ""

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", current, err)
	}
	stats.Entries = append(stats.Entries, rel)

	switch {
	case d.IsDir():
		stats.Dirs++
	case link != "":
		stats.Links++
	default:
		f, err := os.Open(current)
		if err != nil {
			return fmt.Errorf("failed to open file %s for tarring: %w", current, err)
		}
		n, err := io.Copy(tw, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to copy content of %s to tar archive: %w", current, err)
		}
		stats.Files++
		stats.Bytes += n
	}
	return nil
}

// ListFiles returns the regular files and symlinks Tar would include, sorted.
func ListFiles(srcDir string, m *exclude.Matcher) ([]string, error) {
	var files []string
	err := filepath.WalkDir(srcDir, func(current string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if current == srcDir {
			return nil
		}
		rel, err := filepath.Rel(srcDir, current)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if m.Excluded(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", srcDir, err)
	}
	sort.Strings(files)
	return files, nil
}

// Untar extracts a gzipped tarball into dstDir, refusing entries that would
// land outside it.
func Untar(srcTarball, dstDir string) error {
	fr, err := os.Open(srcTarball)
	if err != nil {
		return fmt.Errorf("failed to open source tarball %s: %w", srcTarball, err)
	}
	defer fr.Close()

	gr, err := gzip.NewReader(fr)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader for %s: %w", srcTarball, err)
	}
	defer gr.Close()

	dstDir, err = filepath.Abs(dstDir)
	if err != nil {
		return err
	}

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading tar header from %s: %w", srcTarball, err)
		}

		target := filepath.Join(dstDir, filepath.FromSlash(hdr.Name))
		if !within(dstDir, target) {
			return fmt.Errorf("invalid tar entry path: %s (potential zip slip attack)", hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, fs.FileMode(hdr.Mode)|0700); err != nil {
				return fmt.Errorf("failed to create directory %s from tar: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), common.FileMode0755); err != nil {
				return fmt.Errorf("failed to create parent directory for %s: %w", target, err)
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(hdr.Mode))
			if err != nil {
				return fmt.Errorf("failed to create file %s from tar: %w", target, err)
			}
			_, copyErr := io.Copy(f, tr)
			closeErr := f.Close()
			if copyErr != nil {
				return fmt.Errorf("failed to write content to file %s from tar: %w", target, copyErr)
			}
			if closeErr != nil {
				return closeErr
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), common.FileMode0755); err != nil {
				return fmt.Errorf("failed to create parent directory for symlink %s: %w", target, err)
			}
			if err := RemoveIfExists(target); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return fmt.Errorf("failed to create symlink %s -> %s from tar: %w", target, hdr.Linkname, err)
			}
		}
	}
}
