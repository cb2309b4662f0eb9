// Package walker enumerates a root directory into the entries a build
// embeds, filtering by glob and deciding, per file, whether its content
// should be embedded inline or stored externally via blobstore.
package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sys/unix"

	"github.com/wahtml/wahtml/internal/blobstore"
	"github.com/wahtml/wahtml/polytar"
)

// Options configures a walk.
type Options struct {
	// Include/Exclude are doublestar glob patterns matched against each
	// file's slash-separated path relative to the root. A file matches
	// when it satisfies at least one Include pattern (all files match if
	// Include is empty) and no Exclude pattern.
	Include []string
	Exclude []string

	// ExternalThreshold is the content size, in bytes, above which a
	// file is stored in blobs and embedded as an External reference
	// rather than inline. A threshold of zero or less, or a nil Blobs,
	// embeds every file inline.
	ExternalThreshold int64

	Blobs *blobstore.Store
}

// Walk enumerates root, returning one Item per matched regular file.
func Walk(root string, opts Options) ([]Item, error) {
	if err := checkFreeSpace(root); err != nil {
		return nil, err
	}

	fsys := os.DirFS(root)
	var items []Item

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !matches(p, opts.Include, opts.Exclude) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("walker: stat %s: %w", p, err)
		}

		name, err := polytar.NewHTMLAttributeSafeName(path.Base(p))
		if err != nil {
			return fmt.Errorf("walker: %s: %w", p, err)
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("walker: read %s: %w", p, err)
		}

		mtime := info.ModTime()
		attrs := polytar.EntryAttributes{Mtime: &mtime}

		if opts.ExternalThreshold > 0 && int64(len(data)) > opts.ExternalThreshold && opts.Blobs != nil {
			hash, err := opts.Blobs.Put(data)
			if err != nil {
				return fmt.Errorf("walker: store %s: %w", p, err)
			}
			items = append(items, Item{Path: p, External: &polytar.External{
				Entry:     polytar.Entry{Name: name, Attributes: attrs},
				RealSize:  uint64(len(data)),
				Reference: hash,
			}})
			return nil
		}

		items = append(items, Item{Path: p, Entry: &polytar.Entry{
			Name:       name,
			Data:       data,
			Attributes: attrs,
		}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Item is one file Walk found: its path relative to root, and either an
// inline Entry or an External reference, never both.
type Item struct {
	Path     string
	Entry    *polytar.Entry
	External *polytar.External
}

func matches(p string, include, exclude []string) bool {
	for _, pat := range exclude {
		if doublestar.MatchUnvalidated(pat, p) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pat := range include {
		if doublestar.MatchUnvalidated(pat, p) {
			return true
		}
	}
	return false
}

// checkFreeSpace guards against starting a walk over a filesystem with no
// room left to stage the artifact being assembled.
func checkFreeSpace(root string) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(root, &stat); err != nil {
		return fmt.Errorf("walker: statfs %s: %w", root, err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	const minFreeBytes = 16 << 20
	if free < minFreeBytes {
		return fmt.Errorf("walker: %s has only %d bytes free, need at least %d", root, free, minFreeBytes)
	}
	return nil
}
