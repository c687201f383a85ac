package namespace

import (
	"errors"
	"path"
)

// Positions 0 and 1 are "." and "..".
const dotEntries = 2

// ErrSkipDir may be returned by a WalkFunc to skip the directory it was called on.
var ErrSkipDir = errors.New("skip this directory")

// Iterate lists dir starting at position start: "." at 0, ".." at 1, then the
// entries in insertion order. The listing is a snapshot taken under the
// directory lock; entries added or removed afterwards are not reflected, and a
// paged caller may see an entry twice or miss one if the directory changes
// between pages.
func (ns *Namespace) Iterate(dir Ino, start uint64) ([]Entry, error) {
	inode, err := ns.dir(dir)
	if err != nil {
		return nil, err
	}

	inode.mu.Lock()
	if inode.removed {
		inode.mu.Unlock()
		return nil, ErrNotFound
	}
	snapshot := make([]Dentry, len(inode.entries))
	copy(snapshot, inode.entries)
	inode.mu.Unlock()

	total := uint64(len(snapshot)) + dotEntries
	if start >= total {
		return []Entry{}, nil
	}

	out := make([]Entry, 0, total-start)
	for pos := start; pos < total; pos++ {
		switch pos {
		case 0:
			out = append(out, Entry{Name: ".", Ino: inode.no, Kind: KindDir, Pos: 0})
		case 1:
			out = append(out, Entry{Name: "..", Ino: inode.parent, Kind: KindDir, Pos: 1})
		default:
			d := snapshot[pos-dotEntries]
			out = append(out, Entry{Name: d.Name, Ino: d.Ino, Kind: d.Kind, Pos: pos})
		}
	}
	return out, nil
}

// WalkFunc is called for every entry below the root with its slash separated path.
type WalkFunc func(p string, e Entry) error

// Walk visits the tree depth first starting at the root. Each directory is
// listed from its own snapshot, so a concurrent mutation only affects the
// directories not yet visited.
func (ns *Namespace) Walk(fn WalkFunc) error {
	return ns.walk("/", RootIno, fn)
}

func (ns *Namespace) walk(dirPath string, dir Ino, fn WalkFunc) error {
	entries, err := ns.Iterate(dir, dotEntries)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Removed while we were walking.
			return nil
		}
		return err
	}

	for _, e := range entries {
		p := path.Join(dirPath, e.Name)
		if err := fn(p, e); err != nil {
			if errors.Is(err, ErrSkipDir) {
				continue
			}
			return err
		}
		if e.Kind == KindDir {
			if err := ns.walk(p, e.Ino, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
