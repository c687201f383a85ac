package namespace

// Lookup resolves name inside dir. A miss returns ErrNotFound; callers treat it
// as a negative result rather than a failure.
func (ns *Namespace) Lookup(dir Ino, name string) (Entry, error) {
	parent, err := ns.dir(dir)
	if err != nil {
		return Entry{}, err
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()

	idx := parent.find(name)
	if idx < 0 {
		return Entry{}, ErrNotFound
	}
	d := parent.entries[idx]
	return Entry{Name: d.Name, Ino: d.Ino, Kind: d.Kind, Pos: uint64(idx) + dotEntries}, nil
}

// Create adds a new inode of the given kind under dir and returns its entry.
func (ns *Namespace) Create(dir Ino, name string, kind Kind) (Entry, error) {
	if err := validateName(name); err != nil {
		return Entry{}, err
	}
	if kind != KindFile && kind != KindDir {
		return Entry{}, ErrInvalid
	}

	parent, err := ns.dir(dir)
	if err != nil {
		return Entry{}, err
	}

	// Cheap rejection before a number is spent. Rechecked below.
	parent.mu.Lock()
	err = parent.canInsert(name)
	parent.mu.Unlock()
	if err != nil {
		return Entry{}, err
	}

	inode, err := ns.store.allocate(kind, dir)
	if err != nil {
		return Entry{}, err
	}

	parent.mu.Lock()
	if err := parent.canInsert(name); err != nil {
		parent.mu.Unlock()
		ns.unref(inode)
		return Entry{}, err
	}
	parent.entries = append(parent.entries, Dentry{Name: name, Ino: inode.no, Kind: kind})
	pos := uint64(len(parent.entries)-1) + dotEntries
	parent.mu.Unlock()

	return Entry{Name: name, Ino: inode.no, Kind: kind, Pos: pos}, nil
}

func (ns *Namespace) Mkdir(dir Ino, name string) (Entry, error) {
	return ns.Create(dir, name, KindDir)
}

// Link adds name under dir as another hard link to the file existing.
// Directories cannot be linked.
func (ns *Namespace) Link(existing Ino, dir Ino, name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	target, err := ns.store.get(existing)
	if err != nil {
		return err
	}
	parent, err := ns.dir(dir)
	if err != nil {
		return err
	}
	if target.IsDir() {
		return ErrIsDir
	}

	// The reference is taken before the dentry is visible so a concurrent
	// unlink of the last other name cannot free the inode under us.
	if !target.acquire() {
		return ErrNotFound
	}

	parent.mu.Lock()
	if err := parent.canInsert(name); err != nil {
		parent.mu.Unlock()
		ns.unref(target)
		return err
	}
	parent.entries = append(parent.entries, Dentry{Name: name, Ino: target.no, Kind: target.kind})
	parent.mu.Unlock()

	return nil
}

// Unlink removes the file entry name from dir and frees the inode once its
// last link is gone.
func (ns *Namespace) Unlink(dir Ino, name string) error {
	parent, err := ns.dir(dir)
	if err != nil {
		return err
	}

	parent.mu.Lock()
	idx := parent.find(name)
	if idx < 0 {
		parent.mu.Unlock()
		return ErrNotFound
	}
	d := parent.entries[idx]
	if d.Ino == RootIno {
		parent.mu.Unlock()
		return ErrBusy
	}
	if d.Kind == KindDir {
		parent.mu.Unlock()
		return ErrIsDir
	}
	parent.removeAt(idx)
	parent.mu.Unlock()

	target, err := ns.store.get(d.Ino)
	if err != nil {
		// A dentry always holds a reference, so the inode must still be live.
		return err
	}
	ns.unref(target)
	return nil
}

// Rmdir removes the empty directory name from dir.
func (ns *Namespace) Rmdir(dir Ino, name string) error {
	parent, err := ns.dir(dir)
	if err != nil {
		return err
	}

	for {
		parent.mu.Lock()
		idx := parent.find(name)
		if idx < 0 {
			parent.mu.Unlock()
			return ErrNotFound
		}
		d := parent.entries[idx]
		parent.mu.Unlock()

		if d.Ino == RootIno {
			return ErrBusy
		}
		if d.Kind != KindDir {
			return ErrNotDir
		}

		child, err := ns.store.get(d.Ino)
		if err != nil {
			return err
		}

		parent.mu.Lock()
		idx = parent.find(name)
		if idx < 0 || parent.entries[idx].Ino != d.Ino {
			// Replaced between the two critical sections; look again.
			parent.mu.Unlock()
			continue
		}

		child.mu.Lock()
		if len(child.entries) > 0 {
			child.mu.Unlock()
			parent.mu.Unlock()
			return ErrNotEmpty
		}
		child.removed = true
		child.mu.Unlock()

		parent.removeAt(idx)
		parent.mu.Unlock()

		ns.unref(child)
		return nil
	}
}

// canInsert reports whether name may be added to the directory. Caller holds mu.
func (i *Inode) canInsert(name string) error {
	if i.removed {
		return ErrNotFound
	}
	if i.find(name) >= 0 {
		return ErrExists
	}
	return nil
}
