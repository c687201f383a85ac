// Package namespace implements an in-memory hierarchical filesystem namespace:
// an inode table, a dentry tree with hard links and reference counting, and
// growable file buffers.
//
// Locking: the Store has one table lock that guards membership only, and each
// Inode has its own mutex guarding its payload. No operation holds the table
// lock and an inode lock at the same time. Rmdir is the only operation taking
// two inode locks, always parent before child; directories cannot be hard
// linked so this order follows the tree.
package namespace

// Options bound the namespace. Zero values mean no limit.
type Options struct {
	MaxInodes   int
	MaxFileSize int64
}

// Namespace is one mounted instance of the filesystem.
type Namespace struct {
	store       *Store
	maxFileSize int64
}

// Entry is what lookups and directory listings hand back to callers.
type Entry struct {
	Name string
	Ino  Ino
	Kind Kind
	// Pos is the listing position of the entry; resume iteration at Pos+1.
	Pos uint64
}

// Attr is a point-in-time view of an inode.
type Attr struct {
	Ino    Ino
	Kind   Kind
	Parent Ino
	Nlink  int64
	Size   int64
}

func New(opts Options) *Namespace {
	return &Namespace{
		store:       NewStore(opts.MaxInodes),
		maxFileSize: opts.MaxFileSize,
	}
}

func (ns *Namespace) Root() Ino { return RootIno }

func (ns *Namespace) Store() *Store { return ns.store }

// Stat reports the attributes of a live inode.
func (ns *Namespace) Stat(no Ino) (Attr, error) {
	inode, err := ns.store.get(no)
	if err != nil {
		return Attr{}, err
	}

	inode.mu.Lock()
	defer inode.mu.Unlock()

	attr := Attr{
		Ino:    inode.no,
		Kind:   inode.kind,
		Parent: inode.parent,
		Nlink:  inode.refs.Load(),
	}
	if inode.kind == KindFile {
		attr.Size = int64(len(inode.data))
	} else {
		attr.Size = int64(len(inode.entries))
	}
	return attr, nil
}

// dir resolves no and checks it is a directory.
func (ns *Namespace) dir(no Ino) (*Inode, error) {
	inode, err := ns.store.get(no)
	if err != nil {
		return nil, err
	}
	if !inode.IsDir() {
		return nil, ErrNotDir
	}
	return inode, nil
}

// file resolves no and checks it is a regular file.
func (ns *Namespace) file(no Ino) (*Inode, error) {
	inode, err := ns.store.get(no)
	if err != nil {
		return nil, err
	}
	if inode.IsDir() {
		return nil, ErrIsDir
	}
	return inode, nil
}

// unref drops one reference from no and frees it when it was the last one.
func (ns *Namespace) unref(inode *Inode) {
	if inode.put() {
		ns.store.release(inode.no)
	}
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidName
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '/' || name[i] == 0 {
			return ErrInvalidName
		}
	}
	if len(name) > NameMax {
		return ErrNameTooLong
	}
	return nil
}
