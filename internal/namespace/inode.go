package namespace

import (
	"sync"
	"sync/atomic"
)

// Ino identifies an inode for the lifetime of a Namespace. Numbers are never reused.
type Ino uint64

const RootIno Ino = 0

// NameMax is the longest entry name in bytes. Names occupy a 16-byte slot
// including the terminator on the kernel side.
const NameMax = 15

type Kind int16

const (
	KindDir  Kind = 0
	KindFile Kind = 1
)

func (k Kind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Dentry is a named edge from a directory to an inode.
type Dentry struct {
	Name string
	Ino  Ino
	Kind Kind
}

// Inode is owned by the Store. Everything outside the store refers to it by number.
//
// mu guards data, entries and removed. refs is only touched atomically.
type Inode struct {
	no     Ino
	kind   Kind
	parent Ino
	refs   atomic.Int64

	mu      sync.Mutex
	data    []byte
	entries []Dentry
	removed bool
}

func newInode(no Ino, kind Kind, parent Ino) *Inode {
	inode := &Inode{no: no, kind: kind, parent: parent}
	inode.refs.Store(1)
	return inode
}

func (i *Inode) Ino() Ino   { return i.no }
func (i *Inode) Kind() Kind { return i.kind }

func (i *Inode) IsDir() bool { return i.kind == KindDir }

// acquire takes a reference unless the inode is already on its way out.
func (i *Inode) acquire() bool {
	for {
		n := i.refs.Load()
		if n <= 0 {
			return false
		}
		if i.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// put drops a reference and reports whether it was the last one.
func (i *Inode) put() bool {
	return i.refs.Add(-1) == 0
}

// find returns the index of name in entries or -1. Caller holds mu.
func (i *Inode) find(name string) int {
	for idx := range i.entries {
		if i.entries[idx].Name == name {
			return idx
		}
	}
	return -1
}

// removeAt drops entries[idx] keeping the order of the rest. Caller holds mu.
func (i *Inode) removeAt(idx int) Dentry {
	d := i.entries[idx]
	copy(i.entries[idx:], i.entries[idx+1:])
	i.entries[len(i.entries)-1] = Dentry{}
	i.entries = i.entries[:len(i.entries)-1]
	return d
}
