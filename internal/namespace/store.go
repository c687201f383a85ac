package namespace

import (
	"sync"
)

// Store is the inode table. mu guards membership of inodes and next only;
// it is never held together with an inode lock.
type Store struct {
	mu        sync.Mutex
	inodes    map[Ino]*Inode
	next      Ino
	maxInodes int
}

// NewStore returns a table holding only the root directory.
// maxInodes <= 0 means no limit.
func NewStore(maxInodes int) *Store {
	s := &Store{
		inodes:    make(map[Ino]*Inode),
		next:      RootIno + 1,
		maxInodes: maxInodes,
	}
	s.inodes[RootIno] = newInode(RootIno, KindDir, RootIno)
	return s
}

func (s *Store) allocate(kind Kind, parent Ino) (*Inode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxInodes > 0 && len(s.inodes) >= s.maxInodes {
		return nil, ErrOutOfMemory
	}

	inode := newInode(s.next, kind, parent)
	s.next++
	s.inodes[inode.no] = inode
	return inode, nil
}

func (s *Store) get(no Ino) (*Inode, error) {
	s.mu.Lock()
	inode, ok := s.inodes[no]
	s.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	return inode, nil
}

// release removes no from the table. Called only after its refcount hit zero.
func (s *Store) release(no Ino) {
	s.mu.Lock()
	inode, ok := s.inodes[no]
	delete(s.inodes, no)
	s.mu.Unlock()

	if !ok {
		return
	}

	inode.mu.Lock()
	inode.data = nil
	inode.entries = nil
	inode.removed = true
	inode.mu.Unlock()
}

// Len reports the number of live inodes, root included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inodes)
}

// NextIno reports the number the next allocation will receive.
func (s *Store) NextIno() Ino {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
