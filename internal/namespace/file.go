package namespace

import (
	"fmt"
)

// Read copies up to n bytes starting at off. Reading at or past the end of the
// file returns an empty slice and no error.
func (ns *Namespace) Read(no Ino, off int64, n int64) ([]byte, error) {
	if off < 0 || n < 0 {
		return nil, ErrInvalid
	}

	inode, err := ns.file(no)
	if err != nil {
		return nil, err
	}

	inode.mu.Lock()
	defer inode.mu.Unlock()

	size := int64(len(inode.data))
	if off >= size {
		return []byte{}, nil
	}

	toRead := min(size-off, n)
	out := make([]byte, toRead)
	copy(out, inode.data[off:off+toRead])
	return out, nil
}

// Write stores data at off, growing the file when the range ends past its
// current size. Either all of data is written or nothing is.
func (ns *Namespace) Write(no Ino, off int64, data []byte) (int, error) {
	if off < 0 {
		return 0, ErrInvalid
	}

	inode, err := ns.file(no)
	if err != nil {
		return 0, err
	}

	if len(data) == 0 {
		return 0, nil
	}

	end := off + int64(len(data))
	if end < off {
		return 0, ErrInvalid
	}
	if ns.maxFileSize > 0 && end > ns.maxFileSize {
		return 0, ErrOutOfMemory
	}

	inode.mu.Lock()
	defer inode.mu.Unlock()

	if inode.removed {
		return 0, ErrNotFound
	}

	if end > int64(len(inode.data)) {
		grown, err := grow(inode.data, end)
		if err != nil {
			return 0, err
		}
		inode.data = grown
	}

	copy(inode.data[off:end], data)
	return len(data), nil
}

// grow returns buf extended to size bytes. Bytes between the old length and
// size are zero. A failed allocation leaves buf untouched.
func grow(buf []byte, size int64) (out []byte, err error) {
	if size <= int64(cap(buf)) {
		return buf[:size], nil
	}

	newCap := max(size, 2*int64(cap(buf)))

	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: grow to %d bytes: %v", ErrOutOfMemory, size, r)
		}
	}()

	out = make([]byte, size, newCap)
	copy(out, buf)
	return out, nil
}
