package namespace

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestNew_RootOnly(t *testing.T) {
	ns := New(Options{})

	attr, err := ns.Stat(RootIno)
	require.NoError(t, err)
	assert.Equal(t, KindDir, attr.Kind)
	assert.Equal(t, int64(1), attr.Nlink)
	assert.Equal(t, RootIno, attr.Parent)
	assert.Equal(t, 1, ns.Store().Len())
	assert.Equal(t, Ino(1), ns.Store().NextIno())
}

func TestCreateThenLookup(t *testing.T) {
	ns := New(Options{})

	tests := []struct {
		name string
		kind Kind
	}{
		{"a.txt", KindFile},
		{"docs", KindDir},
		{"exactly15bytes_", KindFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created, err := ns.Create(RootIno, tt.name, tt.kind)
			require.NoError(t, err)

			found, err := ns.Lookup(RootIno, tt.name)
			require.NoError(t, err)
			assert.Equal(t, created.Ino, found.Ino)
			assert.Equal(t, tt.kind, found.Kind)
		})
	}
}

func TestCreate_Errors(t *testing.T) {
	ns := New(Options{})
	file, err := ns.Create(RootIno, "f", KindFile)
	require.NoError(t, err)

	t.Run("NameTooLong", func(t *testing.T) {
		_, err := ns.Create(RootIno, strings.Repeat("x", NameMax+1), KindFile)
		assert.ErrorIs(t, err, ErrNameTooLong)
	})

	t.Run("InvalidName", func(t *testing.T) {
		for _, name := range []string{"", ".", "..", "a/b", "a\x00"} {
			_, err := ns.Create(RootIno, name, KindFile)
			assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
		}
	})

	t.Run("ParentMissing", func(t *testing.T) {
		_, err := ns.Create(Ino(9999), "x", KindFile)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ParentIsFile", func(t *testing.T) {
		_, err := ns.Create(file.Ino, "x", KindFile)
		assert.ErrorIs(t, err, ErrNotDir)
	})

	t.Run("Duplicate", func(t *testing.T) {
		_, err := ns.Mkdir(RootIno, "f")
		assert.ErrorIs(t, err, ErrExists)
	})
}

func TestCreate_OutOfInodes(t *testing.T) {
	ns := New(Options{MaxInodes: 2})

	_, err := ns.Create(RootIno, "one", KindFile)
	require.NoError(t, err)

	_, err = ns.Create(RootIno, "two", KindFile)
	assert.ErrorIs(t, err, ErrOutOfMemory)

	_, err = ns.Lookup(RootIno, "two")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNumbersAreNeverReused(t *testing.T) {
	ns := New(Options{})

	a, err := ns.Create(RootIno, "a", KindFile)
	require.NoError(t, err)
	require.NoError(t, ns.Unlink(RootIno, "a"))

	b, err := ns.Create(RootIno, "a", KindFile)
	require.NoError(t, err)
	assert.Greater(t, b.Ino, a.Ino)

	_, err = ns.Stat(a.Ino)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnlink(t *testing.T) {
	ns := New(Options{})
	dir, err := ns.Mkdir(RootIno, "d")
	require.NoError(t, err)
	f, err := ns.Create(RootIno, "f", KindFile)
	require.NoError(t, err)

	require.NoError(t, ns.Unlink(RootIno, "f"))

	_, err = ns.Lookup(RootIno, "f")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = ns.Stat(f.Ino)
	assert.ErrorIs(t, err, ErrNotFound, "last link gone, inode must be released")

	assert.ErrorIs(t, ns.Unlink(RootIno, "f"), ErrNotFound)
	assert.ErrorIs(t, ns.Unlink(RootIno, "d"), ErrIsDir)
	assert.ErrorIs(t, ns.Unlink(Ino(4242), "f"), ErrNotFound)

	_, err = ns.Stat(dir.Ino)
	assert.NoError(t, err)
}

func TestRmdir(t *testing.T) {
	ns := New(Options{})
	dir, err := ns.Mkdir(RootIno, "d")
	require.NoError(t, err)
	_, err = ns.Create(dir.Ino, "inner", KindFile)
	require.NoError(t, err)
	_, err = ns.Create(RootIno, "plain", KindFile)
	require.NoError(t, err)

	assert.ErrorIs(t, ns.Rmdir(RootIno, "d"), ErrNotEmpty)
	assert.ErrorIs(t, ns.Rmdir(RootIno, "plain"), ErrNotDir)
	assert.ErrorIs(t, ns.Rmdir(RootIno, "nope"), ErrNotFound)

	require.NoError(t, ns.Unlink(dir.Ino, "inner"))
	require.NoError(t, ns.Rmdir(RootIno, "d"))

	_, err = ns.Lookup(RootIno, "d")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = ns.Create(dir.Ino, "late", KindFile)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, ns.Store().Len())
}

func TestRootIsNeverRemoved(t *testing.T) {
	ns := New(Options{})
	sub, err := ns.Mkdir(RootIno, "sub")
	require.NoError(t, err)

	entries, err := ns.Iterate(sub.Ino, 1)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "..", entries[0].Name)
	assert.Equal(t, RootIno, entries[0].Ino)

	assert.ErrorIs(t, ns.Rmdir(RootIno, "."), ErrNotFound)
	assert.ErrorIs(t, ns.Rmdir(sub.Ino, ".."), ErrNotFound)
	assert.ErrorIs(t, ns.Link(RootIno, sub.Ino, "root"), ErrIsDir)

	_, err = ns.Stat(RootIno)
	assert.NoError(t, err)
}

func TestLink_SharesInode(t *testing.T) {
	ns := New(Options{})
	dir2, err := ns.Mkdir(RootIno, "dir2")
	require.NoError(t, err)
	a, err := ns.Create(RootIno, "a", KindFile)
	require.NoError(t, err)

	require.NoError(t, ns.Link(a.Ino, dir2.Ino, "b"))

	b, err := ns.Lookup(dir2.Ino, "b")
	require.NoError(t, err)
	assert.Equal(t, a.Ino, b.Ino)

	_, err = ns.Write(a.Ino, 0, []byte("shared"))
	require.NoError(t, err)
	got, err := ns.Read(b.Ino, 0, 6)
	require.NoError(t, err)
	assert.Equal(t, "shared", string(got))

	attr, err := ns.Stat(a.Ino)
	require.NoError(t, err)
	assert.Equal(t, int64(2), attr.Nlink)

	require.NoError(t, ns.Unlink(RootIno, "a"))
	got, err = ns.Read(b.Ino, 0, 6)
	require.NoError(t, err, "inode survives while a link remains")
	assert.Equal(t, "shared", string(got))

	require.NoError(t, ns.Unlink(dir2.Ino, "b"))
	_, err = ns.Stat(a.Ino)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLink_Errors(t *testing.T) {
	ns := New(Options{})
	d, err := ns.Mkdir(RootIno, "d")
	require.NoError(t, err)
	f, err := ns.Create(RootIno, "f", KindFile)
	require.NoError(t, err)

	assert.ErrorIs(t, ns.Link(d.Ino, RootIno, "d2"), ErrIsDir)
	assert.ErrorIs(t, ns.Link(Ino(777), RootIno, "x"), ErrNotFound)
	assert.ErrorIs(t, ns.Link(f.Ino, Ino(777), "x"), ErrNotFound)
	assert.ErrorIs(t, ns.Link(f.Ino, RootIno, "f"), ErrExists)
	assert.ErrorIs(t, ns.Link(f.Ino, RootIno, strings.Repeat("n", 16)), ErrNameTooLong)

	attr, err := ns.Stat(f.Ino)
	require.NoError(t, err)
	assert.Equal(t, int64(1), attr.Nlink, "failed links must not leak references")
}

func TestReadWrite(t *testing.T) {
	ns := New(Options{})
	f, err := ns.Create(RootIno, "f", KindFile)
	require.NoError(t, err)

	n, err := ns.Write(f.Ino, 0, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	got, err := ns.Read(f.Ino, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	got, err = ns.Read(f.Ino, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ns.Read(f.Ino, 3, 100)
	require.NoError(t, err)
	assert.Equal(t, "lo", string(got))

	_, err = ns.Write(f.Ino, 8, []byte("xy"))
	require.NoError(t, err)
	got, err = ns.Read(f.Ino, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\x00\x00\x00xy"), got)

	_, err = ns.Write(f.Ino, 1, []byte("EL"))
	require.NoError(t, err)
	attr, err := ns.Stat(f.Ino)
	require.NoError(t, err)
	assert.Equal(t, int64(10), attr.Size, "overwrite inside the file keeps its size")
}

func TestReadWrite_RoundTrip(t *testing.T) {
	for _, off := range []int64{0, 1, 7, 4096} {
		for _, size := range []int{1, 15, 1000} {
			t.Run(fmt.Sprintf("off=%d/size=%d", off, size), func(t *testing.T) {
				ns := New(Options{})
				f, err := ns.Create(RootIno, "f", KindFile)
				require.NoError(t, err)

				payload := make([]byte, size)
				for i := range payload {
					payload[i] = byte(i*31 + int(off))
				}

				n, err := ns.Write(f.Ino, off, payload)
				require.NoError(t, err)
				require.Equal(t, size, n)

				got, err := ns.Read(f.Ino, off, int64(size))
				require.NoError(t, err)
				assert.Equal(t, payload, got)

				whole, err := ns.Read(f.Ino, 0, off+int64(size))
				require.NoError(t, err)
				assert.Len(t, whole, int(off)+size)
			})
		}
	}
}

func TestReadWrite_Errors(t *testing.T) {
	ns := New(Options{MaxFileSize: 8})
	d, err := ns.Mkdir(RootIno, "d")
	require.NoError(t, err)
	f, err := ns.Create(RootIno, "f", KindFile)
	require.NoError(t, err)

	_, err = ns.Read(d.Ino, 0, 1)
	assert.ErrorIs(t, err, ErrIsDir)
	_, err = ns.Write(d.Ino, 0, []byte("x"))
	assert.ErrorIs(t, err, ErrIsDir)

	_, err = ns.Read(Ino(1234), 0, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = ns.Write(Ino(1234), 0, []byte("x"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ns.Read(f.Ino, -1, 1)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = ns.Write(f.Ino, -1, []byte("x"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = ns.Write(f.Ino, 0, []byte("1234"))
	require.NoError(t, err)
	_, err = ns.Write(f.Ino, 4, []byte("56789"))
	assert.ErrorIs(t, err, ErrOutOfMemory)

	got, err := ns.Read(f.Ino, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, "1234", string(got), "failed growth leaves the buffer untouched")
}

func TestIterate(t *testing.T) {
	ns := New(Options{})
	dir, err := ns.Mkdir(RootIno, "d")
	require.NoError(t, err)

	names := []string{"c", "a", "b"}
	for _, name := range names {
		_, err := ns.Create(dir.Ino, name, KindFile)
		require.NoError(t, err)
	}

	all, err := ns.Iterate(dir.Ino, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, Entry{Name: ".", Ino: dir.Ino, Kind: KindDir, Pos: 0}, all[0])
	assert.Equal(t, Entry{Name: "..", Ino: RootIno, Kind: KindDir, Pos: 1}, all[1])
	for i, name := range names {
		assert.Equal(t, name, all[i+2].Name, "insertion order")
		assert.Equal(t, uint64(i+2), all[i+2].Pos)
	}

	rest, err := ns.Iterate(dir.Ino, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "a", rest[0].Name)

	none, err := ns.Iterate(dir.Ino, 5)
	require.NoError(t, err)
	assert.Empty(t, none)

	again, err := ns.Iterate(dir.Ino, 0)
	require.NoError(t, err)
	assert.Equal(t, all, again, "restarting from a smaller position is reproducible")

	require.NoError(t, ns.Unlink(dir.Ino, "a"))
	after, err := ns.Iterate(dir.Ino, 2)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, "c", after[0].Name)
	assert.Equal(t, "b", after[1].Name)

	f, err := ns.Lookup(dir.Ino, "b")
	require.NoError(t, err)
	_, err = ns.Iterate(f.Ino, 0)
	assert.ErrorIs(t, err, ErrNotDir)
}

func TestWalk(t *testing.T) {
	ns := New(Options{})
	a, err := ns.Mkdir(RootIno, "a")
	require.NoError(t, err)
	_, err = ns.Create(a.Ino, "x", KindFile)
	require.NoError(t, err)
	skip, err := ns.Mkdir(RootIno, "skip")
	require.NoError(t, err)
	_, err = ns.Create(skip.Ino, "hidden", KindFile)
	require.NoError(t, err)
	_, err = ns.Create(RootIno, "y", KindFile)
	require.NoError(t, err)

	var seen []string
	err = ns.Walk(func(p string, e Entry) error {
		seen = append(seen, p)
		if e.Name == "skip" {
			return ErrSkipDir
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/a/x", "/skip", "/y"}, seen)
}

func TestConcurrentCreate(t *testing.T) {
	const n = 200
	ns := New(Options{})

	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			_, err := ns.Create(RootIno, fmt.Sprintf("f%d", i), KindFile)
			return err
		})
	}
	require.NoError(t, g.Wait())

	entries, err := ns.Iterate(RootIno, 2)
	require.NoError(t, err)
	require.Len(t, entries, n)

	names := make(map[string]struct{}, n)
	inos := make(map[Ino]struct{}, n)
	for _, e := range entries {
		names[e.Name] = struct{}{}
		inos[e.Ino] = struct{}{}
	}
	assert.Len(t, names, n)
	assert.Len(t, inos, n)
	assert.Equal(t, n+1, ns.Store().Len())
}

func TestConcurrentCreateSameName(t *testing.T) {
	const n = 50
	ns := New(Options{})

	errs := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			_, errs[i] = ns.Create(RootIno, "same", KindFile)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrExists)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 2, ns.Store().Len(), "losing creators must release their inodes")
}

func TestConcurrentLinkUnlink(t *testing.T) {
	const n = 64
	ns := New(Options{})
	f, err := ns.Create(RootIno, "origin", KindFile)
	require.NoError(t, err)

	dirs := make([]Ino, 4)
	for i := range dirs {
		d, err := ns.Mkdir(RootIno, fmt.Sprintf("d%d", i))
		require.NoError(t, err)
		dirs[i] = d.Ino
	}

	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			dir := dirs[i%len(dirs)]
			name := fmt.Sprintf("l%d", i)
			if err := ns.Link(f.Ino, dir, name); err != nil {
				return err
			}
			return ns.Unlink(dir, name)
		})
	}
	require.NoError(t, g.Wait())

	attr, err := ns.Stat(f.Ino)
	require.NoError(t, err)
	assert.Equal(t, int64(1), attr.Nlink)
}

func TestConcurrentRmdirAndCreate(t *testing.T) {
	for round := 0; round < 50; round++ {
		ns := New(Options{})
		d, err := ns.Mkdir(RootIno, "d")
		require.NoError(t, err)

		var g errgroup.Group
		var rmErr, createErr error
		g.Go(func() error {
			rmErr = ns.Rmdir(RootIno, "d")
			return nil
		})
		g.Go(func() error {
			_, createErr = ns.Create(d.Ino, "child", KindFile)
			return nil
		})
		require.NoError(t, g.Wait())

		if rmErr == nil {
			// The directory went away, so the child must not be reachable.
			assert.ErrorIs(t, createErr, ErrNotFound)
			assert.Equal(t, 1, ns.Store().Len())
		} else {
			assert.ErrorIs(t, rmErr, ErrNotEmpty)
			assert.NoError(t, createErr)
		}
	}
}
