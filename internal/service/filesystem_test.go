package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S1riyS/os-course-lab-4/snfs/internal/metrics"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/models"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/namespace"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/pkg/kerrors"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/repository"
)

const token = "test-token"

func newService(t *testing.T) FileSystemService {
	t.Helper()

	repo := repository.NewFilesystemRepository(namespace.Options{MaxFileSize: 1 << 20})
	return NewFileSystemService(repo, metrics.New(prometheus.NewRegistry()))
}

func requireCode(t *testing.T, err error, code int64) {
	t.Helper()

	require.Error(t, err)
	assert.Equal(t, code, ErrorCode(err), "got %v", err)
}

func TestInitAndGetRoot(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	require.NoError(t, svc.Init(ctx, token))
	requireCode(t, svc.Init(ctx, token), kerrors.EEXIST)

	root, err := svc.GetRoot(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, uint64(namespace.RootIno), root.Ino)
	assert.Equal(t, models.NodeTypeDir, root.Type)
	assert.Equal(t, uint32(S_IFDIR|S_IRWXUGO), root.Mode)

	// get_root on a fresh token mounts it implicitly
	other, err := svc.GetRoot(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, uint64(namespace.RootIno), other.Ino)
}

func TestUnknownToken(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Lookup(ctx, "nope", 0, "x")
	requireCode(t, err, kerrors.ENOENT)

	_, err = svc.CreateFile(ctx, "nope", 0, "x")
	requireCode(t, err, kerrors.ENOENT)
}

func TestCreateLookupRemove(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	require.NoError(t, svc.Init(ctx, token))

	dir, err := svc.CreateDir(ctx, token, 0, "docs")
	require.NoError(t, err)
	assert.Equal(t, models.NodeTypeDir, dir.Type)

	file, err := svc.CreateFile(ctx, token, dir.Ino, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, uint32(S_IFREG|S_IRWXUGO), file.Mode)
	assert.Equal(t, dir.Ino, file.ParentIno)

	found, err := svc.Lookup(ctx, token, dir.Ino, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, file.Ino, found.Ino)

	_, err = svc.CreateFile(ctx, token, dir.Ino, "a.txt")
	requireCode(t, err, kerrors.EEXIST)
	_, err = svc.CreateFile(ctx, token, dir.Ino, strings.Repeat("n", 16))
	requireCode(t, err, kerrors.ENAMETOOLONG)

	requireCode(t, svc.Rmdir(ctx, token, 0, "docs"), kerrors.ENOTEMPTY)
	requireCode(t, svc.Unlink(ctx, token, 0, "docs"), kerrors.EISDIR)
	requireCode(t, svc.Rmdir(ctx, token, dir.Ino, "a.txt"), kerrors.ENOTDIR)

	require.NoError(t, svc.Unlink(ctx, token, dir.Ino, "a.txt"))
	_, err = svc.Lookup(ctx, token, dir.Ino, "a.txt")
	requireCode(t, err, kerrors.ENOENT)

	require.NoError(t, svc.Rmdir(ctx, token, 0, "docs"))
}

func TestIterateDir(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	require.NoError(t, svc.Init(ctx, token))

	_, err := svc.CreateFile(ctx, token, 0, "one")
	require.NoError(t, err)
	_, err = svc.CreateDir(ctx, token, 0, "two")
	require.NoError(t, err)

	var names []string
	var offset uint64
	for {
		dirent, err := svc.IterateDir(ctx, token, 0, &offset)
		if err != nil {
			requireCode(t, err, kerrors.ENOENT)
			break
		}
		names = append(names, dirent.Name)
	}
	assert.Equal(t, []string{".", "..", "one", "two"}, names)
	assert.Equal(t, uint64(4), offset)

	list, err := svc.List(ctx, token, 0, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "one", list[0].Name)
	assert.Equal(t, models.NodeTypeDir, list[1].Type)
}

func TestReadWriteAndLinks(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	require.NoError(t, svc.Init(ctx, token))

	file, err := svc.CreateFile(ctx, token, 0, "f")
	require.NoError(t, err)
	dir, err := svc.CreateDir(ctx, token, 0, "d")
	require.NoError(t, err)

	written, err := svc.Write(ctx, token, file.Ino, []byte("hello world"), 5, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), written)

	_, err = svc.Write(ctx, token, file.Ino, []byte("hi"), 3, 0)
	requireCode(t, err, kerrors.EINVAL)
	_, err = svc.Write(ctx, token, dir.Ino, []byte("x"), 1, 0)
	requireCode(t, err, kerrors.EISDIR)
	_, err = svc.Write(ctx, token, file.Ino, []byte("x"), 1, 1<<20)
	requireCode(t, err, kerrors.ENOMEM)

	require.NoError(t, svc.Link(ctx, token, file.Ino, dir.Ino, "alias"))
	requireCode(t, svc.Link(ctx, token, dir.Ino, 0, "dlink"), kerrors.EISDIR)

	count, err := svc.CountLinks(ctx, token, file.Ino)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), count)

	alias, err := svc.Lookup(ctx, token, dir.Ino, "alias")
	require.NoError(t, err)
	assert.Equal(t, int64(5), alias.Size)
	assert.Equal(t, uint32(2), alias.Nlink)

	buf := make([]byte, 16)
	n, err := svc.Read(ctx, token, alias.Ino, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	n, err = svc.Read(ctx, token, alias.Ino, buf, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDump(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	require.NoError(t, svc.Init(ctx, token))

	dir, err := svc.CreateDir(ctx, token, 0, "d")
	require.NoError(t, err)
	_, err = svc.CreateFile(ctx, token, dir.Ino, "f")
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, svc.Dump(ctx, token, &sb))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "/ ino=0"))
	assert.True(t, strings.HasPrefix(lines[1], "/d ino="))
	assert.Contains(t, lines[2], "/d/f")
	assert.Contains(t, lines[2], "kind=file")
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, kerrors.ENOTEMPTY, ErrorCode(mapError(namespace.ErrNotEmpty)))
	assert.Equal(t, kerrors.ENOMEM, ErrorCode(errors.New("boom")))

	wrapped := mapError(errors.Join(errors.New("ctx"), namespace.ErrBusy))
	assert.Equal(t, kerrors.EBUSY, ErrorCode(wrapped))
}
