package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/S1riyS/os-course-lab-4/snfs/internal/metrics"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/models"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/namespace"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/pkg/kerrors"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/repository"
	"github.com/S1riyS/os-course-lab-4/snfs/pkg/logging"
	"github.com/S1riyS/os-course-lab-4/snfs/pkg/logging/slogext"
)

const (
	S_IFDIR = 0o040000 // Directory
	S_IFREG = 0o100000 // Regular file

	S_IRWXUGO = 0o0777 // Read, write, execute for owner, group, others
)

type FileSystemService interface {
	Init(ctx context.Context, token string) error
	GetRoot(ctx context.Context, token string) (*models.NodeMeta, error)
	Lookup(ctx context.Context, token string, parentIno uint64, name string) (*models.NodeMeta, error)
	IterateDir(ctx context.Context, token string, dirIno uint64, offset *uint64) (*models.Dirent, error)
	List(ctx context.Context, token string, dirIno uint64, offset uint64) ([]models.Dirent, error)
	CreateFile(ctx context.Context, token string, parentIno uint64, name string) (*models.NodeMeta, error)
	Unlink(ctx context.Context, token string, parentIno uint64, name string) error
	CreateDir(ctx context.Context, token string, parentIno uint64, name string) (*models.NodeMeta, error)
	Rmdir(ctx context.Context, token string, parentIno uint64, name string) error
	Read(ctx context.Context, token string, ino uint64, buffer []byte, offset int64) (int64, error)
	Write(ctx context.Context, token string, ino uint64, data []byte, length uint64, offset int64) (int64, error)
	Link(ctx context.Context, token string, targetIno uint64, parentIno uint64, name string) error
	CountLinks(ctx context.Context, token string, ino uint64) (uint32, error)
	Dump(ctx context.Context, token string, w io.Writer) error
}

type fileSystemService struct {
	fsRepo  repository.FilesystemRepository
	metrics *metrics.Metrics
}

func NewFileSystemService(fsRepo repository.FilesystemRepository, m *metrics.Metrics) FileSystemService {
	return &fileSystemService{
		fsRepo:  fsRepo,
		metrics: m,
	}
}

func (s *fileSystemService) Init(ctx context.Context, token string) (err error) {
	const op = "service.fileSystemService.Init"
	defer s.observe("init", time.Now(), &err)

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Init filesystem", slog.String("token", token))

	if _, err := s.fsRepo.Create(ctx, token); err != nil {
		if errors.Is(err, repository.ErrFilesystemExists) {
			logger.Debug("Filesystem already exists", slog.String("token", token))
			return &ServiceError{Code: kerrors.EEXIST, Message: "filesystem already exists"}
		}
		logger.Error("Failed to create filesystem", slogext.Err(err), slog.String("token", token))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.SetFilesystems(len(s.fsRepo.List(ctx)))

	logger.Debug("Filesystem initialized successfully", slog.String("token", token))
	return nil
}

func (s *fileSystemService) GetRoot(ctx context.Context, token string) (_ *models.NodeMeta, err error) {
	const op = "service.fileSystemService.GetRoot"
	defer s.observe("get_root", time.Now(), &err)

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("GetRoot", slog.String("token", token))

	fs, err := s.fsRepo.GetOrCreate(ctx, token)
	if err != nil {
		logger.Error("Failed to get or create filesystem", slogext.Err(err), slog.String("token", token))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.SetFilesystems(len(s.fsRepo.List(ctx)))

	root := fs.Namespace.Root()
	attr, err := fs.Namespace.Stat(root)
	if err != nil {
		logger.Error("Failed to stat root inode", slogext.Err(err), slog.String("token", token))
		return nil, mapError(err)
	}

	meta := toNodeMeta(attr, uint64(root))

	logger.Debug("Root retrieved successfully",
		slog.String("token", token),
		slog.Uint64("ino", meta.Ino),
		slog.Int64("size", meta.Size),
	)

	return meta, nil
}

func (s *fileSystemService) Lookup(ctx context.Context, token string, parentIno uint64, name string) (_ *models.NodeMeta, err error) {
	const op = "service.fileSystemService.Lookup"
	defer s.observe("lookup", time.Now(), &err)

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Lookup",
		slog.String("token", token),
		slog.Uint64("parent_ino", parentIno),
		slog.String("name", name),
	)

	ns, err := s.namespace(ctx, token)
	if err != nil {
		return nil, err
	}

	entry, err := ns.Lookup(namespace.Ino(parentIno), name)
	if err != nil {
		// Misses are routine: the kernel caches the negative dentry
		logger.Debug("Lookup failed", slogext.Err(err), slog.String("name", name))
		return nil, mapError(err)
	}

	attr, err := ns.Stat(entry.Ino)
	if err != nil {
		// Unlinked between the two calls
		logger.Debug("Inode vanished after lookup", slog.Uint64("ino", uint64(entry.Ino)))
		return nil, mapError(err)
	}

	meta := toNodeMeta(attr, parentIno)

	logger.Debug("Lookup successful",
		slog.String("name", name),
		slog.Uint64("ino", meta.Ino),
		slog.Int("type", int(meta.Type)),
		slog.Int64("size", meta.Size),
	)

	return meta, nil
}

func (s *fileSystemService) IterateDir(ctx context.Context, token string, dirIno uint64, offset *uint64) (_ *models.Dirent, err error) {
	const op = "service.fileSystemService.IterateDir"
	defer s.observe("iterate_dir", time.Now(), &err)

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("IterateDir",
		slog.String("token", token),
		slog.Uint64("dir_ino", dirIno),
		slog.Uint64("offset", *offset),
	)

	ns, err := s.namespace(ctx, token)
	if err != nil {
		return nil, err
	}

	entries, err := ns.Iterate(namespace.Ino(dirIno), *offset)
	if err != nil {
		logger.Debug("Iterate failed", slogext.Err(err), slog.Uint64("dir_ino", dirIno))
		return nil, mapError(err)
	}

	if len(entries) == 0 {
		logger.Debug("No more entries", slog.Uint64("dir_ino", dirIno), slog.Uint64("offset", *offset))
		return nil, &ServiceError{Code: kerrors.ENOENT, Message: "no more entries"}
	}

	dirent := toDirent(entries[0])
	*offset = dirent.Offset + 1

	logger.Debug("IterateDir successful",
		slog.String("name", dirent.Name),
		slog.Uint64("ino", dirent.Ino),
		slog.Uint64("next_offset", *offset),
	)

	return &dirent, nil
}

func (s *fileSystemService) List(ctx context.Context, token string, dirIno uint64, offset uint64) (_ []models.Dirent, err error) {
	const op = "service.fileSystemService.List"
	defer s.observe("list", time.Now(), &err)

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("List",
		slog.String("token", token),
		slog.Uint64("dir_ino", dirIno),
		slog.Uint64("offset", offset),
	)

	ns, err := s.namespace(ctx, token)
	if err != nil {
		return nil, err
	}

	entries, err := ns.Iterate(namespace.Ino(dirIno), offset)
	if err != nil {
		logger.Debug("Iterate failed", slogext.Err(err), slog.Uint64("dir_ino", dirIno))
		return nil, mapError(err)
	}

	dirents := make([]models.Dirent, 0, len(entries))
	for _, e := range entries {
		dirents = append(dirents, toDirent(e))
	}

	logger.Debug("List successful", slog.Int("count", len(dirents)))
	return dirents, nil
}

func (s *fileSystemService) CreateFile(ctx context.Context, token string, parentIno uint64, name string) (*models.NodeMeta, error) {
	const op = "service.fileSystemService.CreateFile"
	return s.create(ctx, op, "create_file", token, parentIno, name, namespace.KindFile)
}

func (s *fileSystemService) CreateDir(ctx context.Context, token string, parentIno uint64, name string) (*models.NodeMeta, error) {
	const op = "service.fileSystemService.CreateDir"
	return s.create(ctx, op, "mkdir", token, parentIno, name, namespace.KindDir)
}

func (s *fileSystemService) create(
	ctx context.Context,
	op, metric, token string,
	parentIno uint64,
	name string,
	kind namespace.Kind,
) (_ *models.NodeMeta, err error) {
	defer s.observe(metric, time.Now(), &err)

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Create",
		slog.String("token", token),
		slog.Uint64("parent_ino", parentIno),
		slog.String("name", name),
		slog.String("kind", kind.String()),
	)

	ns, err := s.namespace(ctx, token)
	if err != nil {
		return nil, err
	}

	entry, err := ns.Create(namespace.Ino(parentIno), name, kind)
	if err != nil {
		logger.Debug("Create failed", slogext.Err(err), slog.String("name", name))
		return nil, mapError(err)
	}
	s.updateInodes(ctx)

	meta := &models.NodeMeta{
		Ino:       uint64(entry.Ino),
		ParentIno: parentIno,
		Type:      nodeType(kind),
		Mode:      mode(kind),
		Size:      0,
		Nlink:     1,
	}

	logger.Debug("Created successfully",
		slog.String("name", name),
		slog.Uint64("ino", meta.Ino),
		slog.Uint64("parent_ino", meta.ParentIno),
	)

	return meta, nil
}

func (s *fileSystemService) Unlink(ctx context.Context, token string, parentIno uint64, name string) (err error) {
	const op = "service.fileSystemService.Unlink"
	defer s.observe("unlink", time.Now(), &err)

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Unlink",
		slog.String("token", token),
		slog.Uint64("parent_ino", parentIno),
		slog.String("name", name),
	)

	ns, err := s.namespace(ctx, token)
	if err != nil {
		return err
	}

	if err := ns.Unlink(namespace.Ino(parentIno), name); err != nil {
		logger.Debug("Unlink failed", slogext.Err(err), slog.String("name", name))
		return mapError(err)
	}
	s.updateInodes(ctx)

	logger.Debug("File unlinked successfully", slog.String("name", name))
	return nil
}

func (s *fileSystemService) Rmdir(ctx context.Context, token string, parentIno uint64, name string) (err error) {
	const op = "service.fileSystemService.Rmdir"
	defer s.observe("rmdir", time.Now(), &err)

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Rmdir",
		slog.String("token", token),
		slog.Uint64("parent_ino", parentIno),
		slog.String("name", name),
	)

	ns, err := s.namespace(ctx, token)
	if err != nil {
		return err
	}

	if err := ns.Rmdir(namespace.Ino(parentIno), name); err != nil {
		logger.Debug("Rmdir failed", slogext.Err(err), slog.String("name", name))
		return mapError(err)
	}
	s.updateInodes(ctx)

	logger.Debug("Directory removed successfully", slog.String("name", name))
	return nil
}

func (s *fileSystemService) Read(ctx context.Context, token string, ino uint64, buffer []byte, offset int64) (_ int64, err error) {
	const op = "service.fileSystemService.Read"
	defer s.observe("read", time.Now(), &err)

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Read",
		slog.String("token", token),
		slog.Uint64("ino", ino),
		slog.Int64("offset", offset),
		slog.Int("buffer_len", len(buffer)),
	)

	ns, err := s.namespace(ctx, token)
	if err != nil {
		return 0, err
	}

	data, err := ns.Read(namespace.Ino(ino), offset, int64(len(buffer)))
	if err != nil {
		logger.Debug("Read failed", slogext.Err(err), slog.Uint64("ino", ino))
		return 0, mapError(err)
	}

	n := copy(buffer, data)
	s.metrics.AddBytes(metrics.DirectionRead, n)

	logger.Debug("Read successful",
		slog.Uint64("ino", ino),
		slog.Int("bytes_read", n),
		slog.Int64("offset", offset),
	)

	return int64(n), nil
}

func (s *fileSystemService) Write(ctx context.Context, token string, ino uint64, data []byte, length uint64, offset int64) (_ int64, err error) {
	const op = "service.fileSystemService.Write"
	defer s.observe("write", time.Now(), &err)

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Write",
		slog.String("token", token),
		slog.Uint64("ino", ino),
		slog.Int64("offset", offset),
		slog.Uint64("length", length),
		slog.Int("data_buffer_len", len(data)),
	)

	if length > uint64(len(data)) {
		logger.Debug("Length exceeds buffer size",
			slog.Uint64("length", length),
			slog.Int("buffer_size", len(data)))
		return 0, &ServiceError{Code: kerrors.EINVAL, Message: "length exceeds buffer size"}
	}

	ns, err := s.namespace(ctx, token)
	if err != nil {
		return 0, err
	}

	written, err := ns.Write(namespace.Ino(ino), offset, data[:length])
	if err != nil {
		logger.Debug("Write failed", slogext.Err(err), slog.Uint64("ino", ino))
		return 0, mapError(err)
	}
	s.metrics.AddBytes(metrics.DirectionWrite, written)

	logger.Debug("Write successful",
		slog.Uint64("ino", ino),
		slog.Int("bytes_written", written),
		slog.Int64("offset", offset),
	)

	return int64(written), nil
}

func (s *fileSystemService) Link(ctx context.Context, token string, targetIno uint64, parentIno uint64, name string) (err error) {
	const op = "service.fileSystemService.Link"
	defer s.observe("link", time.Now(), &err)

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("Link",
		slog.String("token", token),
		slog.Uint64("target_ino", targetIno),
		slog.Uint64("parent_ino", parentIno),
		slog.String("name", name),
	)

	ns, err := s.namespace(ctx, token)
	if err != nil {
		return err
	}

	if err := ns.Link(namespace.Ino(targetIno), namespace.Ino(parentIno), name); err != nil {
		logger.Debug("Link failed", slogext.Err(err), slog.String("name", name))
		return mapError(err)
	}

	logger.Debug("Hard link created successfully",
		slog.String("name", name),
		slog.Uint64("target_ino", targetIno),
		slog.Uint64("parent_ino", parentIno),
	)

	return nil
}

func (s *fileSystemService) CountLinks(ctx context.Context, token string, ino uint64) (_ uint32, err error) {
	const op = "service.fileSystemService.CountLinks"
	defer s.observe("count_links", time.Now(), &err)

	logger := logging.GetLoggerFromContextWithOp(ctx, op)
	logger.Debug("CountLinks", slog.String("token", token), slog.Uint64("ino", ino))

	ns, err := s.namespace(ctx, token)
	if err != nil {
		return 0, err
	}

	attr, err := ns.Stat(namespace.Ino(ino))
	if err != nil {
		logger.Debug("Inode not found", slog.Uint64("ino", ino))
		return 0, mapError(err)
	}

	count := uint32(attr.Nlink)
	logger.Debug("CountLinks successful", slog.Uint64("ino", ino), slog.Uint64("ref_count", uint64(count)))

	return count, nil
}

// Dump writes one line per entry of the tree: path, ino, kind, links, size.
func (s *fileSystemService) Dump(ctx context.Context, token string, w io.Writer) (err error) {
	const op = "service.fileSystemService.Dump"
	defer s.observe("dump", time.Now(), &err)

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	ns, err := s.namespace(ctx, token)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "/ ino=%d kind=dir\n", ns.Root()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ns.Walk(func(p string, e namespace.Entry) error {
		attr, err := ns.Stat(e.Ino)
		if err != nil {
			// Removed concurrently
			return nil
		}
		_, err = fmt.Fprintf(w, "%s ino=%d kind=%s nlink=%d size=%d\n", p, e.Ino, e.Kind, attr.Nlink, attr.Size)
		return err
	})
	if err != nil {
		logger.Error("Failed to dump filesystem", slogext.Err(err), slog.String("token", token))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *fileSystemService) namespace(ctx context.Context, token string) (*namespace.Namespace, error) {
	fs, err := s.fsRepo.Get(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrFilesystemNotFound) {
			return nil, &ServiceError{Code: kerrors.ENOENT, Message: "filesystem not found"}
		}
		return nil, err
	}
	return fs.Namespace, nil
}

func (s *fileSystemService) updateInodes(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	total := 0
	for _, fs := range s.fsRepo.List(ctx) {
		total += fs.Namespace.Store().Len()
	}
	s.metrics.SetInodes(total)
}

func (s *fileSystemService) observe(op string, start time.Time, errp *error) {
	result := metrics.ResultOK
	if *errp != nil {
		result = kerrors.Name(ErrorCode(*errp))
	}
	s.metrics.ObserveOp(op, result, time.Since(start))
}

func toNodeMeta(attr namespace.Attr, parentIno uint64) *models.NodeMeta {
	if attr.Kind == namespace.KindDir {
		parentIno = uint64(attr.Parent)
	}
	return &models.NodeMeta{
		Ino:       uint64(attr.Ino),
		ParentIno: parentIno,
		Type:      nodeType(attr.Kind),
		Mode:      mode(attr.Kind),
		Size:      attr.Size,
		Nlink:     uint32(attr.Nlink),
	}
}

func toDirent(e namespace.Entry) models.Dirent {
	return models.Dirent{
		Name:   e.Name,
		Ino:    uint64(e.Ino),
		Type:   nodeType(e.Kind),
		Offset: e.Pos,
	}
}

func nodeType(kind namespace.Kind) models.NodeType {
	if kind == namespace.KindDir {
		return models.NodeTypeDir
	}
	return models.NodeTypeFile
}

// Permissions are not modelled; everything is rwx for everyone.
func mode(kind namespace.Kind) uint32 {
	if kind == namespace.KindDir {
		return S_IFDIR | S_IRWXUGO
	}
	return S_IFREG | S_IRWXUGO
}
