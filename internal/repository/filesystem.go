package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/S1riyS/os-course-lab-4/snfs/internal/namespace"
	"github.com/S1riyS/os-course-lab-4/snfs/pkg/logging"
)

var (
	ErrFilesystemExists   = errors.New("filesystem already exists")
	ErrFilesystemNotFound = errors.New("filesystem not found")
)

// Filesystem is one mounted namespace and the token it is registered under.
type Filesystem struct {
	Token     string
	Namespace *namespace.Namespace
	CreatedAt time.Time
}

type FilesystemRepository interface {
	Create(ctx context.Context, token string) (*Filesystem, error)
	Get(ctx context.Context, token string) (*Filesystem, error)
	GetOrCreate(ctx context.Context, token string) (*Filesystem, error)
	List(ctx context.Context) []*Filesystem
	Close(ctx context.Context)
}

// filesystemRepository keeps every namespace in memory, keyed by mount token.
// Nothing survives a restart.
type filesystemRepository struct {
	mu   sync.RWMutex
	fss  map[string]*Filesystem
	opts namespace.Options
}

func NewFilesystemRepository(opts namespace.Options) FilesystemRepository {
	return &filesystemRepository{
		fss:  make(map[string]*Filesystem),
		opts: opts,
	}
}

func (r *filesystemRepository) Create(ctx context.Context, token string) (*Filesystem, error) {
	const op = "repository.filesystemRepository.Create"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.fss[token]; ok {
		return nil, fmt.Errorf("%s: %w", op, ErrFilesystemExists)
	}

	fs := r.newFilesystem(token)
	r.fss[token] = fs

	logger.Debug("Filesystem created", slog.String("token", token))
	return fs, nil
}

func (r *filesystemRepository) Get(ctx context.Context, token string) (*Filesystem, error) {
	const op = "repository.filesystemRepository.Get"

	r.mu.RLock()
	fs, ok := r.fss[token]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrFilesystemNotFound)
	}

	return fs, nil
}

func (r *filesystemRepository) GetOrCreate(ctx context.Context, token string) (*Filesystem, error) {
	const op = "repository.filesystemRepository.GetOrCreate"

	r.mu.RLock()
	fs, ok := r.fss[token]
	r.mu.RUnlock()
	if ok {
		return fs, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Somebody may have won the race between the two locks
	if fs, ok := r.fss[token]; ok {
		return fs, nil
	}

	fs = r.newFilesystem(token)
	r.fss[token] = fs

	logging.GetLoggerFromContextWithOp(ctx, op).Debug("Filesystem created", slog.String("token", token))
	return fs, nil
}

func (r *filesystemRepository) List(ctx context.Context) []*Filesystem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Filesystem, 0, len(r.fss))
	for _, fs := range r.fss {
		out = append(out, fs)
	}
	return out
}

// Close drops every namespace. Used on shutdown.
func (r *filesystemRepository) Close(ctx context.Context) {
	const op = "repository.filesystemRepository.Close"

	r.mu.Lock()
	n := len(r.fss)
	r.fss = make(map[string]*Filesystem)
	r.mu.Unlock()

	logging.GetLoggerFromContextWithOp(ctx, op).Info("Filesystems dropped", slog.Int("count", n))
}

func (r *filesystemRepository) newFilesystem(token string) *Filesystem {
	return &Filesystem{
		Token:     token,
		Namespace: namespace.New(r.opts),
		CreatedAt: time.Now(),
	}
}
