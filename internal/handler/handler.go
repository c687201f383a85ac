package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/S1riyS/os-course-lab-4/snfs/internal/models"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/pkg/kerrors"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/service"
	"github.com/S1riyS/os-course-lab-4/snfs/pkg/binary"
	"github.com/S1riyS/os-course-lab-4/snfs/pkg/logging"
	"github.com/S1riyS/os-course-lab-4/snfs/pkg/logging/slogext"
)

type Handler struct {
	service service.FileSystemService
}

func NewHandler(service service.FileSystemService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleInit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowGet(w, r) {
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	if err := h.service.Init(ctx, token); err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteResponse(w, 0, nil)
}

func (h *Handler) HandleGetRoot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowGet(w, r) {
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	meta, err := h.service.GetRoot(ctx, token)
	if err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	data, err := binary.EncodeNodeMeta(meta)
	if err != nil {
		binary.WriteResponse(w, kerrors.ENOMEM_NEG, nil)
		return
	}

	binary.WriteResponse(w, 0, data)
}

func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowGet(w, r) {
		return
	}

	q := r.URL.Query()
	token, name := q.Get("token"), q.Get("name")
	parent, ok := parseUint(q.Get("parent"))
	if token == "" || name == "" || !ok {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	meta, err := h.service.Lookup(ctx, token, parent, name)
	if err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	data, err := binary.EncodeNodeMeta(meta)
	if err != nil {
		binary.WriteResponse(w, kerrors.ENOMEM_NEG, nil)
		return
	}

	binary.WriteResponse(w, 0, data)
}

func (h *Handler) HandleIterateDir(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowGet(w, r) {
		return
	}

	q := r.URL.Query()
	token := q.Get("token")
	dirIno, okDir := parseUint(q.Get("dir_ino"))
	offset, okOffset := parseUint(q.Get("offset"))
	if token == "" || !okDir || !okOffset {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	dirent, err := h.service.IterateDir(ctx, token, dirIno, &offset)
	if err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	data, err := binary.EncodeDirent(dirent)
	if err != nil {
		binary.WriteResponse(w, kerrors.ENOMEM_NEG, nil)
		return
	}

	binary.WriteResponse(w, 0, data)
}

// HandleList returns every entry of a directory from offset on in one response.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowGet(w, r) {
		return
	}

	q := r.URL.Query()
	token := q.Get("token")
	dirIno, okDir := parseUint(q.Get("dir_ino"))
	offset := uint64(0)
	okOffset := true
	if raw := q.Get("offset"); raw != "" {
		offset, okOffset = parseUint(raw)
	}
	if token == "" || !okDir || !okOffset {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	dirents, err := h.service.List(ctx, token, dirIno, offset)
	if err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	data, err := binary.EncodeDirents(dirents)
	if err != nil {
		binary.WriteResponse(w, kerrors.ENOMEM_NEG, nil)
		return
	}

	binary.WriteResponse(w, 0, data)
}

func (h *Handler) HandleCreateFile(w http.ResponseWriter, r *http.Request) {
	h.handleCreate(w, r, h.service.CreateFile)
}

func (h *Handler) HandleMkdir(w http.ResponseWriter, r *http.Request) {
	h.handleCreate(w, r, h.service.CreateDir)
}

type createFunc = func(ctx context.Context, token string, parentIno uint64, name string) (*models.NodeMeta, error)

// handleCreate serves create_file and mkdir. The mode parameter is accepted
// for compatibility and validated, but every node is created rwx for all.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request, create createFunc) {
	ctx := r.Context()

	if !allowGet(w, r) {
		return
	}

	q := r.URL.Query()
	token, name := q.Get("token"), q.Get("name")
	parent, ok := parseUint(q.Get("parent"))
	if token == "" || name == "" || !ok {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	if modeStr := q.Get("mode"); modeStr != "" {
		if _, err := strconv.ParseUint(modeStr, 10, 32); err != nil {
			binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
			return
		}
	}

	meta, err := create(ctx, token, parent, name)
	if err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	data, err := binary.EncodeNodeMeta(meta)
	if err != nil {
		binary.WriteResponse(w, kerrors.ENOMEM_NEG, nil)
		return
	}

	binary.WriteResponse(w, 0, data)
}

func (h *Handler) HandleUnlink(w http.ResponseWriter, r *http.Request) {
	h.handleRemove(w, r, h.service.Unlink)
}

func (h *Handler) HandleRmdir(w http.ResponseWriter, r *http.Request) {
	h.handleRemove(w, r, h.service.Rmdir)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request, remove func(context.Context, string, uint64, string) error) {
	ctx := r.Context()

	if !allowGet(w, r) {
		return
	}

	q := r.URL.Query()
	token, name := q.Get("token"), q.Get("name")
	parent, ok := parseUint(q.Get("parent"))
	if token == "" || name == "" || !ok {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	if err := remove(ctx, token, parent, name); err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteResponse(w, 0, nil)
}

func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowGet(w, r) {
		return
	}

	q := r.URL.Query()
	token := q.Get("token")
	ino, okIno := parseUint(q.Get("ino"))
	length, okLen := parseUint(q.Get("len"))
	offset, err := strconv.ParseInt(q.Get("offset"), 10, 64)
	if token == "" || !okIno || !okLen || err != nil {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	if length > maxIOSize {
		length = maxIOSize
	}

	buffer := make([]byte, length)
	read, err := h.service.Read(ctx, token, ino, buffer, offset)
	if err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	// only the bytes actually read
	binary.WriteResponse(w, 0, buffer[:read])
}

func (h *Handler) HandleWrite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleWrite"

	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	if !allowGet(w, r) {
		return
	}

	q := r.URL.Query()
	token := q.Get("token")
	dataBase64 := q.Get("data")
	ino, okIno := parseUint(q.Get("ino"))
	length, okLen := parseUint(q.Get("len"))
	offset, err := strconv.ParseInt(q.Get("offset"), 10, 64)

	if token == "" || !okIno || !okLen || err != nil {
		logger.Warn("Missing or malformed parameters",
			slog.Bool("has_token", token != ""),
			slog.Bool("has_ino", okIno),
			slog.Bool("has_len", okLen),
			slog.Bool("has_offset", err == nil))
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	data, err := base64.StdEncoding.DecodeString(dataBase64)
	if err != nil {
		logger.Warn("Failed to decode base64 data", slogext.Err(err))
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	// the decoded buffer must cover the requested length
	if uint64(len(data)) < length {
		logger.Warn("Buffer size is less than requested length",
			slog.Uint64("requested_length", length),
			slog.Int("buffer_size", len(data)))
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	written, err := h.service.Write(ctx, token, ino, data, length, offset)
	if err != nil {
		code := mapErrorToCode(err)
		logger.Debug("Write failed", slogext.Err(err), slog.Int64("error_code", code))
		binary.WriteResponse(w, code, nil)
		return
	}

	// number of bytes written
	binary.WriteInt64Response(w, 0, written)
}

func (h *Handler) HandleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowGet(w, r) {
		return
	}

	q := r.URL.Query()
	token, name := q.Get("token"), q.Get("name")
	targetIno, okTarget := parseUint(q.Get("target_ino"))
	parent, okParent := parseUint(q.Get("parent"))
	if token == "" || name == "" || !okTarget || !okParent {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	if err := h.service.Link(ctx, token, targetIno, parent, name); err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteResponse(w, 0, nil)
}

func (h *Handler) HandleCountLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowGet(w, r) {
		return
	}

	q := r.URL.Query()
	token := q.Get("token")
	ino, ok := parseUint(q.Get("ino"))
	if token == "" || !ok {
		binary.WriteResponse(w, kerrors.EINVAL_NEG, nil)
		return
	}

	count, err := h.service.CountLinks(ctx, token, ino)
	if err != nil {
		binary.WriteResponse(w, mapErrorToCode(err), nil)
		return
	}

	binary.WriteUint32Response(w, 0, count)
}

// HandleDump prints the tree of a filesystem as plain text. Debugging aid.
func (h *Handler) HandleDump(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	const op = "handler.HandleDump"

	if !allowGet(w, r) {
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := h.service.Dump(ctx, token, &buf); err != nil {
		logging.GetLoggerFromContextWithOp(ctx, op).Debug("Dump failed", slogext.Err(err))
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	response := `{"status":"ok","service":"snfs"}`
	w.Write([]byte(response))
}

// Reads are capped so a bogus len cannot make us allocate gigabytes.
const maxIOSize = 1 << 20

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func parseUint(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err == nil
}

func mapErrorToCode(err error) int64 {
	// unknown errors come back as ENOMEM
	return kerrors.Neg(service.ErrorCode(err))
}
