package service

import (
	"errors"

	"github.com/S1riyS/os-course-lab-4/snfs/internal/namespace"
	"github.com/S1riyS/os-course-lab-4/snfs/internal/pkg/kerrors"
)

type ServiceError struct {
	Code    int64
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) GetCode() int64 {
	return e.Code
}

var namespaceCodes = []struct {
	err  error
	code int64
}{
	{namespace.ErrNotFound, kerrors.ENOENT},
	{namespace.ErrNameTooLong, kerrors.ENAMETOOLONG},
	{namespace.ErrInvalidName, kerrors.EINVAL},
	{namespace.ErrInvalid, kerrors.EINVAL},
	{namespace.ErrIsDir, kerrors.EISDIR},
	{namespace.ErrNotDir, kerrors.ENOTDIR},
	{namespace.ErrNotEmpty, kerrors.ENOTEMPTY},
	{namespace.ErrExists, kerrors.EEXIST},
	{namespace.ErrOutOfMemory, kerrors.ENOMEM},
	{namespace.ErrBusy, kerrors.EBUSY},
}

// mapError converts an engine error into a ServiceError carrying its errno.
// Anything unrecognised is returned as is.
func mapError(err error) error {
	for _, c := range namespaceCodes {
		if errors.Is(err, c.err) {
			return &ServiceError{Code: c.code, Message: err.Error()}
		}
	}
	return err
}

// ErrorCode extracts the errno of err. Unknown errors report ENOMEM, which is
// what the kernel side treats as a generic server failure.
func ErrorCode(err error) int64 {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code
	}
	return kerrors.ENOMEM
}
