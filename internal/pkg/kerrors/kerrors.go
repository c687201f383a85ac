package kerrors

// Коды ошибок ядра Linux
const (
	EPERM        int64 = 1  // Operation not permitted
	ENOENT       int64 = 2  // No such file or directory
	ENOMEM       int64 = 12 // Out of memory
	EBUSY        int64 = 16 // Device or resource busy
	EEXIST       int64 = 17 // File exists
	ENOTDIR      int64 = 20 // Not a directory
	EISDIR       int64 = 21 // Is a directory
	EINVAL       int64 = 22 // Invalid argument
	ENAMETOOLONG int64 = 36 // File name too long
	ENOTEMPTY    int64 = 39 // Directory not empty

	ENOMEM_NEG int64 = -ENOMEM // Out of memory (negative)
	EINVAL_NEG int64 = -EINVAL // Invalid argument (negative)
)

// Neg turns an errno into the negative form the kernel module expects.
func Neg(code int64) int64 {
	if code > 0 {
		return -code
	}
	return code
}

var names = map[int64]string{
	EPERM:        "EPERM",
	ENOENT:       "ENOENT",
	ENOMEM:       "ENOMEM",
	EBUSY:        "EBUSY",
	EEXIST:       "EEXIST",
	ENOTDIR:      "ENOTDIR",
	EISDIR:       "EISDIR",
	EINVAL:       "EINVAL",
	ENAMETOOLONG: "ENAMETOOLONG",
	ENOTEMPTY:    "ENOTEMPTY",
}

// Name returns the symbolic name of an errno in either sign.
func Name(code int64) string {
	if code < 0 {
		code = -code
	}
	if n, ok := names[code]; ok {
		return n
	}
	return "EUNKNOWN"
}
