package errs

// Stable error codes returned to callers. Conflict is internal only: the
// conversation get-or-create path resolves it before the caller sees it.
const (
	ArgsError           = 1001 // invalid input
	ForbiddenError      = 1003 // not connected / not a participant / messaging self
	RecordNotFoundError = 1004 // conversation or message absent
	DuplicateKeyError   = 1005 // identity race during creation
	DeadlineError       = 1006 // storage or membership-check deadline exceeded
	ServerInternalError = 1500 // unexpected storage failure
)

var (
	ErrArgs           = NewCodeError(ArgsError, "InvalidArgument")
	ErrForbidden      = NewCodeError(ForbiddenError, "Forbidden")
	ErrRecordNotFound = NewCodeError(RecordNotFoundError, "NotFound")
	ErrDuplicateKey   = NewCodeError(DuplicateKeyError, "Conflict")
	ErrDeadline       = NewCodeError(DeadlineError, "Timeout")
	ErrInternalServer = NewCodeError(ServerInternalError, "Internal")
)
