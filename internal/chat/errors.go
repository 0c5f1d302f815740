package chat

type ErrorCode string

const (
	ErrorCodeRoomNotFound       ErrorCode = "room_not_found"
	ErrorCodeNotInRoom          ErrorCode = "not_in_room"
	ErrorCodeEmptyMessage       ErrorCode = "empty_message"
	ErrorCodeAuthDowngraded     ErrorCode = "auth_downgraded"
	ErrorCodeValidation         ErrorCode = "validation_error"
	ErrorCodePersistenceFailure ErrorCode = "persistence_failure"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
