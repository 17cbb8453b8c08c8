package entity

import "errors"

type Kind int

const (
	KindUnexpected Kind = iota
	KindInvalidBackground
	KindNotFound
	KindNetwork
	KindBadStatus
	KindCache
	KindAssetNotFound
	KindFontNotFound
	KindWrite
)

var kindNames = map[Kind]string{
	KindUnexpected:        "unexpected",
	KindInvalidBackground: "invalid_background",
	KindNotFound:          "not_found",
	KindNetwork:           "network_error",
	KindBadStatus:         "bad_status",
	KindCache:             "cache_error",
	KindAssetNotFound:     "asset_not_found",
	KindFontNotFound:      "font_not_found",
	KindWrite:             "write_error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is a render failure. Message is what callers get to see, the
// wrapped cause only goes to the logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}
