package models

// ErrorKind is the closed set of failure categories the pipeline can surface.
// Every failure raised anywhere between capture hand-off and validation is
// collapsed into exactly one of these.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindNetwork       ErrorKind = "network"
	KindParse         ErrorKind = "parse"
	KindValidation    ErrorKind = "validation"
	KindTimeout       ErrorKind = "timeout"
	KindUnknown       ErrorKind = "unknown"
)

// ErrorReport is the terminal artifact of a failed pipeline run. Message is
// user-facing and localized; internal diagnostic detail stays out of it.
type ErrorReport struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}
