package mcclient

import "strconv"

// Status is the outcome of one primitive on the connection.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusNotFound
	StatusNotStored
	StatusDataExists
	StatusNoKeyProvided
	StatusBadKeyProvided
	StatusServerOutOfMemory

	// StatusEnd terminates a multi-get stream.
	StatusEnd

	StatusConnectionFailure
	StatusTimeout
	StatusBreakerOpen
	StatusProtocolError
	StatusClientError
	StatusServerError
	StatusUnknown
)

var statusNames = [...]string{
	StatusSuccess:           "success",
	StatusFailure:           "failure",
	StatusNotFound:          "not found",
	StatusNotStored:         "not stored",
	StatusDataExists:        "data exists",
	StatusNoKeyProvided:     "no key provided",
	StatusBadKeyProvided:    "bad key provided",
	StatusServerOutOfMemory: "server out of memory",
	StatusEnd:               "end",
	StatusConnectionFailure: "connection failure",
	StatusTimeout:           "timeout",
	StatusBreakerOpen:       "circuit breaker open",
	StatusProtocolError:     "protocol error",
	StatusClientError:       "client error",
	StatusServerError:       "server error",
	StatusUnknown:           "unknown",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// IsKeyProblem reports the per-key statuses a multi-get skips.
func (s Status) IsKeyProblem() bool {
	return s == StatusNoKeyProvided || s == StatusBadKeyProvided
}

// Class is the handling category of a Status.
type Class uint8

const (
	ClassSuccess Class = iota
	// ClassRecoverable fails one item; the batch continues.
	ClassRecoverable
	// ClassFatal aborts the batch or fetch.
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassRecoverable:
		return "recoverable"
	default:
		return "fatal"
	}
}

// Classify is the single table deciding how every Status is handled.
func Classify(s Status) Class {
	switch s {
	case StatusSuccess:
		return ClassSuccess
	case StatusFailure,
		StatusNotFound,
		StatusNotStored,
		StatusDataExists,
		StatusNoKeyProvided,
		StatusBadKeyProvided,
		StatusServerOutOfMemory:
		return ClassRecoverable
	default:
		return ClassFatal
	}
}
