package bassdts

import (
	"errors"
	"fmt"
)

// ErrorCode is an engine last-error code.
//
// ErrorCode implements error so that errors.Is can match a specific code
// through an *Error:
//
//	if errors.Is(err, bassdts.ErrorFileOpen) { ... }
type ErrorCode int32

// Engine error codes
const (
	ErrorOK           ErrorCode = 0
	ErrorMem          ErrorCode = 1  // Memory error
	ErrorFileOpen     ErrorCode = 2  // Can't open the file
	ErrorDriver       ErrorCode = 3  // Can't find a free/valid driver
	ErrorBufLost      ErrorCode = 4  // The sample buffer was lost
	ErrorHandle       ErrorCode = 5  // Invalid handle
	ErrorFormat       ErrorCode = 6  // Unsupported sample format
	ErrorPosition     ErrorCode = 7  // Invalid position
	ErrorInit         ErrorCode = 8  // Init has not been successfully called
	ErrorStart        ErrorCode = 9  // Start has not been successfully called
	ErrorAlready      ErrorCode = 14 // Already initialized/paused/whatever
	ErrorNotAudio     ErrorCode = 17 // File does not contain audio
	ErrorNoChan       ErrorCode = 18 // Can't get a free channel
	ErrorIllType      ErrorCode = 19 // An illegal type was specified
	ErrorIllParam     ErrorCode = 20 // An illegal parameter was specified
	ErrorDevice       ErrorCode = 23 // Illegal device number
	ErrorNoPlay       ErrorCode = 24 // Not playing
	ErrorFreq         ErrorCode = 25 // Illegal sample rate
	ErrorNotFile      ErrorCode = 27 // The stream is not a file stream
	ErrorNoHW         ErrorCode = 29 // No hardware voices available
	ErrorEmpty        ErrorCode = 31 // The file has no sample data
	ErrorCreate       ErrorCode = 33 // Couldn't create the file
	ErrorNotAvail     ErrorCode = 37 // Requested data/action is not available
	ErrorDecode       ErrorCode = 38 // The channel is/isn't a decoding channel
	ErrorFileForm     ErrorCode = 41 // Unsupported file format
	ErrorVersion      ErrorCode = 43 // Invalid engine version (used by add-ons)
	ErrorCodec        ErrorCode = 44 // Codec is not available/supported
	ErrorEnded        ErrorCode = 45 // The channel/file has ended
	ErrorBusy         ErrorCode = 46 // The device is busy
	ErrorUnknown      ErrorCode = -1 // Some other mystery problem
	errorUnclassified ErrorCode = -2
)

var errorCodeNames = map[ErrorCode]string{
	ErrorOK:       "ok",
	ErrorMem:      "memory error",
	ErrorFileOpen: "cannot open file",
	ErrorDriver:   "no driver",
	ErrorBufLost:  "buffer lost",
	ErrorHandle:   "invalid handle",
	ErrorFormat:   "unsupported sample format",
	ErrorPosition: "invalid position",
	ErrorInit:     "not initialized",
	ErrorStart:    "not started",
	ErrorAlready:  "already",
	ErrorNotAudio: "no audio",
	ErrorNoChan:   "no free channel",
	ErrorIllType:  "illegal type",
	ErrorIllParam: "illegal parameter",
	ErrorDevice:   "illegal device",
	ErrorNoPlay:   "not playing",
	ErrorFreq:     "illegal sample rate",
	ErrorNotFile:  "not a file stream",
	ErrorNoHW:     "no hardware voices",
	ErrorEmpty:    "no sample data",
	ErrorCreate:   "cannot create file",
	ErrorNotAvail: "not available",
	ErrorDecode:   "decode channel mismatch",
	ErrorFileForm: "unsupported file format",
	ErrorVersion:  "invalid version",
	ErrorCodec:    "codec not available",
	ErrorEnded:    "ended",
	ErrorBusy:     "device busy",
	ErrorUnknown:  "unknown error",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("error %d", int32(c))
}

func (c ErrorCode) Error() string { return c.String() }

// Error is returned when an engine call fails. Code is the engine's
// last-error code read immediately after the failing call.
type Error struct {
	Op   string
	Code ErrorCode
}

func (e *Error) Error() string {
	return fmt.Sprintf("bassdts: %s: %s (%d)", e.Op, e.Code, int32(e.Code))
}

// Unwrap exposes the code for errors.Is.
func (e *Error) Unwrap() error { return e.Code }

// engineError builds an *Error from the engine's last-error slot.
func engineError(engine Engine, op string) *Error {
	code := engine.ErrorGetCode()
	if code == ErrorOK {
		// The engine failed without setting an error.
		code = errorUnclassified
	}
	return &Error{Op: op, Code: code}
}

// Common errors
var (
	ErrEngineUnavailable     = errors.New("bassdts: audio engine not available")
	ErrStreamsOpen           = errors.New("bassdts: plugin has open streams")
	ErrClosed                = errors.New("bassdts: stream closed")
	ErrUnexpectedChannelType = errors.New("bassdts: unexpected channel type")
	ErrNotDecodeChannel      = errors.New("bassdts: not a decode channel")
)
