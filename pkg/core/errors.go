// pkg/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against ParseError and ResolutionError.
var (
	ErrFileAccess            = errors.New("cannot access file")
	ErrUnsupportedFormat     = errors.New("file format not supported")
	ErrFormatVersion         = errors.New("unsupported format version")
	ErrUnknownSection        = errors.New("unknown section")
	ErrMalformedRecord       = errors.New("malformed record")
	ErrUnsupportedMarkerType = errors.New("unsupported marker type")

	ErrResolutionPrecondition = errors.New("resolution precondition violated")
	ErrInvalidReference       = errors.New("invalid marker reference")
	ErrCycleDetected          = errors.New("cyclic marker reference")

	ErrNotFound         = errors.New("not found")
	ErrUnsupportedUnits = errors.New("unit not supported")
)

// ParseErrorKind classifies a fatal load failure.
type ParseErrorKind int

const (
	ParseFileAccess ParseErrorKind = iota
	ParseUnsupportedFormat
	ParseFormatVersion
	ParseUnknownSection
	ParseMalformedRecord
	ParseUnsupportedMarkerType
)

func (k ParseErrorKind) sentinel() error {
	switch k {
	case ParseFileAccess:
		return ErrFileAccess
	case ParseUnsupportedFormat:
		return ErrUnsupportedFormat
	case ParseFormatVersion:
		return ErrFormatVersion
	case ParseUnknownSection:
		return ErrUnknownSection
	case ParseUnsupportedMarkerType:
		return ErrUnsupportedMarkerType
	default:
		return ErrMalformedRecord
	}
}

// ParseError aborts a whole load. No partial document accompanies it.
type ParseError struct {
	Kind    ParseErrorKind
	File    string
	Line    int // 1-based, 0 when not tied to a line
	Section string
	Msg     string
	Err     error
}

func (e *ParseError) Error() string {
	where := e.File
	if where == "" {
		where = "<input>"
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d", where, e.Line)
	}
	if e.Section != "" {
		where = fmt.Sprintf("%s [%s]", where, e.Section)
	}
	msg := fmt.Sprintf("%s: %s", where, e.Kind.sentinel())
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.sentinel(), e.Err}
	}
	return []error{e.Kind.sentinel()}
}

// ResolutionErrorKind classifies why a single position could not be resolved.
type ResolutionErrorKind int

const (
	NegativeFrame ResolutionErrorKind = iota
	FrameOutOfRange
	InvalidMarkerReference
	NullMarkerReference
	InconsistentMarkerID
	CycleDetected
	DepthExceeded
)

var resolutionErrorNames = map[ResolutionErrorKind]string{
	NegativeFrame:          "negative frame id",
	FrameOutOfRange:        "frame id is too large",
	InvalidMarkerReference: "marker reference out of range",
	NullMarkerReference:    "reference to an empty marker slot",
	InconsistentMarkerID:   "marker id is inconsistent with the trajectory",
	CycleDetected:          "cyclic marker reference",
	DepthExceeded:          "marker reference chain too deep",
}

func (k ResolutionErrorKind) String() string {
	if s, ok := resolutionErrorNames[k]; ok {
		return s
	}
	return "unknown resolution error"
}

// ResolutionError aborts a single resolve call.
type ResolutionError struct {
	Kind   ResolutionErrorKind
	Marker string // name of the marker being resolved
	Index  int    // offending marker index, marker id or depth; unused for frame kinds
	Frame  int
}

func (e *ResolutionError) Error() string {
	if e.Kind == NegativeFrame || e.Kind == FrameOutOfRange {
		return fmt.Sprintf("resolve %q at frame %d: %s", e.Marker, e.Frame, e.Kind)
	}
	return fmt.Sprintf("resolve %q at frame %d: %s (%d)", e.Marker, e.Frame, e.Kind, e.Index)
}

// Is lets callers match a whole class of resolution failures.
func (e *ResolutionError) Is(target error) bool {
	switch target {
	case ErrResolutionPrecondition:
		return e.Kind == NegativeFrame || e.Kind == FrameOutOfRange
	case ErrInvalidReference:
		return e.Kind == InvalidMarkerReference || e.Kind == NullMarkerReference || e.Kind == InconsistentMarkerID
	case ErrCycleDetected:
		return e.Kind == CycleDetected || e.Kind == DepthExceeded
	}
	return false
}
