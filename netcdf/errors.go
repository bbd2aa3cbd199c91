package netcdf

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the class of an [Error]. The names returned by
// [ErrorKind.String] are part of the host contract and must not change.
type ErrorKind int

const (
	KindEmpty ErrorKind = iota
	KindInvalidFile
	KindUnsupportedVersion
	KindUnsupportedListType
	KindNonZeroValue
	KindUnsupportedZeroListType
	KindUTF8
	KindUnknownType
	KindParse
	KindIO
	KindNoVariables
	KindNoDimensions
	KindVariableNotFound
	KindDimensionNotFound
	KindInvalidIndex
)

var kindNames = [...]string{
	KindEmpty:                   "EmptyError",
	KindInvalidFile:             "InvalidFile",
	KindUnsupportedVersion:      "UnsupportedNetCDFVersion",
	KindUnsupportedListType:     "UnsupportedListType",
	KindNonZeroValue:            "NonZeroValue",
	KindUnsupportedZeroListType: "UnsupportedZeroListType",
	KindUTF8:                    "UTF8error",
	KindUnknownType:             "UnknownNetCDFType",
	KindParse:                   "ParsingError",
	KindIO:                      "IOError",
	KindNoVariables:             "NoVariablesInFile",
	KindNoDimensions:            "NoDimensionsInFile",
	KindVariableNotFound:        "VariableNotFound",
	KindDimensionNotFound:       "CouldNotFindDimension",
	KindInvalidIndex:            "InvalidIndex",
}

// Kinds lists every error kind.
var Kinds = []ErrorKind{
	KindEmpty, KindInvalidFile, KindUnsupportedVersion, KindUnsupportedListType,
	KindNonZeroValue, KindUnsupportedZeroListType, KindUTF8, KindUnknownType,
	KindParse, KindIO, KindNoVariables, KindNoDimensions, KindVariableNotFound,
	KindDimensionNotFound, KindInvalidIndex,
}

func (k ErrorKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the error type returned by parsing and data access.
//
// Only the payload field that belongs to Kind is set: Value for
// UnsupportedListType and NonZeroValue, Type for UnknownNetCDFType, Name for
// VariableNotFound, CouldNotFindDimension and InvalidIndex, and Err for
// ParsingError and IOError.
type Error struct {
	Kind  ErrorKind
	Value uint32
	Type  int
	Name  string
	Err   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindEmpty:
		return "netcdf: empty file"
	case KindInvalidFile:
		if e.Err != nil {
			return "netcdf: not a netCDF classic file: " + e.Err.Error()
		}
		return "netcdf: not a netCDF classic file"
	case KindUnsupportedVersion:
		return "netcdf: unsupported format version"
	case KindUnsupportedListType:
		return fmt.Sprintf("netcdf: unsupported list type 0x%x", e.Value)
	case KindNonZeroValue:
		return fmt.Sprintf("netcdf: absent list with non-zero count %d", e.Value)
	case KindUnsupportedZeroListType:
		return "netcdf: list tag with zero elements"
	case KindUTF8:
		return "netcdf: name is not valid UTF-8"
	case KindUnknownType:
		return fmt.Sprintf("netcdf: unknown type tag %d", e.Type)
	case KindParse:
		if e.Err != nil {
			return "netcdf: parsing header: " + e.Err.Error()
		}
		return "netcdf: parsing header failed"
	case KindIO:
		if e.Err != nil {
			return "netcdf: " + e.Err.Error()
		}
		return "netcdf: i/o error"
	case KindNoVariables:
		return "netcdf: no variables in file"
	case KindNoDimensions:
		return "netcdf: no dimensions in file"
	case KindVariableNotFound:
		return fmt.Sprintf("netcdf: variable %q not found", e.Name)
	case KindDimensionNotFound:
		return fmt.Sprintf("netcdf: dimension %q not found", e.Name)
	case KindInvalidIndex:
		return "netcdf: invalid index: " + e.Name
	default:
		return "netcdf: " + e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so that the
// package sentinels match any payload.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// ErrHDF5 is wrapped by the InvalidFile error returned for netCDF-4 files,
// which are stored as HDF5.
var ErrHDF5 = errors.New("netCDF-4/HDF5 files are not supported")

// Sentinels for errors.Is. They match every error of their kind regardless of
// payload.
var (
	ErrEmpty                   = &Error{Kind: KindEmpty}
	ErrInvalidFile             = &Error{Kind: KindInvalidFile}
	ErrUnsupportedVersion      = &Error{Kind: KindUnsupportedVersion}
	ErrUnsupportedListType     = &Error{Kind: KindUnsupportedListType}
	ErrNonZeroValue            = &Error{Kind: KindNonZeroValue}
	ErrUnsupportedZeroListType = &Error{Kind: KindUnsupportedZeroListType}
	ErrUTF8                    = &Error{Kind: KindUTF8}
	ErrUnknownType             = &Error{Kind: KindUnknownType}
	ErrParse                   = &Error{Kind: KindParse}
	ErrIO                      = &Error{Kind: KindIO}
	ErrNoVariables             = &Error{Kind: KindNoVariables}
	ErrNoDimensions            = &Error{Kind: KindNoDimensions}
	ErrVariableNotFound        = &Error{Kind: KindVariableNotFound}
	ErrDimensionNotFound       = &Error{Kind: KindDimensionNotFound}
	ErrInvalidIndex            = &Error{Kind: KindInvalidIndex}
)

// ErrClosed is returned by every method of a closed [File].
var ErrClosed = errors.New("netcdf: file is closed")

func variableNotFound(name string) error {
	return &Error{Kind: KindVariableNotFound, Name: name}
}

func dimensionNotFound(name string) error {
	return &Error{Kind: KindDimensionNotFound, Name: name}
}

func invalidIndex(err error) error {
	return &Error{Kind: KindInvalidIndex, Name: err.Error(), Err: err}
}

func ioError(err error) error {
	return &Error{Kind: KindIO, Err: err}
}
