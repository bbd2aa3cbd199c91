package boundary

import (
	"errors"
	"fmt"

	gojson "github.com/goccy/go-json"

	"github.com/robert-malhotra/go-netcdf/netcdf"
)

// NormalizedError is an error reduced to data that can cross a runtime
// boundary. Kind selects the variant; only the payload field belonging to
// the variant is meaningful.
type NormalizedError struct {
	Kind    netcdf.ErrorKind
	Value   uint32 // UnsupportedListType, NonZeroValue
	Type    int    // UnknownNetCDFType
	Message string // IOError, VariableNotFound, CouldNotFindDimension, InvalidIndex
}

// Normalize converts err. It is total: nil becomes EmptyError, netcdf errors
// keep their kind and structured payload, parse failures lose their inner
// decoder error, and every other error becomes IOError with its message.
func Normalize(err error) NormalizedError {
	if err == nil {
		return NormalizedError{Kind: netcdf.KindEmpty}
	}

	var ncErr *netcdf.Error
	if !errors.As(err, &ncErr) || ncErr == nil {
		return NormalizedError{Kind: netcdf.KindIO, Message: message(err)}
	}

	n := NormalizedError{Kind: ncErr.Kind}
	switch ncErr.Kind {
	case netcdf.KindUnsupportedListType, netcdf.KindNonZeroValue:
		n.Value = ncErr.Value
	case netcdf.KindUnknownType:
		n.Type = ncErr.Type
	case netcdf.KindVariableNotFound, netcdf.KindDimensionNotFound, netcdf.KindInvalidIndex:
		n.Message = ncErr.Name
	case netcdf.KindIO:
		if ncErr.Err != nil {
			n.Message = message(ncErr.Err)
		} else {
			n.Message = "i/o error"
		}
	case netcdf.KindEmpty, netcdf.KindInvalidFile, netcdf.KindUnsupportedVersion,
		netcdf.KindUnsupportedZeroListType, netcdf.KindUTF8, netcdf.KindParse,
		netcdf.KindNoVariables, netcdf.KindNoDimensions:
	default:
		return NormalizedError{Kind: netcdf.KindIO, Message: message(err)}
	}
	return n
}

// message returns err.Error(), surviving error types whose Error method
// panics.
func message(err error) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = fmt.Sprintf("%T", err)
		}
	}()
	return err.Error()
}

// Variant returns the variant name, for example "VariableNotFound".
func (n NormalizedError) Variant() string {
	return n.Kind.String()
}

// payload returns the variant's value, or nil for unit variants.
func (n NormalizedError) payload() any {
	switch n.Kind {
	case netcdf.KindUnsupportedListType, netcdf.KindNonZeroValue:
		return n.Value
	case netcdf.KindUnknownType:
		return n.Type
	case netcdf.KindIO, netcdf.KindVariableNotFound, netcdf.KindDimensionNotFound, netcdf.KindInvalidIndex:
		return n.Message
	default:
		return nil
	}
}

func (n NormalizedError) Error() string {
	if p := n.payload(); p != nil {
		return fmt.Sprintf("%s(%v)", n.Variant(), p)
	}
	return n.Variant()
}

// MarshalJSON encodes unit variants as a bare string ("InvalidFile") and
// payload variants as a single-key object ({"VariableNotFound":"temp"}).
func (n NormalizedError) MarshalJSON() ([]byte, error) {
	if p := n.payload(); p != nil {
		return gojson.Marshal(map[string]any{n.Variant(): p})
	}
	return gojson.Marshal(n.Variant())
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (n *NormalizedError) UnmarshalJSON(data []byte) error {
	var name string
	if err := gojson.Unmarshal(data, &name); err == nil {
		kind, ok := kindByName(name)
		if !ok {
			return fmt.Errorf("unknown error variant %q", name)
		}
		*n = NormalizedError{Kind: kind}
		return nil
	}

	var obj map[string]gojson.RawMessage
	if err := gojson.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decoding error variant: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("error variant object has %d keys", len(obj))
	}
	for name, raw := range obj {
		kind, ok := kindByName(name)
		if !ok {
			return fmt.Errorf("unknown error variant %q", name)
		}
		out := NormalizedError{Kind: kind}
		var err error
		switch out.payload().(type) {
		case uint32:
			err = gojson.Unmarshal(raw, &out.Value)
		case int:
			err = gojson.Unmarshal(raw, &out.Type)
		case string:
			err = gojson.Unmarshal(raw, &out.Message)
		}
		if err != nil {
			return fmt.Errorf("decoding %s payload: %w", name, err)
		}
		*n = out
	}
	return nil
}

func kindByName(name string) (netcdf.ErrorKind, bool) {
	for _, k := range netcdf.Kinds {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}
