package iso9660

import "fmt"

// Kind classifies a failure the way callers of the builder need to react to
// it: abort cleanly before writing (InvalidInput), surface a missing source
// (NotFound), report an internal invariant violation (InvalidData), or
// propagate an underlying sink failure (Io).
type Kind int

const (
	// InvalidInput covers malformed destination paths, disallowed filename
	// characters, duplicate entries, path-table overflow, and ESP sizes
	// below the legal minimum.
	InvalidInput Kind = iota
	// NotFound means a source byte stream could not be opened.
	NotFound
	// InvalidData means FAT formatting produced an inconsistent volume.
	InvalidData
	// Io covers underlying byte-sink failures: short writes, out-of-range
	// seeks, disk full.
	Io
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case NotFound:
		return "NotFound"
	case InvalidData:
		return "InvalidData"
	case Io:
		return "Io"
	default:
		return "Unknown"
	}
}

// Error is the single error type returned by this package. Every fallible
// operation returns one of these (or wraps one), tagged with a Kind so
// callers can branch with errors.Is against the exported sentinels below.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("iso9660: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("iso9660: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is one of the Kind sentinels (ErrInvalidInput,
// ErrNotFound, ErrInvalidData, ErrIo) matching this error's Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(kindSentinel)
	return ok && k.kind == e.Kind
}

type kindSentinel struct{ kind Kind }

func (k kindSentinel) Error() string { return "iso9660: " + k.kind.String() }

// Sentinels usable with errors.Is(err, iso9660.ErrInvalidInput).
var (
	ErrInvalidInput = error(kindSentinel{InvalidInput})
	ErrNotFound     = error(kindSentinel{NotFound})
	ErrInvalidData  = error(kindSentinel{InvalidData})
	ErrIo           = error(kindSentinel{Io})
)

func newErr(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func invalidInputf(op, format string, args ...any) *Error {
	return newErr(InvalidInput, op, fmt.Errorf(format, args...))
}
