package extract

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
)

// ErrInvalidRoot is wrapped by the FatalError returned when the scan root
// does not exist or is not a directory.
var ErrInvalidRoot = errors.New("invalid scan root")

// A FatalError prevents a scan from producing any inventory.
type FatalError struct {
	Root string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("cannot scan %q: %s", e.Root, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// A ParseError reports an artifact whose bytes do not match the format its
// parser expects.
type ParseError struct {
	ParserID string
	Path     string
	Err      error
}

// NewParseError returns a ParseError for the given candidate.
func NewParseError(candidate Candidate, err error) *ParseError {
	return &ParseError{
		ParserID: candidate.ParserID,
		Path:     candidate.RelPath,
		Err:      err,
	}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse %s: %s", e.ParserID, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies a ScanError.
type ErrorKind string

const (
	// ErrorAccess is an unreadable filesystem entry.
	ErrorAccess ErrorKind = "access"

	// ErrorParse is an artifact that did not match its expected format.
	ErrorParse ErrorKind = "parse"

	// ErrorTimeout is a parser that did not finish within the per-candidate
	// timeout.
	ErrorTimeout ErrorKind = "timeout"
)

// A ScanError is a non-fatal failure recorded against a single path.
type ScanError struct {
	Path     string
	Reason   string
	Kind     ErrorKind
	ParserID string
}

func accessError(path string, err error) ScanError {
	return ScanError{
		Path:   path,
		Reason: err.Error(),
		Kind:   ErrorAccess,
	}
}

// parseFailure classifies a parser error. Files the parser could not open
// are access errors, everything else is a parse error.
func parseFailure(candidate Candidate, err error) ScanError {
	kind := ErrorParse
	if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
		kind = ErrorAccess
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		err = parseErr.Err
	}

	return ScanError{
		Path:     candidate.RelPath,
		Reason:   err.Error(),
		Kind:     kind,
		ParserID: candidate.ParserID,
	}
}

func timeoutFailure(candidate Candidate, err error) ScanError {
	return ScanError{
		Path:     candidate.RelPath,
		Reason:   fmt.Sprintf("parser did not finish: %s", err),
		Kind:     ErrorTimeout,
		ParserID: candidate.ParserID,
	}
}

// sortErrors orders errors by path so that reports do not depend on worker
// scheduling.
func sortErrors(errs []ScanError) {
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Path != errs[j].Path {
			return errs[i].Path < errs[j].Path
		}

		if errs[i].ParserID != errs[j].ParserID {
			return errs[i].ParserID < errs[j].ParserID
		}

		return errs[i].Reason < errs[j].Reason
	})
}
