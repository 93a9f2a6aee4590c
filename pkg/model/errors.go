package model

import (
	"errors"
	"fmt"
	"strings"
)

// Validation and lookup failures. Operations wrap these with the attribute or
// value involved; match them with errors.Is.
var (
	ErrAttributeNotFound     = errors.New("attribute not found")
	ErrTypeNotSpecified      = errors.New("type not specified")
	ErrPredicateNotSpecified = errors.New("triple predicate not specified")
	ErrTypeMismatch          = errors.New("type mismatch")
	ErrCardinalityMismatch   = errors.New("cardinality mismatch")
	ErrUrnNotSet             = errors.New("urn is not set")
	ErrRequiredValuesMissing = errors.New("required values missing")
	ErrPrefixNotFound        = errors.New("prefix not found")

	ErrAlreadyBound       = errors.New("entity already has a urn")
	ErrDuplicatePredicate = errors.New("predicate already mapped")
	ErrInvalidTemplate    = errors.New("invalid urn template")
	ErrUnknownKind        = errors.New("unknown entity kind")
)

// RequiredValuesMissingError lists every required attribute absent from a
// create call.
type RequiredValuesMissingError struct {
	Missing []string
}

func (e *RequiredValuesMissingError) Error() string {
	return fmt.Sprintf("required values missing (%s)", strings.Join(e.Missing, ","))
}

func (e *RequiredValuesMissingError) Is(target error) bool {
	return target == ErrRequiredValuesMissing
}

// ChangeError reports a store failure part way through a non-transactional
// change. Applied holds the attributes written to URN before Key failed.
type ChangeError struct {
	URN     string
	Applied []string
	Key     string
	Err     error
}

func (e *ChangeError) Error() string {
	return fmt.Sprintf("change of %s failed at %q after applying [%s]: %v", e.URN, e.Key, strings.Join(e.Applied, ","), e.Err)
}

func (e *ChangeError) Unwrap() error { return e.Err }
