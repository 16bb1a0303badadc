package cloudlydb

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

var (
	// ErrItemNotFound is returned when a read finds no item for a key.
	ErrItemNotFound = errors.New("item not found")

	// ErrEmptyExpression is returned when a document compiles to no clauses.
	ErrEmptyExpression = errors.New("expression has no clauses")

	// ErrInvalidField is returned for empty field names or path segments.
	ErrInvalidField = errors.New("invalid field name")

	// ErrInvalidKey is returned when a key query is missing a key or bound.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
	ErrInvalidCursor = errors.New("invalid pagination cursor")

	// ErrIncompatibleStats is returned when stats cannot be merged.
	ErrIncompatibleStats = errors.New("incompatible stats")

	// ErrAliasConflict is returned when a condition and an update bind the
	// same placeholder to different names or values.
	ErrAliasConflict = errors.New("placeholder conflict")

	// ErrConditionNotMet is the kind of a StoreError raised when a write
	// condition evaluated to false.
	ErrConditionNotMet = errors.New("condition not met")

	// ErrMalformedItem is the kind of a StoreError raised when the store
	// rejected an expression for the shape of the stored item.
	ErrMalformedItem = errors.New("malformed item")
)

const malformedItemHint = "an update path may reference a nested map that does not exist yet; " +
	"wrap new nested maps in cloudlydb.Whole so they are written as a single value"

// StoreError is a classified store failure. It matches its Kind with
// errors.Is and unwraps to the SDK error.
type StoreError struct {
	Kind    error  // ErrConditionNotMet or ErrMalformedItem
	Op      string // operation that failed, e.g. "UpdateItem"
	Message string // message reported by the store
	Err     error  // underlying SDK error
}

func (e *StoreError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error's kind.
func (e *StoreError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// IsConditionNotMet reports whether err is a failed write condition.
func IsConditionNotMet(err error) bool {
	return errors.Is(err, ErrConditionNotMet)
}

// IsMalformedItem reports whether err is an expression rejected for the
// shape of the stored item.
func IsMalformedItem(err error) bool {
	return errors.Is(err, ErrMalformedItem)
}

// Store operation names, as reported in StoreError.Op.
const (
	opPut    = "PutItem"
	opGet    = "GetItem"
	opUpdate = "UpdateItem"
	opDelete = "DeleteItem"
	opQuery  = "Query"
)

// classifyError maps write failures onto StoreError kinds. Failed conditions
// are classified for puts, updates and deletes, validation failures only for
// puts and updates. Every other error is returned unchanged.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if op != opPut && op != opUpdate && op != opDelete {
		return err
	}

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return &StoreError{Kind: ErrConditionNotMet, Op: op, Message: ccf.ErrorMessage(), Err: err}
	}
	if op == opDelete {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ValidationException" {
		return &StoreError{
			Kind:    ErrMalformedItem,
			Op:      op,
			Message: apiErr.ErrorMessage() + ": " + malformedItemHint,
			Err:     err,
		}
	}

	return err
}
