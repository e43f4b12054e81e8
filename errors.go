package strata

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common failure classes. The typed errors
// below bridge to these through their Is methods, so callers can use
// errors.Is without holding the concrete type.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("strata: entity not found")

	// ErrInvalidDiscriminator is returned when a discriminator value does
	// not resolve to any row in the lookup table.
	ErrInvalidDiscriminator = errors.New("strata: invalid discriminator")

	// ErrTypeResolution is returned when a subtype label cannot be resolved
	// to a discriminator id at insert time.
	ErrTypeResolution = errors.New("strata: type resolution failed")
)

// MissingSubtypeTableError is returned when a subtype declares no subtype
// table but the attempted operation requires one.
type MissingSubtypeTableError struct {
	label string
}

// Error returns the error string.
func (e *MissingSubtypeTableError) Error() string {
	return fmt.Sprintf("strata: subtype %q has no subtype table configured", e.label)
}

// Label returns the subtype label.
func (e *MissingSubtypeTableError) Label() string { return e.label }

// NewMissingSubtypeTableError returns a new MissingSubtypeTableError for the
// given subtype label.
func NewMissingSubtypeTableError(label string) *MissingSubtypeTableError {
	return &MissingSubtypeTableError{label: label}
}

// IsMissingSubtypeTable returns true if the error is a MissingSubtypeTableError.
func IsMissingSubtypeTable(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingSubtypeTableError
	return errors.As(err, &e)
}

// MissingDiscriminatorKeyError is returned when a subtype-table operation is
// attempted with no resolvable primary key on the instance.
type MissingDiscriminatorKeyError struct {
	label string
}

// Error returns the error string.
func (e *MissingDiscriminatorKeyError) Error() string {
	return fmt.Sprintf("strata: subtype %q has no resolvable primary key", e.label)
}

// Label returns the subtype label.
func (e *MissingDiscriminatorKeyError) Label() string { return e.label }

// NewMissingDiscriminatorKeyError returns a new MissingDiscriminatorKeyError.
func NewMissingDiscriminatorKeyError(label string) *MissingDiscriminatorKeyError {
	return &MissingDiscriminatorKeyError{label: label}
}

// IsMissingDiscriminatorKey returns true if the error is a MissingDiscriminatorKeyError.
func IsMissingDiscriminatorKey(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingDiscriminatorKeyError
	return errors.As(err, &e)
}

// InvalidDiscriminatorError is returned when a discriminator value has no
// matching row in the lookup table.
type InvalidDiscriminatorError struct {
	value any
}

// Error returns the error string.
func (e *InvalidDiscriminatorError) Error() string {
	return fmt.Sprintf("strata: discriminator %v not present in lookup table", e.value)
}

// Is reports whether the target error matches ErrInvalidDiscriminator.
func (e *InvalidDiscriminatorError) Is(err error) bool {
	return err == ErrInvalidDiscriminator
}

// Value returns the unresolvable discriminator value.
func (e *InvalidDiscriminatorError) Value() any { return e.value }

// NewInvalidDiscriminatorError returns a new InvalidDiscriminatorError for
// the given discriminator value.
func NewInvalidDiscriminatorError(value any) *InvalidDiscriminatorError {
	return &InvalidDiscriminatorError{value: value}
}

// IsInvalidDiscriminator returns true if the error is an InvalidDiscriminatorError.
func IsInvalidDiscriminator(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidDiscriminatorError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidDiscriminator)
}

// MissingLookupTableError is returned when subtype resolution is attempted on
// a parent schema with no lookup table configured.
type MissingLookupTableError struct {
	parent string
}

// Error returns the error string.
func (e *MissingLookupTableError) Error() string {
	return fmt.Sprintf("strata: parent %q has no lookup table configured", e.parent)
}

// Parent returns the parent table name.
func (e *MissingLookupTableError) Parent() string { return e.parent }

// NewMissingLookupTableError returns a new MissingLookupTableError.
func NewMissingLookupTableError(parent string) *MissingLookupTableError {
	return &MissingLookupTableError{parent: parent}
}

// IsMissingLookupTable returns true if the error is a MissingLookupTableError.
func IsMissingLookupTable(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingLookupTableError
	return errors.As(err, &e)
}

// MissingRequiredPropertyError is returned when a required configuration
// property is absent on a schema that needs it.
type MissingRequiredPropertyError struct {
	owner    string
	property string
}

// Error returns the error string.
func (e *MissingRequiredPropertyError) Error() string {
	return fmt.Sprintf("strata: %s is missing required property %q", e.owner, e.property)
}

// Owner returns the schema or subtype the property is missing on.
func (e *MissingRequiredPropertyError) Owner() string { return e.owner }

// Property returns the missing property name.
func (e *MissingRequiredPropertyError) Property() string { return e.property }

// NewMissingRequiredPropertyError returns a new MissingRequiredPropertyError.
func NewMissingRequiredPropertyError(owner, property string) *MissingRequiredPropertyError {
	return &MissingRequiredPropertyError{owner: owner, property: property}
}

// IsMissingRequiredProperty returns true if the error is a MissingRequiredPropertyError.
func IsMissingRequiredProperty(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingRequiredPropertyError
	return errors.As(err, &e)
}

// TypeResolutionError is returned when a subtype label cannot be resolved to
// a discriminator id via the lookup table at insert time.
type TypeResolutionError struct {
	label string
}

// Error returns the error string.
func (e *TypeResolutionError) Error() string {
	return fmt.Sprintf("strata: label %q could not be resolved to a discriminator id", e.label)
}

// Is reports whether the target error matches ErrTypeResolution.
func (e *TypeResolutionError) Is(err error) bool {
	return err == ErrTypeResolution
}

// Label returns the unresolvable label.
func (e *TypeResolutionError) Label() string { return e.label }

// NewTypeResolutionError returns a new TypeResolutionError for the given label.
func NewTypeResolutionError(label string) *TypeResolutionError {
	return &TypeResolutionError{label: label}
}

// IsTypeResolution returns true if the error is a TypeResolutionError.
func IsTypeResolution(err error) bool {
	if err == nil {
		return false
	}
	var e *TypeResolutionError
	return errors.As(err, &e) || errors.Is(err, ErrTypeResolution)
}

// SaveError wraps a failed save operation with its original cause.
type SaveError struct {
	entity string
	wrap   error
}

// Error returns the error string.
func (e *SaveError) Error() string {
	return fmt.Sprintf("strata: saving %s: %v", e.entity, e.wrap)
}

// Unwrap returns the underlying error.
func (e *SaveError) Unwrap() error { return e.wrap }

// NewSaveError returns a new SaveError wrapping the original cause.
func NewSaveError(entity string, wrap error) *SaveError {
	return &SaveError{entity: entity, wrap: wrap}
}

// IsSaveError returns true if the error is a SaveError.
func IsSaveError(err error) bool {
	if err == nil {
		return false
	}
	var e *SaveError
	return errors.As(err, &e)
}

// DeleteError wraps a failed delete operation with its original cause.
type DeleteError struct {
	entity string
	wrap   error
}

// Error returns the error string.
func (e *DeleteError) Error() string {
	return fmt.Sprintf("strata: deleting %s: %v", e.entity, e.wrap)
}

// Unwrap returns the underlying error.
func (e *DeleteError) Unwrap() error { return e.wrap }

// NewDeleteError returns a new DeleteError wrapping the original cause.
func NewDeleteError(entity string, wrap error) *DeleteError {
	return &DeleteError{entity: entity, wrap: wrap}
}

// IsDeleteError returns true if the error is a DeleteError.
func IsDeleteError(err error) bool {
	if err == nil {
		return false
	}
	var e *DeleteError
	return errors.As(err, &e)
}

// OverlappingColumnsError is returned when a subtype's declared attribute
// list intersects the parent table's column set.
type OverlappingColumnsError struct {
	label   string
	columns []string
}

// Error returns the error string.
func (e *OverlappingColumnsError) Error() string {
	return fmt.Sprintf("strata: subtype %q declares attributes overlapping parent columns: %s",
		e.label, strings.Join(e.columns, ", "))
}

// Label returns the offending subtype label.
func (e *OverlappingColumnsError) Label() string { return e.label }

// Columns returns the overlapping column names.
func (e *OverlappingColumnsError) Columns() []string {
	return append([]string(nil), e.columns...)
}

// NewOverlappingColumnsError returns a new OverlappingColumnsError naming the
// subtype and the offending columns.
func NewOverlappingColumnsError(label string, columns []string) *OverlappingColumnsError {
	return &OverlappingColumnsError{label: label, columns: columns}
}

// IsOverlappingColumns returns true if the error is an OverlappingColumnsError.
func IsOverlappingColumns(err error) bool {
	if err == nil {
		return false
	}
	var e *OverlappingColumnsError
	return errors.As(err, &e)
}

// NotFoundError is returned when a find by primary key matches no row.
type NotFoundError struct {
	entity string
	id     any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("strata: %s not found (id=%v)", e.entity, e.id)
	}
	return fmt.Sprintf("strata: %s not found", e.entity)
}

// Is reports whether the target error matches ErrNotFound.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(entity string, id any) *NotFoundError {
	return &NotFoundError{entity: entity, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}
