package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence failed")
	ErrAssetFetch  = errors.New("asset fetch failed")
	ErrCorruptData = errors.New("corrupt catalog data")
)

// Rule names the validation rule a rejected mutation violated.
type Rule string

const (
	RuleIDRequired   Rule = "id_required"
	RuleNameRequired Rule = "name_required"
	RuleDuplicateID  Rule = "duplicate_id"
	RuleInvalidPrice Rule = "invalid_price"
	RuleInvalidTheme Rule = "invalid_theme"
	RuleInvalidID    Rule = "invalid_id"
	RuleReservedID   Rule = "reserved_id"
)

type Entity string

const (
	EntityCategory    Entity = "category"
	EntitySubcategory Entity = "subcategory"
	EntityItem        Entity = "item"
)

// Error is a classified catalog error. Kind is one of the Err* sentinels above and
// is matched by errors.Is.
type Error struct {
	Kind   error
	Op     string
	Entity Entity
	ID     string
	Rule   Rule
	Cause  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	switch {
	case e.Entity != "":
		msg += fmt.Sprintf(": %s %q", e.Entity, e.ID)
	case e.ID != "":
		msg += fmt.Sprintf(": %q", e.ID)
	}
	if e.Rule != "" {
		msg += fmt.Sprintf(" (%s)", e.Rule)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func ValidationError(op string, entity Entity, id string, rule Rule, cause error) *Error {
	return &Error{Kind: ErrValidation, Op: op, Entity: entity, ID: id, Rule: rule, Cause: cause}
}

func NotFoundError(op string, entity Entity, id string) *Error {
	return &Error{Kind: ErrNotFound, Op: op, Entity: entity, ID: id}
}

func PersistenceError(op string, cause error) *Error {
	return &Error{Kind: ErrPersistence, Op: op, Cause: cause}
}

func CorruptDataError(op string, cause error) *Error {
	return &Error{Kind: ErrCorruptData, Op: op, Cause: cause}
}

func AssetFetchError(op string, ref AssetRef, cause error) *Error {
	return &Error{Kind: ErrAssetFetch, Op: op, ID: string(ref), Cause: cause}
}

// RuleOf returns the violated rule of a validation error, or "" for any other error.
// Rules wrapped inside another classified error, such as a corrupt document, are found too.
func RuleOf(err error) Rule {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return ""
		}
		if e.Rule != "" {
			return e.Rule
		}
		err = e.Cause
	}
	return ""
}
