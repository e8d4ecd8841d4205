package service

import (
	"NewsBlog/internal/assets"
	"NewsBlog/internal/tags"
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrProtected        = errors.New("protected: belongs to deleted user")
	ErrDuplicateEmail   = errors.New("user with that email already exists")
	ErrEmailTaken       = errors.New("email already taken by another user")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrValidation       = errors.New("validation error")

	ErrInvalidTag   = tags.ErrInvalidTag
	ErrInvalidAsset = assets.ErrInvalidAsset
	ErrStorage      = assets.ErrStorage
)

// OpError: ошибка операции движка с указанием сущности и её id.
// Сообщение не содержит хешей паролей.
type OpError struct {
	Op     string
	Entity string
	ID     int64
	Msg    string
	Err    error
}

func (e *OpError) Error() string {
	s := e.Op
	if e.Entity != "" {
		s += fmt.Sprintf(" %s(id=%d)", e.Entity, e.ID)
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *OpError) Unwrap() error { return e.Err }

// Message: текст для внешнего слоя.
func (e *OpError) Message() string {
	if e.Msg == "" && errors.Is(e.Err, ErrNotFound) && e.Entity != "" {
		return fmt.Sprintf("%s with id %d not found", e.Entity, e.ID)
	}
	base := e.Msg
	if base == "" && e.Err != nil {
		base = e.Err.Error()
	}
	if e.Entity == "" {
		return base
	}
	return fmt.Sprintf("%s. Exception at %s with id %d", base, e.Entity, e.ID)
}

func opErr(op, entity string, id int64, err error, msg string) error {
	return &OpError{Op: op, Entity: entity, ID: id, Err: err, Msg: msg}
}
