package repository

import "errors"

// ErrNotFound is returned by lookups by id that match no row.
var ErrNotFound = errors.New("record not found")

// ErrActiveRegisterExists is returned by CreateRegister when the desk already
// has an Active register (unique index uq_cash_registers_active_desk).
var ErrActiveRegisterExists = errors.New("active register already exists for desk")
