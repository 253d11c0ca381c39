package domain

import "errors"

var (
	ErrNotFound          = errors.New("no encontrado")
	ErrDuplicate         = errors.New("ya existe")
	ErrInvalid           = errors.New("datos inválidos")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrDebtOutstanding   = errors.New("deuda pendiente")
)
