package flexvalue

import "errors"

var (
	ErrUnsupportedType = errors.New("flexvalue: unsupported value type")
	ErrInvalidWire     = errors.New("flexvalue: invalid wire value")
	ErrInvalidLocale   = errors.New("flexvalue: invalid locale code")
	ErrDuplicateLocale = errors.New("flexvalue: duplicate locale code")
	ErrEmptyLocalized  = errors.New("flexvalue: localized value requires at least one entry")
	ErrNestedLocalized = errors.New("flexvalue: localized entries must hold single values")
)
