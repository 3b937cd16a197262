package controller

import "errors"

var ErrValidationError = errors.New("validation error")
