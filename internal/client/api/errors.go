package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized сервер отверг access или refresh токен (401)
var ErrUnauthorized = errors.New("unauthorized")

// MFARequiredError сервер требует код второго фактора для входа
type MFARequiredError struct {
	Message string
}

func (e *MFARequiredError) Error() string {
	if e.Message == "" {
		return "second factor code required"
	}
	return "second factor code required: " + e.Message
}

// StatusError неуспешный HTTP ответ, кроме 401
type StatusError struct {
	Message string
	Code    int
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (%d)", e.Code)
	}
	return fmt.Sprintf("server error (%d): %s", e.Code, e.Message)
}

// NetworkError запрос не дошел до сервера или ответ не был получен
type NetworkError struct {
	Err error
	Op  string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsStatus сообщает, является ли err ответом сервера с данным кодом
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
