package services

import "net/http"

// ServiceError carries a status class and a human-readable message out of
// the service layer; controllers map it straight onto the HTTP response.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func notFound(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusNotFound, Message: msg}
}

func conflict(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusConflict, Message: msg}
}

func forbidden(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusForbidden, Message: msg}
}

func badRequest(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusBadRequest, Message: msg}
}

func unauthorized(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusUnauthorized, Message: msg}
}

func internal(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusInternalServerError, Message: msg}
}
