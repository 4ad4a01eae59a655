/*
 * Copyright (c) 2021-present Sigma-Soft, Ltd.
 */

package cim

import (
	"errors"
	"fmt"
	"strconv"
)

func EnrichError(err error, msg string, args ...any) error {
	s := msg
	if len(args) > 0 {
		s = fmt.Sprintf(msg, args...)
	}
	return fmt.Errorf("%w: %s", err, s)
}

var ErrFailedError = errors.New("operation failed")

func ErrFailed(msg string, args ...any) error {
	return EnrichError(ErrFailedError, msg, args...)
}

var ErrInvalidNamespaceError = errors.New("invalid namespace")

func ErrInvalidNamespace(msg string, args ...any) error {
	return EnrichError(ErrInvalidNamespaceError, msg, args...)
}

func ErrNamespaceNotRegistered(ns string) error {
	return ErrInvalidNamespace("namespace «%s» does not exist in the repository", ns)
}

var ErrInvalidParameterError = errors.New("invalid parameter")

func ErrInvalidParameter(msg string, args ...any) error {
	return EnrichError(ErrInvalidParameterError, msg, args...)
}

var ErrNotFoundError = errors.New("not found")

func ErrNotFound(msg string, args ...any) error {
	return EnrichError(ErrNotFoundError, msg, args...)
}

func ErrClassNotFound(class, ns string) error {
	return ErrNotFound("class «%s» in namespace «%s»", class, ns)
}

func ErrQualifierNotFound(qualifier, ns string) error {
	return ErrNotFound("qualifier declaration «%s» in namespace «%s»", qualifier, ns)
}

func ErrInstanceNotFound(path *Path, ns string) error {
	return ErrNotFound("instance «%v» in namespace «%s»", path, ns)
}

var ErrNotSupportedError = errors.New("not supported")

func ErrNotSupported(msg string, args ...any) error {
	return EnrichError(ErrNotSupportedError, msg, args...)
}

var ErrInvalidSuperclassError = errors.New("invalid superclass")

func ErrInvalidSuperclass(msg string, args ...any) error {
	return EnrichError(ErrInvalidSuperclassError, msg, args...)
}

var ErrAlreadyExistsError = errors.New("already exists")

func ErrAlreadyExists(msg string, args ...any) error {
	return EnrichError(ErrAlreadyExistsError, msg, args...)
}

var ErrNamespaceNotEmptyError = errors.New("namespace is not empty")

func ErrNamespaceNotEmpty(msg string, args ...any) error {
	return EnrichError(ErrNamespaceNotEmptyError, msg, args...)
}

// Status is a numeric CIM status code from DSP0200. Operation errors map
// to these codes for protocol front ends, see StatusOf.
type Status uint16

const (
	Status_OK Status = 0

	Status_Failed                    Status = 1
	Status_AccessDenied              Status = 2
	Status_InvalidNamespace          Status = 3
	Status_InvalidParameter          Status = 4
	Status_InvalidClass              Status = 5
	Status_NotFound                  Status = 6
	Status_NotSupported              Status = 7
	Status_ClassHasChildren          Status = 8
	Status_ClassHasInstances         Status = 9
	Status_InvalidSuperclass         Status = 10
	Status_AlreadyExists             Status = 11
	Status_NoSuchProperty            Status = 12
	Status_TypeMismatch              Status = 13
	Status_QueryLanguageNotSupported Status = 14
	Status_InvalidQuery              Status = 15
	Status_MethodNotAvailable        Status = 16
	Status_MethodNotFound            Status = 17
	Status_NamespaceNotEmpty         Status = 20
)

var statusNames = map[Status]string{
	Status_OK:                        "CIM_ERR_OK",
	Status_Failed:                    "CIM_ERR_FAILED",
	Status_AccessDenied:              "CIM_ERR_ACCESS_DENIED",
	Status_InvalidNamespace:          "CIM_ERR_INVALID_NAMESPACE",
	Status_InvalidParameter:          "CIM_ERR_INVALID_PARAMETER",
	Status_InvalidClass:              "CIM_ERR_INVALID_CLASS",
	Status_NotFound:                  "CIM_ERR_NOT_FOUND",
	Status_NotSupported:              "CIM_ERR_NOT_SUPPORTED",
	Status_ClassHasChildren:          "CIM_ERR_CLASS_HAS_CHILDREN",
	Status_ClassHasInstances:         "CIM_ERR_CLASS_HAS_INSTANCES",
	Status_InvalidSuperclass:         "CIM_ERR_INVALID_SUPERCLASS",
	Status_AlreadyExists:             "CIM_ERR_ALREADY_EXISTS",
	Status_NoSuchProperty:            "CIM_ERR_NO_SUCH_PROPERTY",
	Status_TypeMismatch:              "CIM_ERR_TYPE_MISMATCH",
	Status_QueryLanguageNotSupported: "CIM_ERR_QUERY_LANGUAGE_NOT_SUPPORTED",
	Status_InvalidQuery:              "CIM_ERR_INVALID_QUERY",
	Status_MethodNotAvailable:        "CIM_ERR_METHOD_NOT_AVAILABLE",
	Status_MethodNotFound:            "CIM_ERR_METHOD_NOT_FOUND",
	Status_NamespaceNotEmpty:         "CIM_ERR_NAMESPACE_NOT_EMPTY",
}

// String renders the status in its DSP0200 spelling («CIM_ERR_NOT_FOUND», …).
func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	const base = 10
	return "Status(" + strconv.FormatUint(uint64(s), base) + ")"
}

// StatusOf maps an operation error to its CIM status code.
//
// nil maps to Status_OK, errors outside the taxonomy map to Status_Failed.
// The invalid parameter kind is matched first, so errors translated from
// a collaborator failure keep the translated code.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return Status_OK
	case errors.Is(err, ErrInvalidNamespaceError):
		return Status_InvalidNamespace
	case errors.Is(err, ErrInvalidParameterError):
		return Status_InvalidParameter
	case errors.Is(err, ErrInvalidSuperclassError):
		return Status_InvalidSuperclass
	case errors.Is(err, ErrNotFoundError):
		return Status_NotFound
	case errors.Is(err, ErrNotSupportedError):
		return Status_NotSupported
	case errors.Is(err, ErrAlreadyExistsError):
		return Status_AlreadyExists
	case errors.Is(err, ErrNamespaceNotEmptyError):
		return Status_NamespaceNotEmpty
	}
	return Status_Failed
}
