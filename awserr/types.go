// Copyright (C) Hill Labs, Inc. 2025-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package awserr represents coded errors raised while resolving credentials
// or signing requests.
package awserr

import "fmt"

// An Error wraps lower level errors with a code, message, and an original
// error. The underlying concrete error type may also satisfy other interfaces
// which can be used to obtain more specific information about the error.
type Error interface {
	error

	// Code returns the short phrase depicting the classification of the error.
	Code() string

	// Message returns the error details message.
	Message() string

	// OrigErr returns the original error if one was set. Nil is returned if
	// no error was set.
	OrigErr() error
}

// BatchedErrors is a batch of errors which also wraps lower level errors with
// code, message, and original errors. Calling Error() will include all errors
// that occurred in the batch.
type BatchedErrors interface {
	Error

	// OrigErrs returns the original errors if one or more errors were set.
	// Nil is returned if no error was set.
	OrigErrs() []error
}

// New returns an Error object described by the code, message, and origErr.
//
// If origErr satisfies the Error interface it will not be wrapped within a new
// Error object and will instead be returned.
func New(code, message string, origErr error) Error {
	var errs []error
	if origErr != nil {
		errs = append(errs, origErr)
	}
	return newBaseError(code, message, errs)
}

// NewBatchError returns a BatchedErrors with a collection of errors as an
// array of errors.
func NewBatchError(code, message string, errs []error) BatchedErrors {
	return newBaseError(code, message, errs)
}

// SprintError returns a string of the formatted error code.
//
// Both extra and origErr are optional. If they are included their lines will
// be added, but if they are not included their lines will be ignored.
func SprintError(code, message, extra string, origErr error) string {
	msg := fmt.Sprintf("%s: %s", code, message)
	if extra != "" {
		msg = fmt.Sprintf("%s\n\t%s", msg, extra)
	}
	if origErr != nil {
		msg = fmt.Sprintf("%s\ncaused by: %s", msg, origErr.Error())
	}
	return msg
}

// A baseError wraps the code and message which defines an error. It also can
// be used to wrap an original error object.
type baseError struct {
	code    string
	message string
	errs    []error
}

func newBaseError(code, message string, origErrs []error) *baseError {
	return &baseError{
		code:    code,
		message: message,
		errs:    origErrs,
	}
}

func (b baseError) Error() string {
	size := len(b.errs)
	if size > 0 {
		return SprintError(b.code, b.message, "", errorList(b.errs))
	}
	return SprintError(b.code, b.message, "", nil)
}

func (b baseError) String() string {
	return b.Error()
}

func (b baseError) Code() string {
	return b.code
}

func (b baseError) Message() string {
	return b.message
}

// OrigErr returns the original error if one was set. Nil is returned if no
// error was set. If the full list of errors is needed, use BatchedErrors'
// OrigErrs.
func (b baseError) OrigErr() error {
	switch len(b.errs) {
	case 0:
		return nil
	case 1:
		return b.errs[0]
	default:
		if err, ok := b.errs[0].(Error); ok {
			return NewBatchError(err.Code(), err.Message(), b.errs[1:])
		}
		return NewBatchError("ChildErrs", "multiple child errors occurred", b.errs)
	}
}

// OrigErrs returns the original errors if one or more errors were set. An
// empty slice is returned if no error was set.
func (b baseError) OrigErrs() []error {
	return b.errs
}

// An error list that satisfies the error interface.
type errorList []error

func (e errorList) Error() string {
	msg := ""
	// How do we want to handle the array size being zero
	if size := len(e); size > 0 {
		for i := 0; i < size; i++ {
			msg += e[i].Error()
			// Check the next index to see if it is within the slice. If it is,
			// append a newline. We do this, because unit tests could be broken
			// with the additional '\n'.
			if i+1 < size {
				msg += "\n"
			}
		}
	}
	return msg
}
