// Copyright (c) 2025 epsio
// SPDX-License-Identifier: Apache-2.0
// This file is part of the epserde library.

package epserde

import "github.com/epsio/epserde/serdeutils"

// Error taxonomy, re-exported from serdeutils so that callers can match with
// errors.Is without importing the plumbing package. Format, I/O and
// validation failures return one of these (possibly wrapped with positional
// context); invalid arguments and unsupported types (a nil or non-pointer
// target, maps, channels, unexported fields) are reported as plain errors.
// Nothing is retried or recovered internally.
var (
	ErrWrite             = serdeutils.ErrWrite
	ErrRead              = serdeutils.ErrRead
	ErrUnexpectedEOF     = serdeutils.ErrUnexpectedEOF
	ErrMagicMismatch     = serdeutils.ErrMagicMismatch
	ErrVersionMismatch   = serdeutils.ErrVersionMismatch
	ErrIncompatibleType  = serdeutils.ErrTypeHash
	ErrIncompatibleRepr  = serdeutils.ErrReprHash
	ErrAlignment         = serdeutils.ErrAlignment
	ErrLengthOverflow    = serdeutils.ErrLengthOverflow
	ErrInvalidUTF8       = serdeutils.ErrInvalidUTF8
	ErrZeroCopyViolation = serdeutils.ErrNotZeroCopy
	ErrIteratorLength    = serdeutils.ErrIteratorLength
	ErrInvalidVariant    = serdeutils.ErrInvalidVariant
)
