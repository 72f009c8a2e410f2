// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dicom

import (
	"errors"
	"fmt"
)

// Sentinel errors describing why a parse was aborted. They are carried inside a *ParseError and
// can be matched with errors.Is.
var (
	ErrOutOfBounds               = errors.New("read past end of buffer")
	ErrNoMagicWord               = errors.New("no DICM magic word and first element not in group 0x0008")
	ErrImplicitBigEndian         = errors.New("no DICM magic word and implicit VR big endian detected")
	ErrMissingTransferSyntax     = errors.New("no TransferSyntaxUID found in file meta information")
	ErrUnsupportedTransferSyntax = errors.New("unsupported transfer syntax")
	ErrUnsupportedBitsAllocated  = errors.New("unsupported bits allocated")
	ErrUnknownVR                 = errors.New("unknown vr")
	ErrFragmentFrameMismatch     = errors.New("pixel data fragments cannot be split evenly into frames")
	ErrMalformedItem             = errors.New("malformed sequence item")
)

// ParseError is returned for every fatal condition met while parsing. Offset is the byte offset
// in the input buffer at which the problem was detected and Tag is the innermost element being
// read, when known. An error chain holds a single ParseError: enclosing reads add context around
// it without locating it again.
type ParseError struct {
	Offset int
	Tag    DataElementTag
	HasTag bool
	Err    error
}

func (e *ParseError) Error() string {
	if e.HasTag {
		return fmt.Sprintf("%v at offset %d (tag %v)", e.Err, e.Offset, e.Tag)
	}
	return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// parseError locates err at offset, unless err is already located.
func parseError(offset int, err error) error {
	var perr *ParseError
	if errors.As(err, &perr) {
		return err
	}
	return &ParseError{Offset: offset, Err: err}
}

// tagError locates err at offset within the element tag. An err already located keeps its
// offset and takes tag when it has none.
func tagError(offset int, tag DataElementTag, err error) error {
	var perr *ParseError
	if errors.As(err, &perr) {
		if !perr.HasTag {
			perr.Tag, perr.HasTag = tag, true
		}
		return err
	}
	return &ParseError{Offset: offset, Tag: tag, HasTag: true, Err: err}
}
