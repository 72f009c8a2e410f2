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
	"fmt"

	"github.com/rs/zerolog"
)

// itemHeaderSize is the size of an item or delimitation tag followed by its 32 bit length
const itemHeaderSize = tagSize + 4

// scanner locates the data elements of a buffer without interpreting their values.
type scanner struct {
	r      *DataReader
	syntax syntax
	logger zerolog.Logger
}

// store adds e to elements unless an element with the same tag was stored first.
func (s *scanner) store(elements map[DataElementTag]*rawElement, e *rawElement, offset int) {
	if _, ok := elements[e.tag]; ok {
		s.logger.Warn().
			Str("tag", e.tag.String()).
			Int("offset", offset).
			Msg("dropping duplicate data element")
		return
	}
	elements[e.tag] = e
}

// readDataElement reads the data element whose tag starts at offset and returns it with the
// offset of the next data element.
func (s *scanner) readDataElement(offset int) (*rawElement, int, error) {
	tag, err := s.r.Tag(offset)
	if err != nil {
		return nil, offset, fmt.Errorf("getting tag: %w", err)
	}
	offset += tagSize

	var (
		vr VR
		vl uint32
	)
	if !tag.IsWithVR() {
		// delimiters never carry a VR and always have a 32 bit length
		vr = NoneVR
		if vl, err = s.r.Uint32(offset); err != nil {
			return nil, offset, fmt.Errorf("getting length of %v: %w", tag, err)
		}
		offset += 4
	} else {
		if vr, offset, err = s.syntax.readVR(s.r, offset, tag); err != nil {
			return nil, offset, err
		}
		if vl, offset, err = s.syntax.readValueLength(s.r, offset, vr); err != nil {
			return nil, offset, tagError(offset, tag, fmt.Errorf("getting length: %w", err))
		}
	}

	e := &rawElement{tag: tag, vr: vr, vl: vl, start: offset}
	if vl == UndefinedLength {
		e.undefinedLength = true
		e.vl = 0
	}

	// private tags with unknown VR and zero length are mis-encoded sequences
	if tag.IsPrivate() && e.vr == UNVR && e.vl == 0 {
		e.vr = SQVR
	}

	switch {
	case e.isEncapsulatedPixelData():
		if offset, err = s.readFragments(e, offset); err != nil {
			return nil, offset, tagError(offset, tag, err)
		}
		e.end = offset
	case e.vr == SQVR, e.undefinedLength && e.vr != NoneVR:
		// an undefined length value can only be terminated by a sequence delimiter
		e.vr = SQVR
		if offset, err = s.readSequence(e, offset); err != nil {
			return nil, offset, err
		}
		e.end = offset
	default:
		if err := s.r.check(offset, int(e.vl)); err != nil {
			return nil, offset, tagError(offset, tag, fmt.Errorf("value of length %d: %w", e.vl, err))
		}
		e.end = offset + int(e.vl)
		offset = e.end
	}
	return e, offset, nil
}

// readSequence reads the items of the sequence e whose value starts at offset.
func (s *scanner) readSequence(e *rawElement, offset int) (int, error) {
	if !e.undefinedLength {
		end := offset + int(e.vl)
		for offset < end {
			item, next, err := s.readItem(offset)
			if err != nil {
				return next, tagError(offset, e.tag, err)
			}
			offset = next
			if item == nil {
				s.logger.Warn().
					Str("tag", e.tag.String()).
					Int("offset", offset).
					Msg("sequence delimitation item in sequence of explicit length")
				break
			}
			e.items = append(e.items, item)
		}
		if offset != end {
			return offset, tagError(offset, e.tag,
				fmt.Errorf("%w: sequence items end at %d, want %d", ErrMalformedItem, offset, end))
		}
		return offset, nil
	}

	for {
		item, next, err := s.readItem(offset)
		if err != nil {
			return next, tagError(offset, e.tag, err)
		}
		offset = next
		if item == nil {
			return offset, nil
		}
		e.items = append(e.items, item)
	}
}

// readItem reads the item whose tag starts at offset. The returned item is nil when the tag is a
// sequence delimitation item, which is consumed.
func (s *scanner) readItem(offset int) (*rawItem, int, error) {
	tag, err := s.r.Tag(offset)
	if err != nil {
		return nil, offset, fmt.Errorf("reading item tag: %w", err)
	}
	length, err := s.r.Uint32(offset + tagSize)
	if err != nil {
		return nil, offset, fmt.Errorf("reading item length: %w", err)
	}
	switch tag {
	case SequenceDelimitationItemTag:
		return nil, offset + itemHeaderSize, nil
	case ItemTag:
	default:
		return nil, offset, parseError(offset,
			fmt.Errorf("%w: got tag %v, want %v or %v", ErrMalformedItem, tag, ItemTag,
				SequenceDelimitationItemTag))
	}
	offset += itemHeaderSize

	item := &rawItem{length: length, elements: map[DataElementTag]*rawElement{}}
	if length == UndefinedLength {
		item.undefinedLength = true
		item.length = 0
		for {
			next, err := s.r.Tag(offset)
			if err != nil {
				return nil, offset, fmt.Errorf("reading item of undefined length: %w", err)
			}
			if next == ItemDelimitationItemTag {
				return item, offset + itemHeaderSize, nil
			}
			e, end, err := s.readDataElement(offset)
			if err != nil {
				return nil, end, err
			}
			s.store(item.elements, e, offset)
			offset = end
		}
	}

	end := offset + int(length)
	if err := s.r.check(offset, int(length)); err != nil {
		return nil, offset, fmt.Errorf("item of length %d: %w", length, err)
	}
	for offset < end {
		e, next, err := s.readDataElement(offset)
		if err != nil {
			return nil, next, err
		}
		s.store(item.elements, e, offset)
		offset = next
	}
	if offset != end {
		return nil, offset, parseError(offset,
			fmt.Errorf("%w: item elements end at %d, want %d", ErrMalformedItem, offset, end))
	}
	return item, offset, nil
}

// readFragments reads encapsulated pixel data: the basic offset table item followed by one item
// per fragment, up to the sequence delimitation item.
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_A.4
func (s *scanner) readFragments(e *rawElement, offset int) (int, error) {
	tag, err := s.r.Tag(offset)
	if err != nil {
		return offset, fmt.Errorf("reading basic offset table tag: %w", err)
	}
	if tag != ItemTag {
		return offset, fmt.Errorf("%w: basic offset table has tag %v, want %v", ErrMalformedItem, tag, ItemTag)
	}
	length, err := s.r.Uint32(offset + tagSize)
	if err != nil {
		return offset, fmt.Errorf("reading basic offset table length: %w", err)
	}
	if length == UndefinedLength {
		return offset, fmt.Errorf("%w: basic offset table of undefined length", ErrMalformedItem)
	}
	offset += itemHeaderSize
	if e.offsetTable, err = s.r.Uint32Array(offset, int(length)); err != nil {
		return offset, fmt.Errorf("reading basic offset table: %w", err)
	}
	offset += int(length)
	e.start = offset

	for {
		tag, err := s.r.Tag(offset)
		if err != nil {
			return offset, fmt.Errorf("reading fragment tag: %w", err)
		}
		length, err := s.r.Uint32(offset + tagSize)
		if err != nil {
			return offset, fmt.Errorf("reading fragment length: %w", err)
		}
		if tag == SequenceDelimitationItemTag {
			return offset + itemHeaderSize, nil
		}
		if tag != ItemTag {
			return offset, fmt.Errorf("%w: fragment has tag %v, want %v", ErrMalformedItem, tag, ItemTag)
		}
		if length == UndefinedLength {
			return offset, fmt.Errorf("%w: fragment of undefined length", ErrMalformedItem)
		}
		start := offset + itemHeaderSize
		if err := s.r.check(start, int(length)); err != nil {
			return offset, fmt.Errorf("fragment of length %d: %w", length, err)
		}
		e.fragments = append(e.fragments, fragment{
			position: uint32(offset - e.start),
			start:    start,
			end:      start + int(length),
		})
		offset = start + int(length)
	}
}
