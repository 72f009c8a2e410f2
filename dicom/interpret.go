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
	"strings"

	"github.com/rs/zerolog"
)

// Defaults of the pixel module attributes gating how pixel bytes are interpreted.
const (
	defaultBitsAllocated       = 16
	defaultPixelRepresentation = 0
)

// interpreter converts scanned elements into DataElements by decoding their byte ranges
// according to VR.
type interpreter struct {
	r    *DataReader
	text decodeContext

	bitsAllocated       uint16
	pixelRepresentation uint16

	// isBulkData selects elements whose value is replaced by a BulkData reference
	isBulkData func(DataElementTag) bool

	transforms []Transform
	logger     zerolog.Logger
}

// interpretElements interprets every element of raw in ascending tag order.
func (in *interpreter) interpretElements(raw map[DataElementTag]*rawElement) (map[DataElementTag]*DataElement, error) {
	elements := make(map[DataElementTag]*DataElement, len(raw))
	for _, tag := range sortedRawTags(raw) {
		e, err := in.interpret(raw[tag])
		if err != nil {
			return nil, err
		}
		if e != nil {
			elements[e.Tag] = e
		}
	}
	return elements, nil
}

// interpret decodes e and applies the transforms to the result. A nil DataElement means a
// transform excluded it.
func (in *interpreter) interpret(e *rawElement) (*DataElement, error) {
	value, err := in.interpretValue(e)
	if err != nil {
		return nil, tagError(e.start, e.tag, err)
	}
	element := &DataElement{
		Tag:             e.tag,
		VR:              e.vr,
		ValueLength:     e.vl,
		UndefinedLength: e.undefinedLength,
		Value:           value,
	}
	for _, t := range in.transforms {
		if element, err = t(element); err != nil {
			return nil, fmt.Errorf("transforming %v: %w", e.tag, err)
		}
		if element == nil {
			return nil, nil
		}
	}
	return element, nil
}

func (in *interpreter) interpretValue(e *rawElement) (Value, error) {
	if in.isBulkData != nil && in.isBulkData(e.tag) {
		return newBulkData(e), nil
	}
	if e.tag == PixelDataTag {
		return in.interpretPixelData(e)
	}

	kind, err := e.vr.kind()
	if err != nil {
		return nil, err
	}
	size := e.end - e.start

	switch kind {
	case textVR:
		return in.readText(e)
	case uint8VR:
		b, err := in.r.Uint8Array(e.start, size)
		return Bytes(b), err
	case uint16VR:
		v, err := in.r.Uint16Array(e.start, size)
		return widenUnsigned(v), err
	case int16VR:
		v, err := in.r.Int16Array(e.start, size)
		return widen(v), err
	case uint32VR:
		v, err := in.r.Uint32Array(e.start, size)
		return widenUnsigned(v), err
	case int32VR:
		v, err := in.r.Int32Array(e.start, size)
		return widen(v), err
	case uint64VR:
		v, err := in.r.Uint64Array(e.start, size)
		return Uints(v), err
	case int64VR:
		v, err := in.r.Int64Array(e.start, size)
		return Ints(v), err
	case float32VR:
		v, err := in.r.Float32Array(e.start, size)
		return widenFloat(v), err
	case float64VR:
		v, err := in.r.Float64Array(e.start, size)
		return Floats(v), err
	case ambiguousOBOWVR:
		if in.bitsAllocated == 8 {
			b, err := in.r.Uint8Array(e.start, size)
			return Bytes(b), err
		}
		v, err := in.r.Uint16Array(e.start, size)
		return widenUnsigned(v), err
	case ambiguousUSSSVR:
		if in.pixelRepresentation == 0 {
			v, err := in.r.Uint16Array(e.start, size)
			return widenUnsigned(v), err
		}
		v, err := in.r.Int16Array(e.start, size)
		return widen(v), err
	case tagVR:
		return in.readTags(e)
	case sequenceVR:
		return in.readSequence(e)
	case noneVR:
		return Empty{}, nil
	}
	return nil, fmt.Errorf("%w: no decoder for %v", ErrUnknownVR, e.vr)
}

func (in *interpreter) readText(e *rawElement) (Strings, error) {
	if e.end == e.start {
		return Strings{}, nil
	}
	raw, err := in.r.Bytes(e.start, e.end-e.start)
	if err != nil {
		return nil, err
	}
	valueField, err := in.text.decode(raw, e.vr)
	if err != nil {
		return nil, err
	}

	// deal with value multiplicity
	strs := strings.Split(valueField, "\\")
	for i, s := range strs {
		switch e.vr {
		case UTVR, STVR, LTVR:
			strs[i] = strings.TrimRightFunc(s, isPadding)
		default:
			strs[i] = strings.TrimFunc(s, isPadding)
		}
	}
	return Strings(strs), nil
}

func isPadding(r rune) bool {
	return r == 0x00 || r == ' '
}

// readTags renders every group, element pair of an AT value as (GGGG,EEEE).
func (in *interpreter) readTags(e *rawElement) (Strings, error) {
	raw, err := in.r.Uint16Array(e.start, e.end-e.start)
	if err != nil {
		return nil, err
	}
	ret := make(Strings, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		ret = append(ret, NewTag(raw[i], raw[i+1]).String())
	}
	return ret, nil
}

func (in *interpreter) readSequence(e *rawElement) (*Sequence, error) {
	seq := &Sequence{Items: make([]*DataSet, 0, len(e.items))}
	for i, item := range e.items {
		elements, err := in.interpretElements(item.elements)
		if err != nil {
			return nil, fmt.Errorf("interpreting item %d: %w", i, err)
		}
		seq.Items = append(seq.Items, &DataSet{
			Elements:        elements,
			Length:          item.length,
			UndefinedLength: item.undefinedLength,
		})
	}
	return seq, nil
}

func (in *interpreter) interpretPixelData(e *rawElement) (*PixelData, error) {
	if e.isEncapsulatedPixelData() {
		pd := &PixelData{
			Encapsulated: true,
			OffsetTable:  e.offsetTable,
			Frames:       make([]Frame, 0, len(e.fragments)),
		}
		for i, f := range e.fragments {
			b, err := in.r.Uint8Array(f.start, f.length())
			if err != nil {
				return nil, fmt.Errorf("reading fragment %d: %w", i, err)
			}
			pd.Frames = append(pd.Frames, Uint8Frame(b))
		}
		return pd, nil
	}

	// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_A.2
	if in.bitsAllocated > 8 && e.vr == OBVR {
		in.logger.Warn().
			Uint16("bits_allocated", in.bitsAllocated).
			Msg("reading pixel data with bits allocated above 8 and OB VR")
	}

	frame, err := in.readNativeFrame(e.start, e.end-e.start)
	if err != nil {
		return nil, err
	}
	return &PixelData{Frames: []Frame{frame}}, nil
}

func (in *interpreter) readNativeFrame(offset, size int) (Frame, error) {
	signed := in.pixelRepresentation != 0
	switch in.bitsAllocated {
	case 1:
		b, err := in.r.BinaryBitArray(offset, size)
		return Uint8Frame(b), err
	case 8:
		if signed {
			b, err := in.r.Int8Array(offset, size)
			return Int8Frame(b), err
		}
		b, err := in.r.Uint8Array(offset, size)
		return Uint8Frame(b), err
	case 16:
		if signed {
			v, err := in.r.Int16Array(offset, size)
			return Int16Frame(v), err
		}
		v, err := in.r.Uint16Array(offset, size)
		return Uint16Frame(v), err
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitsAllocated, in.bitsAllocated)
}
