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
	"encoding/binary"
	"fmt"

	"golang.org/x/text/encoding"
)

const (
	preambleLength = 128
	magicWord      = "DICM"
	metaStart      = preambleLength + len(magicWord)
)

// Parse parses a DICOM file held in buf, returning the DataSet defined by applying options
// sequentially in the order given to DataElements in the file.
//
// The returned DataSet holds the file meta information elements followed by the elements of the
// main data set. Files without the 128 byte preamble and "DICM" prefix are accepted when their
// first element is in group 0x0008, the transfer syntax being guessed from that element. Values
// are decoded according to their VR: see Value for the possible types. On error no DataSet is
// returned. Errors caused by the content of buf wrap a *ParseError locating the problem, errors
// returned by transforms are wrapped as is.
func Parse(buf []byte, opts ...ParseOption) (*DataSet, error) {
	o := newParseOptions(opts)

	special, err := lookupEncodingByLabel(o.defaultCharacterSet)
	if err != nil {
		return nil, parseError(0, fmt.Errorf("default character set: %w", err))
	}

	ds := &DataSet{Elements: map[DataElementTag]*DataElement{}}

	var (
		ts     TransferSyntax
		offset int
	)
	if hasMagicWord(buf) {
		meta, uid, end, err := readMetaGroup(buf, o)
		if err != nil {
			return nil, err
		}
		for tag, e := range meta {
			ds.Elements[tag] = e
		}
		if ts, err = resolveTransferSyntax(uid); err != nil {
			return nil, parseError(end, err)
		}
		offset = end
	} else {
		o.logger.Warn().Msg("no DICM magic word, guessing transfer syntax from the first element")
		if ts, err = guessTransferSyntax(buf); err != nil {
			return nil, err
		}
		ds.Elements[TransferSyntaxUIDTag] = syntheticTransferSyntaxElement(ts)
	}

	r := NewDataReader(buf, ts.ByteOrder == binary.LittleEndian)
	s := &scanner{r: r, syntax: syntaxFor(ts.Implicit), logger: o.logger}
	o.logger.Debug().
		Str("transfer_syntax", ts.UID).
		Bool("implicit", s.syntax.isImplicit()).
		Bool("little_endian", r.IsLittleEndian()).
		Int("offset", offset).
		Msg("reading data set")
	body, err := scanDataSet(s, offset)
	if err != nil {
		return nil, err
	}

	in := &interpreter{
		r:                   r,
		bitsAllocated:       defaultBitsAllocated,
		pixelRepresentation: defaultPixelRepresentation,
		isBulkData:          o.isBulkData,
		transforms:          o.transforms,
		logger:              o.logger,
	}
	if v, ok := rawUint16(r, body[BitsAllocatedTag]); ok {
		in.bitsAllocated = v
	} else if _, ok := body[PixelDataTag]; ok {
		o.logger.Warn().Msg("reading pixel data with default bits allocated")
	}
	if v, ok := rawUint16(r, body[PixelRepresentationTag]); ok {
		in.pixelRepresentation = v
	} else if _, ok := body[PixelDataTag]; ok {
		o.logger.Warn().Msg("reading pixel data with default pixel representation")
	}
	if in.text, err = resolveDecodeContext(r, body[SpecificCharacterSetTag], special, o); err != nil {
		return nil, err
	}

	elements, err := in.interpretElements(body)
	if err != nil {
		return nil, err
	}
	for tag, e := range elements {
		if _, ok := ds.Elements[tag]; ok {
			o.logger.Warn().Str("tag", tag.String()).Msg("dropping data element duplicating file meta information")
			continue
		}
		ds.Elements[tag] = e
	}

	if err := finishPixelData(ds, body[PixelDataTag], o); err != nil {
		return nil, err
	}
	return ds, nil
}

func hasMagicWord(buf []byte) bool {
	return len(buf) >= metaStart && string(buf[preambleLength:metaStart]) == magicWord
}

// readMetaGroup reads the file meta information, always encoded in explicit VR little endian,
// and returns its interpreted elements, the transfer syntax UID and the offset of the main data
// set.
// http://dicom.nema.org/medical/dicom/current/output/html/part10.html#sect_7.1
func readMetaGroup(buf []byte, o *parseOptions) (map[DataElementTag]*DataElement, string, int, error) {
	r := NewDataReader(buf, true)
	s := &scanner{r: r, syntax: explicitSyntax{}, logger: o.logger}
	raw := map[DataElementTag]*rawElement{}

	first, offset, err := s.readDataElement(metaStart)
	if err != nil {
		return nil, "", offset, err
	}
	s.store(raw, first, metaStart)

	if first.tag == FileMetaInformationGroupLengthTag {
		metaLength, err := r.Uint32(first.start)
		if err != nil {
			return nil, "", offset, tagError(first.start, first.tag, err)
		}
		end := offset + int(metaLength)
		for offset < end {
			e, next, err := s.readDataElement(offset)
			if err != nil {
				return nil, "", next, err
			}
			s.store(raw, e, offset)
			offset = next
		}
		if offset != end {
			o.logger.Warn().Int("offset", offset).Int("end", end).Msg("file meta information overruns its group length")
		}
	} else {
		o.logger.Warn().Msg("file meta information has no group length")
		for {
			tag, err := r.Tag(offset)
			if err != nil || !tag.IsMetaElement() {
				break
			}
			e, next, err := s.readDataElement(offset)
			if err != nil {
				return nil, "", next, err
			}
			s.store(raw, e, offset)
			offset = next
		}
	}

	if _, ok := raw[TransferSyntaxUIDTag]; !ok {
		return nil, "", offset, parseError(offset, ErrMissingTransferSyntax)
	}

	in := &interpreter{
		r:                   r,
		text:                newDecodeContext(nil),
		bitsAllocated:       defaultBitsAllocated,
		pixelRepresentation: defaultPixelRepresentation,
		transforms:          o.transforms,
		logger:              o.logger,
	}
	uid, err := in.readText(raw[TransferSyntaxUIDTag])
	if err != nil {
		return nil, "", offset, tagError(offset, TransferSyntaxUIDTag, err)
	}
	if len(uid) == 0 {
		return nil, "", offset, parseError(offset, ErrMissingTransferSyntax)
	}
	elements, err := in.interpretElements(raw)
	if err != nil {
		return nil, "", offset, err
	}
	return elements, uid[0], offset, nil
}

// guessTransferSyntax infers the transfer syntax of a buffer without preamble from its first
// element, which must be in group 0x0008. VRs are explicit if the 2 bytes following the tag are
// upper case letters.
func guessTransferSyntax(buf []byte) (TransferSyntax, error) {
	r := NewDataReader(buf, true)
	group, err := r.Uint16(0)
	if err != nil {
		return TransferSyntax{}, err
	}
	vr, err := r.Bytes(tagSize, vrSize)
	explicit := err == nil && isUpperASCII(vr[0]) && isUpperASCII(vr[1])

	var uid string
	switch group {
	case 0x0008:
		uid = ImplicitVRLittleEndianUID
		if explicit {
			uid = ExplicitVRLittleEndianUID
		}
	case 0x0800:
		if !explicit {
			return TransferSyntax{}, parseError(0, ErrImplicitBigEndian)
		}
		uid = ExplicitVRBigEndianUID
	default:
		return TransferSyntax{}, parseError(0, fmt.Errorf("%w: got group 0x%04X", ErrNoMagicWord, group))
	}
	ts, _ := LookupTransferSyntax(uid)
	return ts, nil
}

func isUpperASCII(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

func syntheticTransferSyntaxElement(ts TransferSyntax) *DataElement {
	length := len(ts.UID)
	if length%2 == 1 {
		length++
	}
	return &DataElement{
		Tag:         TransferSyntaxUIDTag,
		VR:          UIVR,
		ValueLength: uint32(length),
		Value:       Strings{ts.UID},
	}
}

// scanDataSet reads data elements from offset to the end of the buffer.
func scanDataSet(s *scanner, offset int) (map[DataElementTag]*rawElement, error) {
	elements := map[DataElementTag]*rawElement{}
	for s.r.Len()-offset >= itemHeaderSize {
		e, next, err := s.readDataElement(offset)
		if err != nil {
			return nil, err
		}
		if next <= offset {
			return nil, tagError(offset, e.tag, fmt.Errorf("scan did not advance"))
		}
		s.store(elements, e, offset)
		offset = next
	}
	if offset != s.r.Len() {
		s.logger.Warn().
			Int("offset", offset).
			Int("length", s.r.Len()).
			Msg("did not reach the end of the buffer")
	}
	return elements, nil
}

func rawUint16(r *DataReader, e *rawElement) (uint16, bool) {
	if e == nil || e.end-e.start < 2 {
		return 0, false
	}
	v, err := r.Uint16(e.start)
	return v, err == nil
}

// resolveDecodeContext selects the decoder of character set sensitive VRs from the Specific
// Character Set element e, falling back to special.
func resolveDecodeContext(r *DataReader, e *rawElement, special encoding.Encoding, o *parseOptions) (decodeContext, error) {
	if e == nil {
		return newDecodeContext(special), nil
	}
	in := &interpreter{r: r, text: newDecodeContext(special), logger: o.logger}
	values, err := in.readText(e)
	if err != nil {
		return decodeContext{}, tagError(e.start, e.tag, err)
	}
	term, extended := specialCharacterSetTerm(values)
	if extended {
		o.logger.Warn().Str("term", term).Msg("character set with code extensions is not fully supported")
	}
	if term == "" {
		return newDecodeContext(special), nil
	}
	coding, err := lookupEncoding(term)
	if err != nil {
		o.logger.Warn().Err(err).Msg("keeping default character set")
		return newDecodeContext(special), nil
	}
	return newDecodeContext(coding), nil
}

// finishPixelData splits the top level pixel data into frames.
func finishPixelData(ds *DataSet, raw *rawElement, o *parseOptions) error {
	if raw == nil {
		return nil
	}
	e, ok := ds.Elements[PixelDataTag]
	if !ok {
		return nil
	}
	pd, ok := e.Value.(*PixelData)
	if !ok {
		return nil
	}

	numberOfFrames := 1
	if _, ok := ds.Elements[NumberOfFramesTag]; ok {
		n, err := ds.IntValue(NumberOfFramesTag)
		if err != nil || n < 1 {
			o.logger.Warn().Int("frames", n).Msg("invalid number of frames, assuming 1")
		} else {
			numberOfFrames = n
		}
	}

	if !pd.Encapsulated {
		splitNativeFrames(pd, numberOfFrames, o.logger)
		return nil
	}
	if err := reassembleFrames(pd, raw, numberOfFrames, o.logger); err != nil {
		return tagError(raw.start, PixelDataTag, err)
	}
	return nil
}
