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
	"strconv"
)

// DataElementTag is a unique identifier for a Data Element composed of an unordered pair
// of numbers called the group number and the element number as specified in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_3.10.
//
// The least significant 16 bits is the element number. The most significant 16 bits is the group
// number.
type DataElementTag uint32

// Tags the parser treats specially.
const (
	FileMetaInformationGroupLengthTag DataElementTag = 0x00020000
	FileMetaInformationVersionTag     DataElementTag = 0x00020001
	MediaStorageSOPClassUIDTag        DataElementTag = 0x00020002
	MediaStorageSOPInstanceUIDTag     DataElementTag = 0x00020003
	TransferSyntaxUIDTag              DataElementTag = 0x00020010
	ImplementationClassUIDTag         DataElementTag = 0x00020012
	ImplementationVersionNameTag      DataElementTag = 0x00020013
	SpecificCharacterSetTag           DataElementTag = 0x00080005
	SamplesPerPixelTag                DataElementTag = 0x00280002
	PlanarConfigurationTag            DataElementTag = 0x00280006
	NumberOfFramesTag                 DataElementTag = 0x00280008
	RowsTag                           DataElementTag = 0x00280010
	ColumnsTag                        DataElementTag = 0x00280011
	BitsAllocatedTag                  DataElementTag = 0x00280100
	PixelRepresentationTag            DataElementTag = 0x00280103
	PixelDataTag                      DataElementTag = 0x7FE00010
	PixelDataProviderURLTag           DataElementTag = 0x00287FE0
	EncapsulatedDocumentTag           DataElementTag = 0x00420011
	AudioSampleDataTag                DataElementTag = 0x5000200C
	CurveDataTag                      DataElementTag = 0x50003000
	WaveformDataTag                   DataElementTag = 0x54001010
	SpectroscopyDataTag               DataElementTag = 0x56000020
	OverlayDataTag                    DataElementTag = 0x60003000
	FloatPixelDataTag                 DataElementTag = 0x7FE00008
	DoubleFloatPixelDataTag           DataElementTag = 0x7FE00009
	ItemTag                           DataElementTag = 0xFFFEE000
	ItemDelimitationItemTag           DataElementTag = 0xFFFEE00D
	SequenceDelimitationItemTag       DataElementTag = 0xFFFEE0DD
)

// NewTag returns the DataElementTag with the given group and element numbers.
func NewTag(group, element uint16) DataElementTag {
	return DataElementTag(uint32(group)<<16 | uint32(element))
}

// ParseTag returns the DataElementTag described by two "0xGGGG" style tokens.
func ParseTag(group, element string) (DataElementTag, error) {
	g, err := parseHexToken(group)
	if err != nil {
		return 0, fmt.Errorf("cannot create tag with badly formed group: %v", err)
	}
	e, err := parseHexToken(element)
	if err != nil {
		return 0, fmt.Errorf("cannot create tag with badly formed element: %v", err)
	}
	return NewTag(g, e), nil
}

func parseHexToken(token string) (uint16, error) {
	if len(token) != 6 || token[0] != '0' || (token[1] != 'x' && token[1] != 'X') {
		return 0, fmt.Errorf("want 0x followed by 4 hex digits, got %q", token)
	}
	v, err := strconv.ParseUint(token[2:], 16, 16)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %v", token, err)
	}
	return uint16(v), nil
}

// TagFromKey returns the DataElementTag whose Key is key.
func TagFromKey(key string) (DataElementTag, error) {
	if len(key) != 9 || key[0] != 'x' {
		return 0, fmt.Errorf("malformed tag key %q", key)
	}
	v, err := strconv.ParseUint(key[1:], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed tag key %q: %v", key, err)
	}
	return DataElementTag(v), nil
}

// GroupNumber returns the group number component of the DataElementTag
func (t DataElementTag) GroupNumber() uint16 {
	return uint16(t >> 16)
}

// ElementNumber returns the element number component of the DataElementTag
func (t DataElementTag) ElementNumber() uint16 {
	return uint16(t & 0xFFFF)
}

// Key returns the canonical "xGGGGEEEE" string used to index elements of a DataSet.
func (t DataElementTag) Key() string {
	return fmt.Sprintf("x%04X%04X", t.GroupNumber(), t.ElementNumber())
}

// String returns the tag formatted as (GGGG,EEEE)
func (t DataElementTag) String() string {
	return fmt.Sprintf("(%04X,%04X)", t.GroupNumber(), t.ElementNumber())
}

// IsMetaElement is true if and only if the Data Element is a file meta information element
func (t DataElementTag) IsMetaElement() bool {
	return t.GroupNumber() == uint16(0x0002)
}

// IsPrivate is true if and only if the group number is odd
func (t DataElementTag) IsPrivate() bool {
	return t.GroupNumber()%2 == 1
}

// IsWithVR is false for the item and delimitation tags, which never carry a VR even in the
// explicit VR syntaxes.
func (t DataElementTag) IsWithVR() bool {
	switch t {
	case ItemTag, ItemDelimitationItemTag, SequenceDelimitationItemTag:
		return false
	}
	return true
}

// IsDelimiter is true for the item delimitation and sequence delimitation tags
func (t DataElementTag) IsDelimiter() bool {
	return t == ItemDelimitationItemTag || t == SequenceDelimitationItemTag
}

// DictionaryVR returns the VR of the tag in the data dictionary or UNVR if the tag is not in the
// dictionary.
func (t DataElementTag) DictionaryVR() VR {
	entry, ok := LookupDictionary(t)
	if !ok {
		return UNVR
	}
	return entry.VR
}

// DictionaryName returns the keyword of the tag in the data dictionary. ok is false when the
// tag is unknown.
func (t DataElementTag) DictionaryName() (name string, ok bool) {
	entry, ok := LookupDictionary(t)
	if !ok {
		return "", false
	}
	return entry.Name, true
}

// displayName returns the dictionary keyword of t, or its bare "GGGGEEEE" form when the tag is
// not in the dictionary.
func (t DataElementTag) displayName() string {
	if name, ok := t.DictionaryName(); ok {
		return name
	}
	return t.Key()[1:]
}
