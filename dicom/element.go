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

// DataElement represents a Data Element as specified in
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1
type DataElement struct {
	Tag DataElementTag

	// Value Representation
	VR VR

	// ValueLength is the value length field as read. It is 0 for elements of undefined length.
	ValueLength uint32

	// UndefinedLength is true when the value length field held 0xFFFFFFFF
	// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.1
	UndefinedLength bool

	Value Value
}

// rawElement is a data element located by the scan but not yet interpreted. Its value is the
// byte range [start, end) of the buffer it was read from.
type rawElement struct {
	tag             DataElementTag
	vr              VR
	vl              uint32
	undefinedLength bool
	start, end      int

	// items of an SQ element
	items []*rawItem

	// fragments and basic offset table of encapsulated pixel data
	fragments   []fragment
	offsetTable []uint32
}

func (e *rawElement) isEncapsulatedPixelData() bool {
	return e.tag == PixelDataTag && e.undefinedLength
}

// rawItem is one item of a sequence.
type rawItem struct {
	length          uint32
	undefinedLength bool
	elements        map[DataElementTag]*rawElement
}

// fragment is one item of encapsulated pixel data. position is the offset of its item tag from
// the item tag of the first fragment, the unit of the basic offset table.
type fragment struct {
	position   uint32
	start, end int
}

func (f fragment) length() int {
	return f.end - f.start
}
