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
)

// ByteRegion is a contiguous sequence of bytes in a buffer described by an Offset and a length
type ByteRegion struct {
	Offset int
	Length int
}

// BulkData is the value of an element parsed with ReferenceBulkData. It describes where the value
// bytes are in the parsed buffer instead of holding them. Encapsulated pixel data has one region
// per fragment, any other element a single region.
type BulkData struct {
	Regions []ByteRegion
}

func (v BulkData) Len() int { return len(v.Regions) }

func (BulkData) isValue() {}

func (v BulkData) components() []interface{} { return toInterfaces(v.Regions) }

// Read returns the concatenated bytes of all regions of v in buf, the buffer that was parsed.
func (v BulkData) Read(buf []byte) ([]byte, error) {
	size := 0
	for _, r := range v.Regions {
		if r.Offset < 0 || r.Length < 0 || r.Offset > len(buf) || r.Length > len(buf)-r.Offset {
			return nil, fmt.Errorf("region %+v outside buffer of length %d: %w", r, len(buf), ErrOutOfBounds)
		}
		size += r.Length
	}
	out := make([]byte, 0, size)
	for _, r := range v.Regions {
		out = append(out, buf[r.Offset:r.Offset+r.Length]...)
	}
	return out, nil
}

func newBulkData(e *rawElement) BulkData {
	if e.isEncapsulatedPixelData() {
		regions := make([]ByteRegion, len(e.fragments))
		for i, f := range e.fragments {
			regions[i] = ByteRegion{Offset: f.start, Length: f.length()}
		}
		return BulkData{Regions: regions}
	}
	return BulkData{Regions: []ByteRegion{{Offset: e.start, Length: e.end - e.start}}}
}

// DefaultBulkDataDefinition returns true if and only if the tag corresponds to a data element
// that contains large non-metadata fields
func DefaultBulkDataDefinition(tag DataElementTag) bool {
	// Tags in the DICOM data dictionary have wildcards (e.g. tags like (gggg,eexx), (ggxx,eeee))
	// The tag constants store the value of the tag with the x's set to '0' in hex.
	// For example the Curve Data tag is defined as (50xx,3000). The variable
	// CurveDataTag = 0x50003000. So we can check if a given tag is of the form (50xx,3000) from
	// the condition (tag & 0xFF00FFFF) == CurveDataTag.
	for _, m := range append(wildcardMasks, 0xFFFFFFFF) {
		switch DataElementTag(uint32(tag) & m) {
		case PixelDataProviderURLTag, AudioSampleDataTag, CurveDataTag, SpectroscopyDataTag,
			OverlayDataTag, EncapsulatedDocumentTag, FloatPixelDataTag, DoubleFloatPixelDataTag,
			PixelDataTag, WaveformDataTag:
			return true
		}
	}
	return false
}
