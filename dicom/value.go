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

// Value is the decoded value field of a DataElement. It is one of
//
//	Strings, Bytes, Ints, Uints, Floats, *Sequence, *PixelData, BulkData, Empty
//
// The variant is fixed by the VR of the element when it is interpreted.
type Value interface {
	// Len returns the number of components of the value
	Len() int

	// components returns the value components as a slice of interface{} values
	components() []interface{}

	isValue()
}

// Strings holds the values of the textual VRs and of AT, split on the "\" delimiter.
type Strings []string

// Bytes holds the values of OB and UN.
type Bytes []byte

// Ints holds the values of SS, SL and SV, and of xs when PixelRepresentation is signed.
type Ints []int64

// Uints holds the values of US, UL, UV, OW, OL and OV.
type Uints []uint64

// Floats holds the values of FL, FD, OF and OD.
type Floats []float64

// Empty is the value of delimitation items.
type Empty struct{}

// Sequence holds the items of an SQ element in the order encountered.
type Sequence struct {
	Items []*DataSet
}

// PixelData is the value of the Pixel Data (7FE0,0010) element.
type PixelData struct {
	// Encapsulated is true when the pixel data was encoded as a sequence of fragments
	Encapsulated bool

	// OffsetTable is the basic offset table of encapsulated pixel data, if any
	OffsetTable []uint32

	// Frames holds one buffer per frame. Native pixel data holds all of its frames in a single
	// buffer unless NumberOfFrames splits it evenly.
	Frames []Frame
}

// Frame is a typed buffer of pixel samples. It is one of Uint8Frame, Int8Frame, Uint16Frame,
// Int16Frame.
type Frame interface {
	// Len returns the number of samples in the frame
	Len() int

	isFrame()
}

// Uint8Frame holds 1 bit (expanded to 0 or 255) or unsigned 8 bit samples, or the raw bytes of
// an encapsulated frame.
type Uint8Frame []uint8

// Int8Frame holds signed 8 bit samples.
type Int8Frame []int8

// Uint16Frame holds unsigned 16 bit samples.
type Uint16Frame []uint16

// Int16Frame holds signed 16 bit samples.
type Int16Frame []int16

func (v Strings) Len() int    { return len(v) }
func (v Bytes) Len() int      { return len(v) }
func (v Ints) Len() int       { return len(v) }
func (v Uints) Len() int      { return len(v) }
func (v Floats) Len() int     { return len(v) }
func (Empty) Len() int        { return 0 }
func (v *Sequence) Len() int  { return len(v.Items) }
func (v *PixelData) Len() int { return len(v.Frames) }

func (Strings) isValue()    {}
func (Bytes) isValue()      {}
func (Ints) isValue()       {}
func (Uints) isValue()      {}
func (Floats) isValue()     {}
func (Empty) isValue()      {}
func (*Sequence) isValue()  {}
func (*PixelData) isValue() {}

func (v Strings) components() []interface{} { return toInterfaces(v) }
func (v Bytes) components() []interface{}   { return toInterfaces(v) }
func (v Ints) components() []interface{}    { return toInterfaces(v) }
func (v Uints) components() []interface{}   { return toInterfaces(v) }
func (v Floats) components() []interface{}  { return toInterfaces(v) }
func (Empty) components() []interface{}     { return []interface{}{} }

func (v *Sequence) components() []interface{} { return toInterfaces(v.Items) }

func (v *PixelData) components() []interface{} { return toInterfaces(v.Frames) }

func (f Uint8Frame) Len() int  { return len(f) }
func (f Int8Frame) Len() int   { return len(f) }
func (f Uint16Frame) Len() int { return len(f) }
func (f Int16Frame) Len() int  { return len(f) }

func (Uint8Frame) isFrame()  {}
func (Int8Frame) isFrame()   {}
func (Uint16Frame) isFrame() {}
func (Int16Frame) isFrame()  {}

func toInterfaces[T any](s []T) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

func widen[T ~int8 | ~int16 | ~int32 | ~int64](s []T) Ints {
	out := make(Ints, len(s))
	for i, v := range s {
		out[i] = int64(v)
	}
	return out
}

func widenUnsigned[T ~uint8 | ~uint16 | ~uint32 | ~uint64](s []T) Uints {
	out := make(Uints, len(s))
	for i, v := range s {
		out[i] = uint64(v)
	}
	return out
}

func widenFloat[T ~float32 | ~float64](s []T) Floats {
	out := make(Floats, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}
