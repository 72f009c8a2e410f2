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
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// dataSetBuilder assembles data element streams for tests.
type dataSetBuilder struct {
	buf      bytes.Buffer
	order    binary.ByteOrder
	implicit bool
}

func newBuilder(order binary.ByteOrder, implicit bool) *dataSetBuilder {
	return &dataSetBuilder{order: order, implicit: implicit}
}

func explicitLE() *dataSetBuilder {
	return newBuilder(binary.LittleEndian, false)
}

func (b *dataSetBuilder) u16(v uint16) *dataSetBuilder {
	var tmp [2]byte
	b.order.PutUint16(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *dataSetBuilder) u32(v uint32) *dataSetBuilder {
	var tmp [4]byte
	b.order.PutUint32(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

func (b *dataSetBuilder) tag(t DataElementTag) *dataSetBuilder {
	return b.u16(t.GroupNumber()).u16(t.ElementNumber())
}

func (b *dataSetBuilder) raw(data []byte) *dataSetBuilder {
	b.buf.Write(data)
	return b
}

// header writes the tag, VR and value length of an element in the syntax of b.
func (b *dataSetBuilder) header(t DataElementTag, vr string, length uint32) *dataSetBuilder {
	b.tag(t)
	if b.implicit {
		return b.u32(length)
	}
	b.buf.WriteString(vr)
	v, err := lookupVRByName(vr)
	if err != nil {
		panic(err)
	}
	if v.Has32BitLength() {
		return b.u16(0).u32(length)
	}
	return b.u16(uint16(length))
}

func (b *dataSetBuilder) element(t DataElementTag, vr string, value []byte) *dataSetBuilder {
	return b.header(t, vr, uint32(len(value))).raw(value)
}

func (b *dataSetBuilder) text(t DataElementTag, vr string, value string) *dataSetBuilder {
	return b.element(t, vr, padText(vr, value))
}

func (b *dataSetBuilder) us(t DataElementTag, values ...uint16) *dataSetBuilder {
	b.header(t, "US", uint32(2*len(values)))
	for _, v := range values {
		b.u16(v)
	}
	return b
}

func (b *dataSetBuilder) item(length uint32) *dataSetBuilder {
	return b.tag(ItemTag).u32(length)
}

func (b *dataSetBuilder) itemDelimiter() *dataSetBuilder {
	return b.tag(ItemDelimitationItemTag).u32(0)
}

func (b *dataSetBuilder) sequenceDelimiter() *dataSetBuilder {
	return b.tag(SequenceDelimitationItemTag).u32(0)
}

func (b *dataSetBuilder) bytes() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}

// padText pads value to an even length, with NUL for UI and space otherwise.
func padText(vr, value string) []byte {
	if len(value)%2 == 0 {
		return []byte(value)
	}
	if vr == "UI" {
		return append([]byte(value), 0x00)
	}
	return append([]byte(value), ' ')
}

// dicomFile prefixes body with the preamble, the magic word and a file meta information group
// declaring uid.
func dicomFile(uid string, body []byte) []byte {
	meta := explicitLE().
		element(FileMetaInformationVersionTag, "OB", []byte{0x00, 0x01}).
		text(MediaStorageSOPClassUIDTag, "UI", "1.2.840.10008.5.1.4.1.1.2").
		text(TransferSyntaxUIDTag, "UI", uid).
		bytes()

	var buf bytes.Buffer
	buf.Write(make([]byte, preambleLength))
	buf.WriteString(magicWord)
	buf.Write(explicitLE().element(FileMetaInformationGroupLengthTag, "UL", le32(uint32(len(meta)))).bytes())
	buf.Write(meta)
	buf.Write(body)
	return buf.Bytes()
}

func le16(values ...uint16) []byte {
	out := make([]byte, 0, 2*len(values))
	for _, v := range values {
		out = binary.LittleEndian.AppendUint16(out, v)
	}
	return out
}

func le32(values ...uint32) []byte {
	out := make([]byte, 0, 4*len(values))
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}

func le64f(values ...float64) []byte {
	out := make([]byte, 0, 8*len(values))
	for _, v := range values {
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
	}
	return out
}

func mustParse(t *testing.T, buf []byte, opts ...ParseOption) *DataSet {
	t.Helper()
	ds, err := Parse(buf, opts...)
	if err != nil {
		t.Fatalf("unexpected error parsing: %v", err)
	}
	return ds
}

func mustElement(t *testing.T, ds *DataSet, tag DataElementTag) *DataElement {
	t.Helper()
	e, ok := ds.Element(tag)
	if !ok {
		t.Fatalf("expected element %v in data set with tags %v", tag, ds.SortedTags())
	}
	return e
}
