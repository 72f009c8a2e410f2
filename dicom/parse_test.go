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
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const (
	modalityTag                 DataElementTag = 0x00080060
	referencedImageSequenceTag  DataElementTag = 0x00081140
	referencedSOPInstanceUIDTag DataElementTag = 0x00081155
	patientNameTag              DataElementTag = 0x00100010
	patientIDTag                DataElementTag = 0x00100020
	smallestImagePixelValueTag  DataElementTag = 0x00280106
	frameIncrementPointerTag    DataElementTag = 0x00280009
)

func TestParse_personNameInEverySyntax(t *testing.T) {
	tests := []struct {
		name     string
		uid      string
		order    binary.ByteOrder
		implicit bool
	}{
		{"explicit VR little endian", ExplicitVRLittleEndianUID, binary.LittleEndian, false},
		{"implicit VR little endian", ImplicitVRLittleEndianUID, binary.LittleEndian, true},
		{"explicit VR big endian", ExplicitVRBigEndianUID, binary.BigEndian, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := newBuilder(tc.order, tc.implicit).
				text(patientNameTag, "PN", "DOE^JOHN").
				us(RowsTag, 512).
				bytes()
			ds := mustParse(t, dicomFile(tc.uid, body))

			got, ok := ds.GetValue(patientNameTag.Key(), false)
			if !ok || got != "DOE^JOHN" {
				t.Fatalf("got (%v, %v), want (DOE^JOHN, true)", got, ok)
			}
			if got, _ := ds.GetValueByName("Rows", false); got != uint64(512) {
				t.Fatalf("got %v (%T), want 512", got, got)
			}
			if e := mustElement(t, ds, patientNameTag); e.VR != PNVR || e.ValueLength != 8 {
				t.Fatalf("got VR %v and length %d, want PN and 8", e.VR, e.ValueLength)
			}
			if uid, err := ds.StringValue(TransferSyntaxUIDTag); err != nil || uid != tc.uid {
				t.Fatalf("got (%v, %v), want (%v, nil)", uid, err, tc.uid)
			}
		})
	}
}

func TestParse_fileMetaInformation(t *testing.T) {
	ds := mustParse(t, dicomFile(ExplicitVRLittleEndianUID, nil))

	wantTags := []DataElementTag{
		FileMetaInformationGroupLengthTag,
		FileMetaInformationVersionTag,
		MediaStorageSOPClassUIDTag,
		TransferSyntaxUIDTag,
	}
	if got := ds.SortedTags(); !reflect.DeepEqual(got, wantTags) {
		t.Fatalf("got %v, want %v", got, wantTags)
	}
	if got, want := mustElement(t, ds, FileMetaInformationVersionTag).Value, (Bytes{0x00, 0x01}); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParse_metaGroupWithoutGroupLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(make([]byte, preambleLength))
	buf.WriteString(magicWord)
	buf.Write(explicitLE().
		text(TransferSyntaxUIDTag, "UI", ExplicitVRLittleEndianUID).
		text(patientNameTag, "PN", "DOE^JANE").
		bytes())

	ds := mustParse(t, buf.Bytes())
	if got, _ := ds.GetValue(patientNameTag.Key(), false); got != "DOE^JANE" {
		t.Fatalf("got %v, want DOE^JANE", got)
	}
}

func TestParse_missingTransferSyntax(t *testing.T) {
	meta := explicitLE().text(MediaStorageSOPClassUIDTag, "UI", "1.2.840.10008.5.1.4.1.1.2").bytes()
	var buf bytes.Buffer
	buf.Write(make([]byte, preambleLength))
	buf.WriteString(magicWord)
	buf.Write(explicitLE().element(FileMetaInformationGroupLengthTag, "UL", le32(uint32(len(meta)))).bytes())
	buf.Write(meta)

	ds, err := Parse(buf.Bytes())
	if !errors.Is(err, ErrMissingTransferSyntax) {
		t.Fatalf("got error %v, want %v", err, ErrMissingTransferSyntax)
	}
	if ds != nil {
		t.Fatalf("expected no data set on error, got %v", ds)
	}
}

func TestParse_unsupportedTransferSyntax(t *testing.T) {
	body := explicitLE().text(patientNameTag, "PN", "DOE^JOHN").bytes()
	ds, err := Parse(dicomFile(MPEG2MainProfileUID, body))
	if !errors.Is(err, ErrUnsupportedTransferSyntax) {
		t.Fatalf("got error %v, want %v", err, ErrUnsupportedTransferSyntax)
	}
	if ds != nil {
		t.Fatalf("expected no data set on error, got %v", ds)
	}
	if !strings.Contains(err.Error(), MPEG2MainProfileUID) {
		t.Fatalf("expected error to name %v: %v", MPEG2MainProfileUID, err)
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected a *ParseError, got %T", err)
	}
}

func TestParse_withoutMagicWord(t *testing.T) {
	tests := []struct {
		name    string
		buf     []byte
		wantUID string
	}{
		{
			"explicit VR little endian",
			explicitLE().text(modalityTag, "CS", "CT").text(patientNameTag, "PN", "DOE^JOHN").bytes(),
			ExplicitVRLittleEndianUID,
		},
		{
			"implicit VR little endian",
			newBuilder(binary.LittleEndian, true).text(modalityTag, "CS", "CT").text(patientNameTag, "PN", "DOE^JOHN").bytes(),
			ImplicitVRLittleEndianUID,
		},
		{
			"explicit VR big endian",
			newBuilder(binary.BigEndian, false).text(modalityTag, "CS", "CT").text(patientNameTag, "PN", "DOE^JOHN").bytes(),
			ExplicitVRBigEndianUID,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ds := mustParse(t, tc.buf)
			e := mustElement(t, ds, TransferSyntaxUIDTag)
			if want := (Strings{tc.wantUID}); !reflect.DeepEqual(e.Value, want) {
				t.Fatalf("got %v, want %v", e.Value, want)
			}
			if got, _ := ds.GetValue(modalityTag.Key(), false); got != "CT" {
				t.Fatalf("got %v, want CT", got)
			}
			if got, _ := ds.GetValue(patientNameTag.Key(), false); got != "DOE^JOHN" {
				t.Fatalf("got %v, want DOE^JOHN", got)
			}
		})
	}
}

func TestParse_withoutMagicWordErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{
			"first element outside group 0008",
			explicitLE().text(patientNameTag, "PN", "DOE^JOHN").bytes(),
			ErrNoMagicWord,
		},
		{
			"implicit VR big endian",
			newBuilder(binary.BigEndian, true).text(modalityTag, "CS", "CT").bytes(),
			ErrImplicitBigEndian,
		},
		{
			"empty buffer",
			nil,
			ErrOutOfBounds,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ds, err := Parse(tc.buf)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got error %v, want %v", err, tc.want)
			}
			if ds != nil {
				t.Fatalf("expected no data set on error, got %v", ds)
			}
		})
	}
}

func TestParse_undefinedLengthSequence(t *testing.T) {
	second := explicitLE().text(referencedSOPInstanceUIDTag, "UI", "1.2.4").bytes()
	body := explicitLE().
		header(referencedImageSequenceTag, "SQ", UndefinedLength).
		item(UndefinedLength).
		text(referencedSOPInstanceUIDTag, "UI", "1.2.3").
		itemDelimiter().
		item(uint32(len(second))).
		raw(second).
		sequenceDelimiter().
		text(patientNameTag, "PN", "DOE^JOHN").
		bytes()
	ds := mustParse(t, dicomFile(ExplicitVRLittleEndianUID, body))

	e := mustElement(t, ds, referencedImageSequenceTag)
	if !e.UndefinedLength || e.VR != SQVR {
		t.Fatalf("got VR %v undefined length %v, want SQ and true", e.VR, e.UndefinedLength)
	}
	if e.ValueLength != 0 {
		t.Fatalf("got value length %d, want 0 for undefined length", e.ValueLength)
	}
	seq, ok := e.Value.(*Sequence)
	if !ok {
		t.Fatalf("got %T, want *Sequence", e.Value)
	}
	if len(seq.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(seq.Items))
	}
	if !seq.Items[0].UndefinedLength || seq.Items[1].UndefinedLength {
		t.Fatalf("got item undefined lengths (%v, %v), want (true, false)",
			seq.Items[0].UndefinedLength, seq.Items[1].UndefinedLength)
	}
	if got, want := seq.Items[1].Length, uint32(len(second)); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i, want := range []string{"1.2.3", "1.2.4"} {
		if got, _ := seq.Items[i].StringValue(referencedSOPInstanceUIDTag); got != want {
			t.Fatalf("item %d: got %v, want %v", i, got, want)
		}
	}
	if got, _ := ds.GetValue(patientNameTag.Key(), false); got != "DOE^JOHN" {
		t.Fatalf("got %v, want DOE^JOHN", got)
	}
}

func TestParse_definedLengthSequenceInImplicitSyntax(t *testing.T) {
	inner := newBuilder(binary.LittleEndian, true).text(referencedSOPInstanceUIDTag, "UI", "1.2.3").bytes()
	item := newBuilder(binary.LittleEndian, true).item(uint32(len(inner))).raw(inner).bytes()
	body := newBuilder(binary.LittleEndian, true).
		element(referencedImageSequenceTag, "SQ", item).
		text(patientNameTag, "PN", "DOE^JOHN").
		bytes()
	ds := mustParse(t, dicomFile(ImplicitVRLittleEndianUID, body))

	seq, ok := mustElement(t, ds, referencedImageSequenceTag).Value.(*Sequence)
	if !ok || len(seq.Items) != 1 {
		t.Fatalf("got %v, want a sequence of 1 item", mustElement(t, ds, referencedImageSequenceTag).Value)
	}
	if got, _ := seq.Items[0].StringValue(referencedSOPInstanceUIDTag); got != "1.2.3" {
		t.Fatalf("got %v, want 1.2.3", got)
	}
}

func TestParse_malformedItem(t *testing.T) {
	body := explicitLE().
		header(referencedImageSequenceTag, "SQ", UndefinedLength).
		text(patientNameTag, "PN", "DOE^JOHN").
		bytes()
	_, err := Parse(dicomFile(ExplicitVRLittleEndianUID, body))
	if !errors.Is(err, ErrMalformedItem) {
		t.Fatalf("got error %v, want %v", err, ErrMalformedItem)
	}
	var perr *ParseError
	if !errors.As(err, &perr) || !perr.HasTag {
		t.Fatalf("expected a *ParseError carrying a tag, got %v", err)
	}
}

func TestParse_privateUnknownZeroLengthIsSequence(t *testing.T) {
	private := NewTag(0x0029, 0x1010)
	body := explicitLE().
		header(private, "UN", 0).
		text(patientNameTag, "PN", "DOE^JOHN").
		bytes()
	ds := mustParse(t, dicomFile(ExplicitVRLittleEndianUID, body))

	e := mustElement(t, ds, private)
	if e.VR != SQVR {
		t.Fatalf("got %v, want %v", e.VR, SQVR)
	}
	if seq, ok := e.Value.(*Sequence); !ok || len(seq.Items) != 0 {
		t.Fatalf("got %v, want an empty sequence", e.Value)
	}
	if got, _ := ds.GetValue(patientNameTag.Key(), false); got != "DOE^JOHN" {
		t.Fatalf("got %v, want DOE^JOHN", got)
	}
}

func TestParse_duplicateTagFirstWriteWins(t *testing.T) {
	body := explicitLE().
		text(patientNameTag, "PN", "FIRST").
		text(patientNameTag, "PN", "SECOND").
		bytes()
	var logs bytes.Buffer
	ds := mustParse(t, dicomFile(ExplicitVRLittleEndianUID, body), WithLogger(zerolog.New(&logs)))

	if got, _ := ds.GetValue(patientNameTag.Key(), false); got != "FIRST" {
		t.Fatalf("got %v, want FIRST", got)
	}
	if !strings.Contains(logs.String(), "dropping duplicate data element") {
		t.Fatalf("expected duplicate to be logged, got %q", logs.String())
	}
}

func TestParse_truncatedValue(t *testing.T) {
	body := explicitLE().header(patientNameTag, "PN", 64).raw([]byte("DOE^JOHN")).bytes()
	_, err := Parse(dicomFile(ExplicitVRLittleEndianUID, body))
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("got error %v, want %v", err, ErrOutOfBounds)
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected a *ParseError, got %T", err)
	}
	if !perr.HasTag || perr.Tag != patientNameTag {
		t.Fatalf("got %+v, want tag %v", perr, patientNameTag)
	}
}

func TestParse_truncatedValueInSequenceIsLocatedOnce(t *testing.T) {
	buf := dicomFile(ExplicitVRLittleEndianUID, explicitLE().
		header(referencedImageSequenceTag, "SQ", UndefinedLength).
		item(UndefinedLength).
		header(patientNameTag, "PN", 64).
		raw([]byte("DOE^JOHN")).
		bytes())
	_, err := Parse(buf)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("got error %v, want %v", err, ErrOutOfBounds)
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected a *ParseError, got %T", err)
	}
	if !perr.HasTag || perr.Tag != patientNameTag {
		t.Fatalf("got tag %v, want %v", perr.Tag, patientNameTag)
	}
	if got, want := perr.Offset, len(buf)-len("DOE^JOHN"); got != want {
		t.Fatalf("got offset %d, want %d", got, want)
	}
	if got := strings.Count(err.Error(), "at offset"); got != 1 {
		t.Fatalf("got %d locations in %q, want 1", got, err.Error())
	}
}

func TestParse_trailingBytesAreLogged(t *testing.T) {
	body := explicitLE().text(patientNameTag, "PN", "DOE^JOHN").raw([]byte{0, 0, 0}).bytes()
	var logs bytes.Buffer
	ds := mustParse(t, dicomFile(ExplicitVRLittleEndianUID, body), WithLogger(zerolog.New(&logs)))

	if _, ok := ds.Element(patientNameTag); !ok {
		t.Fatalf("expected %v in data set", patientNameTag)
	}
	if !strings.Contains(logs.String(), "did not reach the end of the buffer") {
		t.Fatalf("expected trailing bytes to be logged, got %q", logs.String())
	}
}

func TestParse_unknownExplicitVR(t *testing.T) {
	body := explicitLE().tag(patientNameTag).raw([]byte{'Q', 'Q', 0x02, 0x00, 'A', 'B'}).bytes()
	_, err := Parse(dicomFile(ExplicitVRLittleEndianUID, body))
	if !errors.Is(err, ErrUnknownVR) {
		t.Fatalf("got error %v, want %v", err, ErrUnknownVR)
	}
}

func TestParse_values(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *dataSetBuilder) *dataSetBuilder
		tag   DataElementTag
		want  Value
	}{
		{
			"multi valued code string",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.text(0x00080008, "CS", `ORIGINAL\PRIMARY\AXIAL`)
			},
			0x00080008,
			Strings{"ORIGINAL", "PRIMARY", "AXIAL"},
		},
		{
			"long text keeps leading spaces",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.text(0x00204000, "LT", "  indented")
			},
			0x00204000,
			Strings{"  indented"},
		},
		{
			"empty value",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.element(patientIDTag, "LO", nil)
			},
			patientIDTag,
			Strings{},
		},
		{
			"signed shorts",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.element(0x00281041, "SS", le16(0xFFFF))
			},
			0x00281041,
			Ints{-1},
		},
		{
			"unsigned longs",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.element(0x00041400, "UL", le32(1, 70000))
			},
			0x00041400,
			Uints{1, 70000},
		},
		{
			"doubles",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.element(0x00189087, "FD", le64f(0.5, 1000))
			},
			0x00189087,
			Floats{0.5, 1000},
		},
		{
			"attribute tags",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.element(frameIncrementPointerTag, "AT", le16(0x0028, 0x0010, 0x0018, 0x1063))
			},
			frameIncrementPointerTag,
			Strings{"(0028,0010)", "(0018,1063)"},
		},
		{
			"other byte",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.element(0x00291020, "OB", []byte{1, 2, 3, 4})
			},
			0x00291020,
			Bytes{1, 2, 3, 4},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ds := mustParse(t, dicomFile(ExplicitVRLittleEndianUID, tc.build(explicitLE()).bytes()))
			if got := mustElement(t, ds, tc.tag).Value; !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestParse_ambiguousUSorSS(t *testing.T) {
	tests := []struct {
		name           string
		representation uint16
		want           Value
	}{
		{"unsigned pixel representation", 0, Uints{0xFFFB}},
		{"signed pixel representation", 1, Ints{-5}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := newBuilder(binary.LittleEndian, true).
				us(PixelRepresentationTag, tc.representation).
				element(smallestImagePixelValueTag, "US", le16(0xFFFB)).
				bytes()
			ds := mustParse(t, dicomFile(ImplicitVRLittleEndianUID, body))

			e := mustElement(t, ds, smallestImagePixelValueTag)
			if e.VR != XSVR {
				t.Fatalf("got %v, want %v", e.VR, XSVR)
			}
			if !reflect.DeepEqual(e.Value, tc.want) {
				t.Fatalf("got %#v, want %#v", e.Value, tc.want)
			}
		})
	}
}

func TestParse_ambiguousOBorOW(t *testing.T) {
	tests := []struct {
		name          string
		bitsAllocated uint16
		wantOverlay   Value
		wantFrames    []Frame
	}{
		{"8 bits allocated reads bytes", 8, Bytes{1, 2, 3, 4}, []Frame{Uint8Frame{1, 2, 3, 4}}},
		{"16 bits allocated reads words", 16, Uints{0x0201, 0x0403}, []Frame{Uint16Frame{0x0201, 0x0403}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			body := newBuilder(binary.LittleEndian, true).
				us(BitsAllocatedTag, tc.bitsAllocated).
				element(OverlayDataTag, "OW", []byte{1, 2, 3, 4}).
				element(PixelDataTag, "OW", []byte{1, 2, 3, 4}).
				bytes()
			ds := mustParse(t, dicomFile(ImplicitVRLittleEndianUID, body))

			overlay := mustElement(t, ds, OverlayDataTag)
			if overlay.VR != OXVR {
				t.Fatalf("got %v, want %v", overlay.VR, OXVR)
			}
			if !reflect.DeepEqual(overlay.Value, tc.wantOverlay) {
				t.Fatalf("got %#v, want %#v", overlay.Value, tc.wantOverlay)
			}

			pixels := mustElement(t, ds, PixelDataTag)
			if pixels.VR != OXVR {
				t.Fatalf("got %v, want %v", pixels.VR, OXVR)
			}
			pd, ok := pixels.Value.(*PixelData)
			if !ok {
				t.Fatalf("got %T, want *PixelData", pixels.Value)
			}
			if !reflect.DeepEqual(pd.Frames, tc.wantFrames) {
				t.Fatalf("got %v, want %v", pd.Frames, tc.wantFrames)
			}
		})
	}
}

func TestParse_specificCharacterSet(t *testing.T) {
	tests := []struct {
		name    string
		charset string
		opts    []ParseOption
		value   []byte
		want    string
	}{
		{"latin 1", "ISO_IR 100", nil, []byte{'J', 0xD6, 'R', 'G'}, "JÖRG"},
		{"utf 8", "ISO_IR 192", nil, []byte("JÖRG"), "JÖRG"},
		{"code extensions use the second term", `\ISO_IR 100`, nil, []byte{'J', 0xD6, 'R', 'G'}, "JÖRG"},
		{"absent uses the default character set", "", []ParseOption{WithDefaultCharacterSet("iso-8859-1")}, []byte{'J', 0xD6, 'R', 'G'}, "JÖRG"},
		{"unknown term keeps the default", "ISO_IR 999", nil, []byte("JÖRG"), "JÖRG"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := explicitLE()
			if tc.charset != "" {
				b.text(SpecificCharacterSetTag, "CS", tc.charset)
			}
			body := b.element(patientNameTag, "PN", tc.value).bytes()
			ds := mustParse(t, dicomFile(ExplicitVRLittleEndianUID, body), tc.opts...)
			if got, _ := ds.StringValue(patientNameTag); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParse_unknownDefaultCharacterSet(t *testing.T) {
	_, err := Parse(dicomFile(ExplicitVRLittleEndianUID, nil), WithDefaultCharacterSet("no-such-charset"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected a *ParseError, got %v", err)
	}
}

func TestParse_nativePixelData(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *dataSetBuilder) *dataSetBuilder
		want  []Frame
	}{
		{
			"8 bit unsigned frames",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.text(NumberOfFramesTag, "IS", "2").
					us(BitsAllocatedTag, 8).
					us(PixelRepresentationTag, 0).
					element(PixelDataTag, "OB", []byte{1, 2, 3, 4})
			},
			[]Frame{Uint8Frame{1, 2}, Uint8Frame{3, 4}},
		},
		{
			"8 bit signed frame",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.us(BitsAllocatedTag, 8).
					us(PixelRepresentationTag, 1).
					element(PixelDataTag, "OB", []byte{0xFF, 0x01})
			},
			[]Frame{Int8Frame{-1, 1}},
		},
		{
			"16 bit signed frame",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.us(BitsAllocatedTag, 16).
					us(PixelRepresentationTag, 1).
					element(PixelDataTag, "OW", le16(0xFFFF, 2))
			},
			[]Frame{Int16Frame{-1, 2}},
		},
		{
			"16 bit unsigned frame by default",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.element(PixelDataTag, "OW", le16(0x0102, 0x0304))
			},
			[]Frame{Uint16Frame{0x0102, 0x0304}},
		},
		{
			"1 bit frame",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.us(BitsAllocatedTag, 1).
					element(PixelDataTag, "OB", []byte{0x01, 0x00})
			},
			[]Frame{Uint8Frame{255, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		},
		{
			"frames that do not divide stay in one buffer",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.text(NumberOfFramesTag, "IS", "3").
					us(BitsAllocatedTag, 8).
					element(PixelDataTag, "OB", []byte{1, 2, 3, 4})
			},
			[]Frame{Uint8Frame{1, 2, 3, 4}},
		},
		{
			"empty pixel data with frames",
			func(b *dataSetBuilder) *dataSetBuilder {
				return b.text(NumberOfFramesTag, "IS", "2").
					us(BitsAllocatedTag, 8).
					element(PixelDataTag, "OB", []byte{})
			},
			[]Frame{Uint8Frame{}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ds := mustParse(t, dicomFile(ExplicitVRLittleEndianUID, tc.build(explicitLE()).bytes()))
			pd, ok := mustElement(t, ds, PixelDataTag).Value.(*PixelData)
			if !ok {
				t.Fatalf("got %T, want *PixelData", mustElement(t, ds, PixelDataTag).Value)
			}
			if pd.Encapsulated {
				t.Fatalf("expected native pixel data")
			}
			if !reflect.DeepEqual(pd.Frames, tc.want) {
				t.Fatalf("got %v, want %v", pd.Frames, tc.want)
			}
		})
	}
}

func TestParse_unsupportedBitsAllocated(t *testing.T) {
	body := explicitLE().
		us(BitsAllocatedTag, 32).
		element(PixelDataTag, "OW", le32(1, 2)).
		bytes()
	_, err := Parse(dicomFile(ExplicitVRLittleEndianUID, body))
	if !errors.Is(err, ErrUnsupportedBitsAllocated) {
		t.Fatalf("got error %v, want %v", err, ErrUnsupportedBitsAllocated)
	}
}

// encapsulated builds encapsulated pixel data with the given basic offset table and one
// fragment per element of fragments.
func encapsulated(b *dataSetBuilder, offsetTable []uint32, fragments ...[]byte) *dataSetBuilder {
	b.header(PixelDataTag, "OB", UndefinedLength)
	b.item(uint32(4 * len(offsetTable))).raw(le32(offsetTable...))
	for _, f := range fragments {
		b.item(uint32(len(f))).raw(f)
	}
	return b.sequenceDelimiter()
}

func TestParse_encapsulatedPixelData(t *testing.T) {
	tests := []struct {
		name        string
		frames      string
		offsetTable []uint32
		fragments   [][]byte
		want        []Frame
	}{
		{
			"six fragments evenly divided into two frames",
			"2",
			nil,
			[][]byte{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}, {6, 6}},
			[]Frame{Uint8Frame{1, 1, 2, 2, 3, 3}, Uint8Frame{4, 4, 5, 5, 6, 6}},
		},
		{
			"basic offset table groups uneven fragments",
			"2",
			[]uint32{0, 20},
			[][]byte{{1, 1}, {2, 2}, {3, 3}},
			[]Frame{Uint8Frame{1, 1, 2, 2}, Uint8Frame{3, 3}},
		},
		{
			"basic offset table takes precedence over even division",
			"2",
			[]uint32{0, 20},
			[][]byte{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}, {6, 6}},
			[]Frame{Uint8Frame{1, 1, 2, 2}, Uint8Frame{3, 3, 4, 4, 5, 5, 6, 6}},
		},
		{
			"one fragment per frame",
			"2",
			[]uint32{0, 10},
			[][]byte{{1, 1}, {2, 2}},
			[]Frame{Uint8Frame{1, 1}, Uint8Frame{2, 2}},
		},
		{
			"single frame of several fragments",
			"",
			[]uint32{0},
			[][]byte{{1, 1}, {2, 2}},
			[]Frame{Uint8Frame{1, 1, 2, 2}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := explicitLE()
			if tc.frames != "" {
				b.text(NumberOfFramesTag, "IS", tc.frames)
			}
			body := encapsulated(b, tc.offsetTable, tc.fragments...).bytes()
			ds := mustParse(t, dicomFile(JPEGBaselineUID, body))

			e := mustElement(t, ds, PixelDataTag)
			pd, ok := e.Value.(*PixelData)
			if !ok {
				t.Fatalf("got %T, want *PixelData", e.Value)
			}
			if !pd.Encapsulated || !e.UndefinedLength {
				t.Fatalf("expected encapsulated pixel data of undefined length")
			}
			if e.ValueLength != 0 {
				t.Fatalf("got value length %d, want 0 for undefined length", e.ValueLength)
			}
			if !reflect.DeepEqual(pd.Frames, tc.want) {
				t.Fatalf("got %v, want %v", pd.Frames, tc.want)
			}
			if len(tc.offsetTable) > 0 && !reflect.DeepEqual(pd.OffsetTable, tc.offsetTable) {
				t.Fatalf("got %v, want %v", pd.OffsetTable, tc.offsetTable)
			}
		})
	}
}

func TestParse_fragmentsNotDivisibleIntoFrames(t *testing.T) {
	b := explicitLE().text(NumberOfFramesTag, "IS", "2")
	body := encapsulated(b, nil, []byte{1, 1}, []byte{2, 2}, []byte{3, 3}).bytes()
	_, err := Parse(dicomFile(JPEGBaselineUID, body))
	if !errors.Is(err, ErrFragmentFrameMismatch) {
		t.Fatalf("got error %v, want %v", err, ErrFragmentFrameMismatch)
	}
}

func TestParse_nestedTransformsRunPostOrder(t *testing.T) {
	body := explicitLE().
		header(referencedImageSequenceTag, "SQ", UndefinedLength).
		item(UndefinedLength).
		text(referencedSOPInstanceUIDTag, "UI", "1.2.3").
		itemDelimiter().
		sequenceDelimiter().
		bytes()

	var visited []DataElementTag
	record := WithTransform(func(e *DataElement) (*DataElement, error) {
		if !e.Tag.IsMetaElement() {
			visited = append(visited, e.Tag)
		}
		return e, nil
	})
	mustParse(t, dicomFile(ExplicitVRLittleEndianUID, body), record)

	want := []DataElementTag{referencedSOPInstanceUIDTag, referencedImageSequenceTag}
	if !reflect.DeepEqual(visited, want) {
		t.Fatalf("got %v, want %v", visited, want)
	}
}

func TestParse_bodyDuplicatingMetaElementIsDropped(t *testing.T) {
	body := explicitLE().text(TransferSyntaxUIDTag, "UI", ImplicitVRLittleEndianUID).bytes()
	ds := mustParse(t, append(dicomFile(ExplicitVRLittleEndianUID, nil), body...))
	if uid, _ := ds.StringValue(TransferSyntaxUIDTag); uid != ExplicitVRLittleEndianUID {
		t.Fatalf("got %v, want %v", uid, ExplicitVRLittleEndianUID)
	}
}
