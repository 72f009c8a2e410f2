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
	"strings"
)

// list of transfer syntaxes obtained from
// http://dicom.nema.org/medical/dicom/current/output/html/part06.html#chapter_A
const (
	// ImplicitVRLittleEndianUID is the Implicit VR Little Endian UID
	ImplicitVRLittleEndianUID = "1.2.840.10008.1.2"
	// ExplicitVRLittleEndianUID is the Explicit VR Little Endian UID
	ExplicitVRLittleEndianUID = "1.2.840.10008.1.2.1"
	// ExplicitVRBigEndianUID is the Explicit VR Big Endian UID
	ExplicitVRBigEndianUID = "1.2.840.10008.1.2.2"
	// DeflatedExplicitVRLittleEndianUID is the Deflated Explicit VR Little Endian UID
	DeflatedExplicitVRLittleEndianUID = "1.2.840.10008.1.2.1.99"
	// JPEGBaselineUID is the JPEG Baseline (Process 1) transfer syntax UID
	JPEGBaselineUID = "1.2.840.10008.1.2.4.50"
	// JPEGLosslessSV1UID is the JPEG Lossless, Non-Hierarchical, First-Order Prediction UID
	JPEGLosslessSV1UID = "1.2.840.10008.1.2.4.70"
	// JPEG2000LosslessUID is the JPEG 2000 Image Compression (Lossless Only) UID
	JPEG2000LosslessUID = "1.2.840.10008.1.2.4.90"
	// RLELosslessUID is the RLE Lossless UID
	RLELosslessUID = "1.2.840.10008.1.2.5"
	// MPEG2MainProfileUID is the MPEG2 Main Profile / Main Level UID
	MPEG2MainProfileUID = "1.2.840.10008.1.2.4.100"
)

// Names of the decompression algorithms external decoders are selected by.
const (
	JPEGBaselineAlgorithm = "jpeg-baseline"
	JPEGLosslessAlgorithm = "jpeg-lossless"
	JPEG2000Algorithm     = "jpeg2000"
	RLEAlgorithm          = "rle"
)

// TransferSyntax describes how the data set following the file meta information is encoded.
type TransferSyntax struct {
	UID  string
	Name string

	// ByteOrder of every multi-byte field after the file meta information
	ByteOrder binary.ByteOrder

	// Implicit is true when VRs are not written in the stream and must come from the dictionary
	Implicit bool

	// Algorithm names the decompression algorithm of encapsulated pixel data, "" when pixel
	// data is native
	Algorithm string

	Retired bool

	// Supported is false for syntaxes this package refuses to read
	Supported bool
}

// IsCompressed reports whether pixel data in this syntax must be handed to a decoder.
func (ts TransferSyntax) IsCompressed() bool {
	return ts.Algorithm != ""
}

func (ts TransferSyntax) String() string {
	return fmt.Sprintf("%s (%s)", ts.UID, ts.Name)
}

var transferSyntaxes = []TransferSyntax{
	{ImplicitVRLittleEndianUID, "Implicit VR Little Endian: Default Transfer Syntax for DICOM", binary.LittleEndian, true, "", false, true},
	{ExplicitVRLittleEndianUID, "Explicit VR Little Endian", binary.LittleEndian, false, "", false, true},
	{DeflatedExplicitVRLittleEndianUID, "Deflated Explicit VR Little Endian", binary.LittleEndian, false, "", false, false},
	{ExplicitVRBigEndianUID, "Explicit VR Big Endian", binary.BigEndian, false, "", true, true},

	{JPEGBaselineUID, "JPEG Baseline (Process 1)", binary.LittleEndian, false, JPEGBaselineAlgorithm, false, true},
	{"1.2.840.10008.1.2.4.51", "JPEG Baseline (Processes 2 & 4)", binary.LittleEndian, false, JPEGBaselineAlgorithm, false, true},
	{"1.2.840.10008.1.2.4.52", "JPEG Extended (Processes 3 & 5)", binary.LittleEndian, false, "", true, false},
	{"1.2.840.10008.1.2.4.53", "JPEG Spectral Selection, Nonhierarchical (Processes 6 & 8)", binary.LittleEndian, false, "", true, false},
	{"1.2.840.10008.1.2.4.54", "JPEG Spectral Selection, Nonhierarchical (Processes 7 & 9)", binary.LittleEndian, false, "", true, false},
	{"1.2.840.10008.1.2.4.55", "JPEG Full Progression, Nonhierarchical (Processes 10 & 12)", binary.LittleEndian, false, "", true, false},
	{"1.2.840.10008.1.2.4.56", "JPEG Full Progression, Nonhierarchical (Processes 11 & 13)", binary.LittleEndian, false, "", true, false},
	{"1.2.840.10008.1.2.4.57", "JPEG Lossless, Nonhierarchical (Processes 14)", binary.LittleEndian, false, JPEGLosslessAlgorithm, false, true},
	{"1.2.840.10008.1.2.4.58", "JPEG Lossless, Nonhierarchical (Processes 15)", binary.LittleEndian, false, "", true, false},
	{"1.2.840.10008.1.2.4.59", "JPEG Extended, Hierarchical (Processes 16 & 18)", binary.LittleEndian, false, "", true, false},
	{"1.2.840.10008.1.2.4.60", "JPEG Extended, Hierarchical (Processes 17 & 19)", binary.LittleEndian, false, "", true, false},
	{"1.2.840.10008.1.2.4.61", "JPEG Spectral Selection, Hierarchical (Processes 20 & 22)", binary.LittleEndian, false, "", true, false},
	{"1.2.840.10008.1.2.4.62", "JPEG Spectral Selection, Hierarchical (Processes 21 & 23)", binary.LittleEndian, false, "", true, false},
	{"1.2.840.10008.1.2.4.63", "JPEG Full Progression, Hierarchical (Processes 24 & 26)", binary.LittleEndian, false, "", true, false},
	{"1.2.840.10008.1.2.4.64", "JPEG Full Progression, Hierarchical (Processes 25 & 27)", binary.LittleEndian, false, "", true, false},
	{"1.2.840.10008.1.2.4.65", "JPEG Lossless, Nonhierarchical (Process 28)", binary.LittleEndian, false, "", true, false},
	{"1.2.840.10008.1.2.4.66", "JPEG Lossless, Nonhierarchical (Process 29)", binary.LittleEndian, false, "", true, false},
	{JPEGLosslessSV1UID, "JPEG Lossless, Nonhierarchical, First-Order Prediction", binary.LittleEndian, false, JPEGLosslessAlgorithm, false, true},
	{"1.2.840.10008.1.2.4.80", "JPEG-LS Lossless Image Compression", binary.LittleEndian, false, "", false, false},
	{"1.2.840.10008.1.2.4.81", "JPEG-LS Lossy (Near-Lossless) Image Compression", binary.LittleEndian, false, "", false, false},
	{JPEG2000LosslessUID, "JPEG 2000 Image Compression (Lossless Only)", binary.LittleEndian, false, JPEG2000Algorithm, false, true},
	{"1.2.840.10008.1.2.4.91", "JPEG 2000 Image Compression", binary.LittleEndian, false, JPEG2000Algorithm, false, true},
	{"1.2.840.10008.1.2.4.92", "JPEG 2000 Part 2 Multi-component Image Compression (Lossless Only)", binary.LittleEndian, false, JPEG2000Algorithm, false, true},
	{"1.2.840.10008.1.2.4.93", "JPEG 2000 Part 2 Multi-component Image Compression", binary.LittleEndian, false, JPEG2000Algorithm, false, true},
	{"1.2.840.10008.1.2.4.94", "JPIP Referenced", binary.LittleEndian, false, JPEG2000Algorithm, false, true},
	{"1.2.840.10008.1.2.4.95", "JPIP Referenced Deflate", binary.LittleEndian, false, JPEG2000Algorithm, false, true},
	{RLELosslessUID, "RLE Lossless", binary.LittleEndian, false, RLEAlgorithm, false, true},
	{"1.2.840.10008.1.2.6.1", "RFC 2557 MIME encapsulation", binary.LittleEndian, false, "", true, false},
	{MPEG2MainProfileUID, "MPEG2 Main Profile / Main Level", binary.LittleEndian, false, "", false, false},
	{"1.2.840.10008.1.2.4.102", "MPEG-4 AVC/H.264 High Profile / Level 4.1", binary.LittleEndian, false, "", false, false},
	{"1.2.840.10008.1.2.4.103", "MPEG-4 AVC/H.264 BD-compatible High Profile / Level 4.1", binary.LittleEndian, false, "", false, false},
}

var transferSyntaxByUID = func() map[string]TransferSyntax {
	m := make(map[string]TransferSyntax, len(transferSyntaxes))
	for _, ts := range transferSyntaxes {
		m[ts.UID] = ts
	}
	return m
}()

// LookupTransferSyntax returns the registered transfer syntax with the given UID. Padding and
// control characters around uid are ignored.
func LookupTransferSyntax(uid string) (TransferSyntax, bool) {
	ts, ok := transferSyntaxByUID[cleanString(uid)]
	return ts, ok
}

// resolveTransferSyntax returns the syntax used to read the data set, or an
// ErrUnsupportedTransferSyntax error naming the syntax.
func resolveTransferSyntax(uid string) (TransferSyntax, error) {
	ts, ok := LookupTransferSyntax(uid)
	if !ok {
		return ts, fmt.Errorf("%w: '%s' (Unknown)", ErrUnsupportedTransferSyntax, cleanString(uid))
	}
	if !ts.Supported {
		return ts, fmt.Errorf("%w: '%s' (%s)", ErrUnsupportedTransferSyntax, ts.UID, ts.Name)
	}
	return ts, nil
}

const (
	vrSize  = 2
	tagSize = 4
)

// syntax reads the VR and value length fields of a data element header. The offset returned is
// the offset just after the field read.
type syntax interface {
	isImplicit() bool
	readVR(r *DataReader, offset int, tag DataElementTag) (VR, int, error)
	readValueLength(r *DataReader, offset int, vr VR) (uint32, int, error)
}

type implicitSyntax struct{}

func (implicitSyntax) isImplicit() bool {
	return true
}

func (implicitSyntax) readVR(r *DataReader, offset int, tag DataElementTag) (VR, int, error) {
	return tag.DictionaryVR(), offset, nil
}

func (implicitSyntax) readValueLength(r *DataReader, offset int, vr VR) (uint32, int, error) {
	length, err := r.Uint32(offset)
	return length, offset + 4, err
}

type explicitSyntax struct{}

func (explicitSyntax) isImplicit() bool {
	return false
}

func (explicitSyntax) readVR(r *DataReader, offset int, tag DataElementTag) (VR, int, error) {
	b, err := r.Bytes(offset, vrSize)
	if err != nil {
		return NoneVR, offset, fmt.Errorf("getting vr: %w", err)
	}
	vr, err := lookupVRByName(string(b))
	if err != nil || vr == NoneVR || vr == OXVR || vr == XSVR {
		return NoneVR, offset, tagError(offset, tag, fmt.Errorf("%w: %q", ErrUnknownVR, string(b)))
	}
	offset += vrSize
	if vr.Has32BitLength() {
		// reserved 2 bytes
		offset += 2
	}
	return vr, offset, nil
}

func (explicitSyntax) readValueLength(r *DataReader, offset int, vr VR) (uint32, int, error) {
	// For explicit VR, lengths can be stored in a 32 bit field or a 16 bit field
	// depending on the VR type. The 2 cases are defined at the link:
	// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.2
	if vr.Has32BitLength() {
		length, err := r.Uint32(offset)
		if err != nil {
			return 0, offset, fmt.Errorf("reading 32 bit length: %w", err)
		}
		return length, offset + 4, nil
	}

	length, err := r.Uint16(offset)
	if err != nil {
		return 0, offset, fmt.Errorf("reading 16 bit length: %w", err)
	}
	return uint32(length), offset + 2, nil
}

func syntaxFor(implicit bool) syntax {
	if implicit {
		return implicitSyntax{}
	}
	return explicitSyntax{}
}

// cleanString trims surrounding white space, NUL padding and a trailing zero width space.
func cleanString(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return r == 0x00 || r == ' ' || r == '\t' || r == '\r' || r == '\n'
	})
	return strings.TrimSuffix(s, "\u200b")
}
