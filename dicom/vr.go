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

// vrType is to group common encodings together
type vrType int

const (
	// textVR is for value fields that are decoded as text and split on the "\" delimiter
	textVR vrType = iota

	// uint8VR, int16VR ... are for value fields decoded as arrays of binary numbers
	uint8VR
	uint16VR
	int16VR
	uint32VR
	int32VR
	uint64VR
	int64VR
	float32VR
	float64VR

	// ambiguousOBOWVR is for "ox": OB or OW depending on BitsAllocated
	ambiguousOBOWVR

	// ambiguousUSSSVR is for "xs": US or SS depending on PixelRepresentation
	ambiguousUSSSVR

	// tagVR is for tags. Distinct from uint16VR since values are rendered as (GGGG,EEEE)
	tagVR

	// sequenceVR is for VR: SQ
	sequenceVR

	// noneVR is for item and delimitation tags that carry no value
	noneVR
)

// UndefinedLength as specified
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.1
const UndefinedLength = 0xffffffff

// VR models the DICOM Value representations (VR)
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
//
// VR is a closed enumeration. Besides the standard codes it holds NoneVR for delimitation items
// and the two dictionary pseudo VRs "ox" and "xs" whose encoding is only known once
// BitsAllocated and PixelRepresentation have been read.
type VR uint8

// VR list obtained from
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_6.2
const (
	NoneVR VR = iota

	// textual VRs
	AEVR
	ASVR
	CSVR
	DAVR
	DSVR
	DTVR
	ISVR
	LOVR
	LTVR
	PNVR
	SHVR
	STVR
	TMVR
	UCVR
	UIVR
	URVR
	UTVR

	// binary numbers
	FDVR
	FLVR
	SLVR
	SSVR
	SVVR
	ULVR
	USVR
	UVVR

	// large binary sequences
	OBVR
	ODVR
	OFVR
	OLVR
	OVVR
	OWVR

	// unknown
	UNVR

	// attribute tag
	ATVR

	// sequence
	SQVR

	// dictionary only ambiguous VRs
	OXVR
	XSVR

	numVRs
)

var vrNames = [numVRs]string{
	NoneVR: "NONE",
	AEVR:   "AE", ASVR: "AS", CSVR: "CS", DAVR: "DA", DSVR: "DS", DTVR: "DT", ISVR: "IS",
	LOVR: "LO", LTVR: "LT", PNVR: "PN", SHVR: "SH", STVR: "ST", TMVR: "TM", UCVR: "UC",
	UIVR: "UI", URVR: "UR", UTVR: "UT",
	FDVR: "FD", FLVR: "FL", SLVR: "SL", SSVR: "SS", SVVR: "SV", ULVR: "UL", USVR: "US",
	UVVR: "UV",
	OBVR: "OB", ODVR: "OD", OFVR: "OF", OLVR: "OL", OVVR: "OV", OWVR: "OW",
	UNVR: "UN",
	ATVR: "AT",
	SQVR: "SQ",
	OXVR: "ox",
	XSVR: "xs",
}

var vrLookupMap = func() map[string]VR {
	m := make(map[string]VR, numVRs)
	for vr := NoneVR; vr < numVRs; vr++ {
		m[vrNames[vr]] = vr
	}
	return m
}()

// String returns the 2-character VR code, "NONE" for NoneVR.
func (vr VR) String() string {
	if vr >= numVRs {
		return fmt.Sprintf("VR(%d)", uint8(vr))
	}
	return vrNames[vr]
}

func lookupVRByName(name string) (VR, error) {
	r, ok := vrLookupMap[name]
	if !ok {
		return NoneVR, fmt.Errorf("%w: %q", ErrUnknownVR, name)
	}
	return r, nil
}

func (vr VR) kind() (vrType, error) {
	switch vr {
	case AEVR, ASVR, CSVR, DAVR, DSVR, DTVR, ISVR, LOVR, LTVR, PNVR, SHVR, STVR, TMVR, UCVR,
		UIVR, URVR, UTVR:
		return textVR, nil
	case OBVR, UNVR:
		return uint8VR, nil
	case OWVR, USVR:
		return uint16VR, nil
	case SSVR:
		return int16VR, nil
	case OLVR, ULVR:
		return uint32VR, nil
	case SLVR:
		return int32VR, nil
	case OVVR, UVVR:
		return uint64VR, nil
	case SVVR:
		return int64VR, nil
	case OFVR, FLVR:
		return float32VR, nil
	case ODVR, FDVR:
		return float64VR, nil
	case OXVR:
		return ambiguousOBOWVR, nil
	case XSVR:
		return ambiguousUSSSVR, nil
	case ATVR:
		return tagVR, nil
	case SQVR:
		return sequenceVR, nil
	case NoneVR:
		return noneVR, nil
	}
	return 0, fmt.Errorf("%w: %v", ErrUnknownVR, vr)
}

// Has32BitLength reports whether the value length of vr is stored in a 32 bit field preceded by
// 2 reserved bytes in the explicit VR syntaxes, as defined at
// http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_7.1.2
func (vr VR) Has32BitLength() bool {
	switch vr {
	case OBVR, ODVR, OFVR, OLVR, OVVR, OWVR, SQVR, SVVR, UCVR, URVR, UTVR, UNVR, UVVR:
		return true
	default:
		return false
	}
}

// IsCharsetSensitive reports whether values of vr are decoded with the Specific Character Set
// of the data set rather than the default repertoire.
func (vr VR) IsCharsetSensitive() bool {
	switch vr {
	case SHVR, LOVR, UCVR, STVR, LTVR, UTVR, PNVR:
		return true
	default:
		return false
	}
}

// isOther is true for the OB, OD, OF, OL, OV and OW VRs
func (vr VR) isOther() bool {
	switch vr {
	case OBVR, ODVR, OFVR, OLVR, OVVR, OWVR:
		return true
	default:
		return false
	}
}
