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

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// defaultCharacterRepertoire decodes values of VRs that are not affected by the Specific
// Character Set. Such values are restricted to the default repertoire so any ASCII safe decoder
// works.
var defaultCharacterRepertoire encoding.Encoding = charmap.Windows1252

// defaultSpecialCharacterSet is the label used for character set sensitive VRs when the data set
// has no Specific Character Set (0008,0005).
const defaultSpecialCharacterSet = "utf-8"

// lookupLabelByTerm is a mapping of specific character set defined terms to golang charset labels.
// See link below for list of character set defined terms.
// http://dicom.nema.org/medical/dicom/current/output/chtml/part02/sect_D.6.2.html
var lookupLabelByTerm = map[string]string{
	"ISO_IR 6":   "us-ascii",
	"ISO_IR 100": "iso-8859-1",
	"ISO_IR 101": "iso-8859-2",
	"ISO_IR 109": "iso-8859-3",
	"ISO_IR 110": "iso-8859-4",
	"ISO_IR 144": "iso-8859-5",
	"ISO_IR 127": "iso-8859-6",
	"ISO_IR 126": "iso-8859-7",
	"ISO_IR 138": "iso-8859-8",
	"ISO_IR 148": "iso-8859-9",
	"ISO_IR 13":  "shift-jis",
	"ISO_IR 166": "tis-620",
	"ISO_IR 192": "utf-8",
	"GB18030":    "gb18030",
	"GB2312":     "gb2312",
	"GBK":        "gbk",
	// TODO support ISO 2022 code extension escape sequences instead of a single decoder per term
	"ISO 2022 IR 6":   "us-ascii",
	"ISO 2022 IR 100": "iso-8859-1",
	"ISO 2022 IR 101": "iso-8859-2",
	"ISO 2022 IR 109": "iso-8859-3",
	"ISO 2022 IR 110": "iso-8859-4",
	"ISO 2022 IR 144": "iso-8859-5",
	"ISO 2022 IR 127": "iso-8859-6",
	"ISO 2022 IR 126": "iso-8859-7",
	"ISO 2022 IR 138": "iso-8859-8",
	"ISO 2022 IR 148": "iso-8859-9",
	"ISO 2022 IR 13":  "shift-jis",
	"ISO 2022 IR 166": "tis-620",
	"ISO 2022 IR 87":  "iso-2022-jp",
	"ISO 2022 IR 159": "iso-2022-jp",
	"ISO 2022 IR 149": "euc-kr",
	"ISO 2022 IR 58":  "gb2312",
}

// lookupEncoding returns the encoding for a Specific Character Set defined term, e.g.
// "ISO_IR 100".
func lookupEncoding(term string) (encoding.Encoding, error) {
	label, ok := lookupLabelByTerm[term]
	if !ok {
		return nil, fmt.Errorf("specific character set defined term not found: %v", term)
	}
	return lookupEncodingByLabel(label)
}

// lookupEncodingByLabel returns the encoding for a WHATWG label, e.g. "utf-8" or "iso-8859-1".
func lookupEncodingByLabel(label string) (encoding.Encoding, error) {
	coding, _ := charset.Lookup(label)
	if coding == nil {
		return nil, fmt.Errorf("missing encoding for label %q", label)
	}
	return coding, nil
}

// decodeContext carries the text decoders used while interpreting values. The default decoder
// applies to VRs restricted to the default repertoire, the special decoder to character set
// sensitive VRs.
type decodeContext struct {
	defaultDecoder *encoding.Decoder
	specialDecoder *encoding.Decoder
}

func newDecodeContext(special encoding.Encoding) decodeContext {
	if special == nil {
		special = unicode.UTF8
	}
	return decodeContext{
		defaultDecoder: defaultCharacterRepertoire.NewDecoder(),
		specialDecoder: special.NewDecoder(),
	}
}

func (c decodeContext) decode(b []byte, vr VR) (string, error) {
	d := c.defaultDecoder
	if vr.IsCharsetSensitive() {
		d = c.specialDecoder
	}
	s, err := d.Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decoding %v value: %w", vr, err)
	}
	return string(s), nil
}

// specialCharacterSetTerm returns the defined term selecting the decoder for character set
// sensitive VRs. With code extensions (several values) the second value is used.
func specialCharacterSetTerm(values []string) (term string, extended bool) {
	switch len(values) {
	case 0:
		return "", false
	case 1:
		return cleanString(values[0]), false
	default:
		return cleanString(values[1]), true
	}
}
