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
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DictionaryEntry describes a tag of the DICOM data dictionary
// http://dicom.nema.org/medical/dicom/current/output/html/part06.html#chapter_6
type DictionaryEntry struct {
	Tag DataElementTag

	// VR is the value representation listed in the dictionary. Rows listing several VRs keep
	// the last one, except "US or SS" and "OB or OW" which are XSVR and OXVR.
	VR VR

	// VM is the value multiplicity, e.g. "1", "2-n"
	VM string

	// Name is the keyword, e.g. "PatientName"
	Name string
}

//go:embed dictionary.tsv
var dictionaryData []byte

// wildcardMasks handles all wildcard forms in the dictionary. A dictionary row such as (50xx,3000)
// is stored with the x's set to '0' and matched with (tag & 0xFF00FFFF) == 0x50003000.
var wildcardMasks = []uint32{0xFFFFFF00, 0xFFFFFF0F, 0xFFFF000F, 0xFFFF0000, 0xFF00FFFF}

type dictionary struct {
	exact    map[DataElementTag]DictionaryEntry
	wildcard map[uint32]map[DataElementTag]DictionaryEntry
	byName   map[string]DataElementTag
}

var dict = mustLoadDictionary(dictionaryData)

func mustLoadDictionary(data []byte) *dictionary {
	d, err := loadDictionary(bytes.NewReader(data))
	if err != nil {
		panic(fmt.Sprintf("loading data dictionary: %v", err))
	}
	return d
}

func loadDictionary(r io.Reader) (*dictionary, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'  // tab separated file
	reader.Comment = '#' // comments start with #
	reader.FieldsPerRecord = 4

	d := &dictionary{
		exact:    map[DataElementTag]DictionaryEntry{},
		wildcard: map[uint32]map[DataElementTag]DictionaryEntry{},
		byName:   map[string]DataElementTag{},
	}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		tag, mask, err := parseDictionaryTag(row[0])
		if err != nil {
			return nil, err
		}
		vr, err := parseDictionaryVR(row[1])
		if err != nil {
			return nil, fmt.Errorf("row %v: %v", row[0], err)
		}
		entry := DictionaryEntry{Tag: tag, VR: vr, VM: row[2], Name: row[3]}

		if mask == 0xFFFFFFFF {
			d.exact[tag] = entry
			d.byName[entry.Name] = tag
			continue
		}
		if d.wildcard[mask] == nil {
			d.wildcard[mask] = map[DataElementTag]DictionaryEntry{}
		}
		d.wildcard[mask][tag] = entry
		if _, ok := d.byName[entry.Name]; !ok {
			d.byName[entry.Name] = tag
		}
	}
	return d, nil
}

// parseDictionaryTag parses "(GGGG,EEEE)" where any digit may be the wildcard x. It returns the
// tag with wildcards set to 0 and the mask selecting the non wildcard digits.
func parseDictionaryTag(s string) (DataElementTag, uint32, error) {
	if len(s) != 11 || s[0] != '(' || s[5] != ',' || s[10] != ')' {
		return 0, 0, fmt.Errorf("malformed dictionary tag %q", s)
	}
	digits := s[1:5] + s[6:10]
	mask := uint32(0)
	hex := make([]byte, len(digits))
	for i := 0; i < len(digits); i++ {
		mask <<= 4
		if digits[i] == 'x' {
			hex[i] = '0'
			continue
		}
		mask |= 0xF
		hex[i] = digits[i]
	}
	v, err := strconv.ParseUint(string(hex), 16, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed dictionary tag %q: %v", s, err)
	}
	return DataElementTag(v), mask, nil
}

func parseDictionaryVR(s string) (VR, error) {
	if i := strings.LastIndex(s, " or "); i >= 0 {
		s = s[i+len(" or "):]
	}
	return lookupVRByName(s)
}

// LookupDictionary returns the dictionary entry for tag. Exact rows take precedence over
// wildcard rows. Group length elements (gggg,0000) are UL and private creator elements
// (gggg,0010-00FF) with gggg odd are LO. ok is false for any other tag not in the dictionary.
func LookupDictionary(tag DataElementTag) (entry DictionaryEntry, ok bool) {
	if entry, ok := dict.exact[tag]; ok {
		return entry, true
	}
	for _, m := range wildcardMasks {
		if entry, ok := dict.wildcard[m][DataElementTag(uint32(tag)&m)]; ok {
			entry.Tag = tag
			return entry, true
		}
	}
	if tag.ElementNumber() == 0 {
		return DictionaryEntry{Tag: tag, VR: ULVR, VM: "1", Name: "GenericGroupLength"}, true
	}
	if tag.IsPrivate() && tag.ElementNumber() >= 0x0010 && tag.ElementNumber() <= 0x00FF {
		return DictionaryEntry{Tag: tag, VR: LOVR, VM: "1", Name: "PrivateCreator"}, true
	}
	return DictionaryEntry{}, false
}

// TagForName returns the tag whose dictionary keyword is name.
func TagForName(name string) (DataElementTag, bool) {
	tag, ok := dict.byName[name]
	return tag, ok
}
