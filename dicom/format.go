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
	"math"
	"strconv"
	"strings"
)

const (
	// valueDisplayLimit is the number of characters of a value rendered before "..."
	valueDisplayLimit = 65

	// lineValueWidth is the column at which the length of an element is printed in a dump line
	lineValueWidth = 55

	noValueAvailable = "(no value available)"
)

// ValueString renders the value of e for display. With pretty set, non integral floats are
// rounded to 4 significant digits, DA values are rendered YYYY-MM-DD and TM values HH:MM:SS.
func ValueString(e *DataElement, pretty bool) string {
	if e == nil || e.Value == nil {
		return ""
	}
	if hasNoValue(e) {
		return noValueAvailable
	}
	switch v := e.Value.(type) {
	case *PixelData:
		if v.Encapsulated {
			return "(PixelSequence)"
		}
		return pixelString(e.VR, v)
	case *Sequence:
		return fmt.Sprintf("(Sequence #=%d)", v.Len())
	case BulkData:
		return fmt.Sprintf("(BulkData #=%d)", v.Len())
	case Empty:
		return ""
	}

	if pretty {
		if s, ok := e.Value.(Strings); ok {
			switch e.VR {
			case DAVR:
				return prettyDate(cleanString(s[0]))
			case TMVR:
				return prettyTime(cleanString(s[0]))
			}
		}
	}

	var b budget
	components := e.Value.components()
	for k, c := range components {
		s := componentString(e.VR, c, pretty)
		if k != 0 {
			s = "\\" + s
		}
		if !b.add(s) {
			break
		}
	}
	return b.String()
}

func hasNoValue(e *DataElement) bool {
	switch v := e.Value.(type) {
	case *Sequence, *PixelData, BulkData, Empty:
		return false
	case Strings:
		return len(v) == 0 || (len(v) == 1 && v[0] == "")
	}
	return e.Value.Len() == 0
}

// budget accumulates display text up to valueDisplayLimit characters.
type budget struct {
	strings.Builder
}

// add appends s if it fits in the budget, otherwise it appends "..." and returns false.
func (b *budget) add(s string) bool {
	if b.Len()+len(s) <= valueDisplayLimit {
		b.WriteString(s)
		return true
	}
	b.WriteString("...")
	return false
}

func componentString(vr VR, c interface{}, pretty bool) string {
	switch v := c.(type) {
	case string:
		if vr == DSVR || vr == FLVR || vr == FDVR {
			if f, err := strconv.ParseFloat(cleanString(v), 64); err == nil {
				return floatString(f, pretty)
			}
		}
		return cleanString(v)
	case float64:
		return floatString(v, pretty)
	case byte:
		if isOtherVR(vr) {
			return fmt.Sprintf("%02x", v)
		}
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		if isOtherVR(vr) {
			return fmt.Sprintf("%04x", v)
		}
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return fmt.Sprint(c)
}

// isOtherVR is true for the "O" VRs and the ox VR whose values are rendered in hexadecimal.
func isOtherVR(vr VR) bool {
	return vr.isOther() || vr == OXVR
}

func floatString(f float64, pretty bool) string {
	if pretty && f != math.Trunc(f) {
		return strconv.FormatFloat(f, 'g', 4, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// prettyDate renders YYYYMMDD, or the legacy YYYY.MM.DD, as YYYY-MM-DD.
func prettyDate(da string) string {
	monthBegin, dayBegin := 4, 6
	if len(da) != 8 {
		monthBegin, dayBegin = 5, 8
	}
	if len(da) < dayBegin+2 {
		return da
	}
	return da[:4] + "-" + da[monthBegin:monthBegin+2] + "-" + da[dayBegin:dayBegin+2]
}

// prettyTime renders HH[MM[SS[.FFFFFF]]] as HH:MM:SS.
func prettyTime(tm string) string {
	if len(tm) < 2 {
		return tm
	}
	minutes, seconds := "00", "00"
	if len(tm) >= 4 {
		minutes = tm[2:4]
	}
	if len(tm) >= 6 {
		seconds = tm[4:6]
	}
	return tm[:2] + ":" + minutes + ":" + seconds
}

func pixelString(vr VR, pd *PixelData) string {
	digits := 4
	if vr == OBVR {
		digits = 2
	}
	var b budget
	k := 0
	for _, f := range pd.Frames {
		for i := 0; i < f.Len(); i++ {
			s := fmt.Sprintf("%0*x", digits, frameSample(f, i))
			if k != 0 {
				s = "\\" + s
			}
			k++
			if !b.add(s) {
				return b.String()
			}
		}
	}
	return b.String()
}

// frameSample returns sample i of f reinterpreted as an unsigned number of the same width.
func frameSample(f Frame, i int) uint64 {
	switch v := f.(type) {
	case Uint8Frame:
		return uint64(v[i])
	case Int8Frame:
		return uint64(uint8(v[i]))
	case Uint16Frame:
		return uint64(v[i])
	case Int16Frame:
		return uint64(uint16(v[i]))
	}
	return 0
}

// elementString renders e as a dcmdump style line, followed by one line per nested element and
// delimiter for sequences.
func elementString(e *DataElement, prefix string) string {
	size := 0
	if e.Value != nil {
		size = e.Value.Len()
	}
	switch {
	case e.Tag.IsDelimiter():
		size = 0
	case isOtherVR(e.VR):
		size = 1
	}

	var field string
	pd, isPixelData := e.Value.(*PixelData)
	seq, isSequence := e.Value.(*Sequence)
	switch {
	case hasNoValue(e):
		field = noValueAvailable
		size = 0
	case isPixelData && pd.Encapsulated:
		field = fmt.Sprintf("(PixelSequence #=%d)", pd.Len())
		size = pd.Len()
	case isSequence:
		field = fmt.Sprintf("(Sequence with %s length #=%d)", lengthKind(e.UndefinedLength), seq.Len())
	case isNumericDisplay(e.VR) || isPixelData:
		field = ValueString(e, false)
	default:
		field = "[" + ValueString(e, false) + "]"
	}

	name, ok := e.Tag.DictionaryName()
	if !ok {
		name = "Unknown Tag & Data"
	}
	line := prefix + dumpLine(e.Tag, e.VR.String(), field, e.ValueLength, size, name)
	if !isSequence {
		return line
	}

	lines := []string{line}
	for _, item := range seq.Items {
		lines = append(lines, prefix+"  "+dumpLine(ItemTag, "na",
			fmt.Sprintf("(Item with %s length #=%d)", lengthKind(item.UndefinedLength), len(item.Elements)),
			item.Length, 1, "Item"))
		lines = append(lines, item.string(len(prefix)/2+2))

		delim := "(ItemDelimitationItem)"
		if !item.UndefinedLength {
			delim = "(ItemDelimitationItem for re-encoding)"
		}
		lines = append(lines, prefix+"  "+dumpLine(ItemDelimitationItemTag, "na", delim, 0, 0,
			"ItemDelimitationItem"))
	}
	delim := "(SequenceDelimitationItem)"
	if !e.UndefinedLength {
		delim = "(SequenceDelimitationItem for re-encod.)"
	}
	lines = append(lines, prefix+dumpLine(SequenceDelimitationItemTag, "na", delim, 0, 0,
		"SequenceDelimitationItem"))
	return strings.Join(nonEmpty(lines), "\n")
}

func dumpLine(tag DataElementTag, vr, field string, vl uint32, size int, name string) string {
	line := fmt.Sprintf("(%04x,%04x) %s %s", tag.GroupNumber(), tag.ElementNumber(), vr, field)
	if pad := lineValueWidth - len(line); pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	return fmt.Sprintf("%s # %3d, %d %s", line, vl, size, name)
}

func lengthKind(undefined bool) string {
	if undefined {
		return "undefined"
	}
	return "explicit"
}

// isNumericDisplay is true for VRs whose values are printed without brackets.
func isNumericDisplay(vr VR) bool {
	switch vr {
	case ULVR, USVR, SLVR, SSVR, SVVR, UVVR, FLVR, FDVR, ATVR, XSVR:
		return true
	}
	return isOtherVR(vr)
}

func nonEmpty(lines []string) []string {
	out := lines[:0]
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
