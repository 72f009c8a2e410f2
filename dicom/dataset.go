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
	"sort"
	"strconv"
	"strings"
)

// DataSet is a collection of data elements. It is the result of Parse and the type of the items
// of a Sequence.
type DataSet struct {
	// Elements is a map of DataElement tags to *DataElement
	Elements map[DataElementTag]*DataElement

	// Length is the item length of a sequence item, 0 for the top level data set and for items of
	// undefined length
	Length uint32

	// UndefinedLength is true for sequence items terminated by an item delimitation item
	UndefinedLength bool
}

// SortedTags returns the tags of the elements of ds in ascending order.
func (ds *DataSet) SortedTags() []DataElementTag {
	tags := make([]DataElementTag, 0, len(ds.Elements))
	for tag := range ds.Elements {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// SortedElements returns the elements of ds in ascending tag order.
func (ds *DataSet) SortedElements() []*DataElement {
	elements := make([]*DataElement, 0, len(ds.Elements))
	for _, tag := range ds.SortedTags() {
		elements = append(elements, ds.Elements[tag])
	}
	return elements
}

func sortedRawTags(elements map[DataElementTag]*rawElement) []DataElementTag {
	tags := make([]DataElementTag, 0, len(elements))
	for tag := range elements {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// Element returns the element of ds with the given tag.
func (ds *DataSet) Element(tag DataElementTag) (*DataElement, bool) {
	e, ok := ds.Elements[tag]
	return e, ok
}

// ElementByKey returns the element of ds whose tag has the given "xGGGGEEEE" key.
func (ds *DataSet) ElementByKey(key string) (*DataElement, bool) {
	tag, err := TagFromKey(key)
	if err != nil {
		return nil, false
	}
	return ds.Element(tag)
}

// GetValue returns the value of the element with the given key. When the value has exactly one
// component and asArray is false the component itself is returned (e.g. a string for a single
// valued PN, an int64 for a single valued SS). Otherwise the whole Value is returned. ok is false
// when ds has no such element.
func (ds *DataSet) GetValue(key string, asArray bool) (value interface{}, ok bool) {
	e, ok := ds.ElementByKey(key)
	if !ok || e.Value == nil {
		return nil, ok
	}
	if !asArray && e.Value.Len() == 1 {
		return e.Value.components()[0], true
	}
	return e.Value, true
}

// GetValueByName is GetValue for the element whose dictionary keyword is name, e.g. "PatientName".
func (ds *DataSet) GetValueByName(name string, asArray bool) (interface{}, bool) {
	tag, ok := TagForName(name)
	if !ok {
		return nil, false
	}
	return ds.GetValue(tag.Key(), asArray)
}

// StringValue returns the first component of a textual element with padding removed.
func (ds *DataSet) StringValue(tag DataElementTag) (string, error) {
	e, ok := ds.Element(tag)
	if !ok {
		return "", fmt.Errorf("element %v not found", tag)
	}
	s, ok := e.Value.(Strings)
	if !ok {
		return "", fmt.Errorf("element %v holds %T, want Strings", tag, e.Value)
	}
	if len(s) == 0 {
		return "", nil
	}
	return cleanString(s[0]), nil
}

// IntValue returns the first component of an integer element, or of an IS element parsed as a
// decimal integer.
func (ds *DataSet) IntValue(tag DataElementTag) (int, error) {
	e, ok := ds.Element(tag)
	if !ok {
		return 0, fmt.Errorf("element %v not found", tag)
	}
	if e.Value == nil || e.Value.Len() == 0 {
		return 0, fmt.Errorf("element %v has no value", tag)
	}
	switch v := e.Value.(type) {
	case Uints:
		return int(v[0]), nil
	case Ints:
		return int(v[0]), nil
	case Strings:
		i, err := strconv.Atoi(cleanString(v[0]))
		if err != nil {
			return 0, fmt.Errorf("element %v: %w", tag, err)
		}
		return i, nil
	}
	return 0, fmt.Errorf("element %v holds %T, want an integer value", tag, e.Value)
}

// DumpToObject returns ds as nested maps keyed by dictionary keyword, or by the bare "GGGGEEEE"
// form for unknown tags. Each element is a map with the keys "value", "group", "element", "vr" and
// "vl". The value of a sequence is a slice holding one such map per item, any other value is its
// display string.
func (ds *DataSet) DumpToObject() map[string]interface{} {
	obj := make(map[string]interface{}, len(ds.Elements))
	for _, e := range ds.SortedElements() {
		obj[e.Tag.displayName()] = elementObject(e)
	}
	return obj
}

func elementObject(e *DataElement) map[string]interface{} {
	var value interface{}
	if seq, ok := e.Value.(*Sequence); ok {
		items := make([]map[string]interface{}, len(seq.Items))
		for i, item := range seq.Items {
			items[i] = item.DumpToObject()
		}
		value = items
	} else {
		value = ValueString(e, true)
	}
	return map[string]interface{}{
		"value":   value,
		"group":   fmt.Sprintf("0x%04X", e.Tag.GroupNumber()),
		"element": fmt.Sprintf("0x%04X", e.Tag.ElementNumber()),
		"vr":      e.VR.String(),
		"vl":      e.ValueLength,
	}
}

func (ds *DataSet) String() string {
	return ds.string(0)
}

func (ds *DataSet) string(indentLvl int) string {
	prefix := strings.Repeat("  ", indentLvl)
	lines := make([]string, 0, len(ds.Elements))
	for _, e := range ds.SortedElements() {
		lines = append(lines, elementString(e, prefix))
	}
	return strings.Join(lines, "\n")
}
