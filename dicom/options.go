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
	"github.com/rs/zerolog"
)

// Transform describes a transformation applied to a DataElement
type Transform func(*DataElement) (*DataElement, error)

// ParseOption configures the behavior of the Parse function.
type ParseOption struct {
	apply func(*parseOptions)
}

type parseOptions struct {
	transforms          []Transform
	isBulkData          func(DataElementTag) bool
	logger              zerolog.Logger
	defaultCharacterSet string
}

func newParseOptions(opts []ParseOption) *parseOptions {
	o := &parseOptions{
		logger:              zerolog.Nop(),
		defaultCharacterSet: defaultSpecialCharacterSet,
	}
	for _, opt := range opts {
		if opt.apply != nil {
			opt.apply(o)
		}
	}
	return o
}

// WithTransform returns a ParseOption that applies the given transformation to each DataElement in
// the DICOM file once its value is interpreted. Elements of a data set are transformed in
// ascending tag order. For DataElements that contain a sequence, the transform is applied to
// nested DataElements first (i.e. transform is called on DataElements in post-order).
// If the transform returns an error, Parse will stop parsing and return an error.
// If no error is returned and a non-nil DataElement is returned, this DataElement will be added to
// the returned DataSet of Parse. If a nil DataElement is returned, this DataElement will be
// excluded from the DataSet returned from Parse.
func WithTransform(t Transform) ParseOption {
	return ParseOption{func(o *parseOptions) {
		o.transforms = append(o.transforms, t)
	}}
}

// WithLogger returns a ParseOption reporting recoverable anomalies, such as duplicate tags, to
// logger. By default nothing is logged.
func WithLogger(logger zerolog.Logger) ParseOption {
	return ParseOption{func(o *parseOptions) {
		o.logger = logger
	}}
}

// WithDefaultCharacterSet returns a ParseOption selecting the decoder of character set sensitive
// VRs for data sets without a Specific Character Set (0008,0005). label is a WHATWG encoding
// label such as "utf-8" or "iso-8859-1".
func WithDefaultCharacterSet(label string) ParseOption {
	return ParseOption{func(o *parseOptions) {
		o.defaultCharacterSet = label
	}}
}

// ReferenceBulkData returns a ParseOption replacing the value of every element for which
// bulkDataDefinition returns true with a BulkData value locating its bytes in the parsed buffer.
func ReferenceBulkData(bulkDataDefinition func(DataElementTag) bool) ParseOption {
	return ParseOption{func(o *parseOptions) {
		o.isBulkData = bulkDataDefinition
	}}
}

// DropGroupLengths will exclude all group length elements (gggg,0000) from the returned DataSet
var DropGroupLengths = WithTransform(func(element *DataElement) (*DataElement, error) {
	if element.Tag.ElementNumber() == 0 {
		return nil, nil
	}
	return element, nil
})

// DropBasicOffsetTable will discard the basic offset table of pixel data encoded using the
// encapsulated (compressed) format. For more information on the offset table and encapsulated
// formats please see http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_A.4
var DropBasicOffsetTable = WithTransform(func(element *DataElement) (*DataElement, error) {
	if pd, ok := element.Value.(*PixelData); ok && element.Tag == PixelDataTag {
		pd.OffsetTable = nil
	}
	return element, nil
})
