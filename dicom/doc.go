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

// Package dicom parses the DICOM file format.
//
// Parse walks a DICOM file held in memory: the optional 128 byte preamble and "DICM" prefix, the
// file meta information group, which is always explicit VR little endian, and the main data set in
// the byte order and VR encoding of its transfer syntax. Elements are first scanned into byte
// ranges, recursing into sequences, items and encapsulated pixel data fragments, and then
// interpreted into typed Values according to their VR. Character set sensitive strings are decoded
// with the encoding named by the Specific Character Set element.
//
// The result is a DataSet keyed by DataElementTag. DataSet.String renders it the way dcmdump does
// and DataSet.DumpToObject renders it as nested maps suitable for JSON encoding.
//
// Pixel data decompression is left to callers: DecodeFrames hands the frames of encapsulated pixel
// data to a Decoder along with the PixelInfo describing them.
package dicom
