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
	"errors"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

// fragmentsAt returns fragments of the given lengths laid out one after the other.
func fragmentsAt(lengths ...int) []fragment {
	var out []fragment
	position := 0
	for _, l := range lengths {
		start := position + itemHeaderSize
		out = append(out, fragment{position: uint32(position), start: start, end: start + l})
		position = start + l
	}
	return out
}

func TestFrameGroups(t *testing.T) {
	tests := []struct {
		name        string
		fragments   []fragment
		offsetTable []uint32
		frames      int
		want        [][]int
		wantErr     error
	}{
		{
			"offset table selects fragment boundaries",
			fragmentsAt(2, 2, 2),
			[]uint32{0, 10},
			2,
			[][]int{{0}, {1, 2}},
			nil,
		},
		{
			"offset inside a fragment falls back to even division",
			fragmentsAt(2, 2, 2, 2),
			[]uint32{0, 12},
			2,
			[][]int{{0, 1}, {2, 3}},
			nil,
		},
		{
			"offset table of the wrong size falls back to even division",
			fragmentsAt(2, 2, 2, 2),
			[]uint32{0},
			2,
			[][]int{{0, 1}, {2, 3}},
			nil,
		},
		{
			"uneven division fails",
			fragmentsAt(2, 2, 2),
			nil,
			2,
			nil,
			ErrFragmentFrameMismatch,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := frameGroups(tc.fragments, tc.offsetTable, tc.frames, zerolog.Nop())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got error %v, want %v", err, tc.wantErr)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSplitNativeFrames(t *testing.T) {
	pd := &PixelData{Frames: []Frame{Int16Frame{1, 2, 3, 4, 5, 6}}}
	splitNativeFrames(pd, 3, zerolog.Nop())
	want := []Frame{Int16Frame{1, 2}, Int16Frame{3, 4}, Int16Frame{5, 6}}
	if !reflect.DeepEqual(pd.Frames, want) {
		t.Fatalf("got %v, want %v", pd.Frames, want)
	}
}
