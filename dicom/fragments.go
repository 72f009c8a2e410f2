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

	"github.com/rs/zerolog"
)

// Depending on the transfer syntax a frame may be split over several fragments. See the third
// note of http://dicom.nema.org/medical/dicom/current/output/html/part05.html#sect_8.2

// frameGroups returns, for each frame, the indices of the fragments composing it.
//
// The basic offset table is used when it has one entry per frame and each entry is the position
// of a fragment. Otherwise the fragments are divided evenly between the frames, in which case the
// number of frames must divide the number of fragments.
func frameGroups(fragments []fragment, offsetTable []uint32, numberOfFrames int, logger zerolog.Logger) ([][]int, error) {
	if groups, ok := groupByOffsetTable(fragments, offsetTable, numberOfFrames); ok {
		return groups, nil
	}
	if len(offsetTable) > 0 {
		logger.Warn().
			Int("offsets", len(offsetTable)).
			Int("frames", numberOfFrames).
			Msg("basic offset table does not match fragments, dividing fragments evenly")
	}

	if len(fragments)%numberOfFrames != 0 {
		return nil, fmt.Errorf("%w: %d fragments cannot be divided into %d frames",
			ErrFragmentFrameMismatch, len(fragments), numberOfFrames)
	}
	perFrame := len(fragments) / numberOfFrames
	groups := make([][]int, numberOfFrames)
	for f := range groups {
		groups[f] = make([]int, perFrame)
		for i := range groups[f] {
			groups[f][i] = f*perFrame + i
		}
	}
	return groups, nil
}

func groupByOffsetTable(fragments []fragment, offsetTable []uint32, numberOfFrames int) ([][]int, bool) {
	if len(offsetTable) != numberOfFrames || len(fragments) == 0 || offsetTable[0] != 0 {
		return nil, false
	}
	groups := make([][]int, numberOfFrames)
	f := -1
	for i, frag := range fragments {
		if f+1 < numberOfFrames && frag.position == offsetTable[f+1] {
			f++
		} else if f >= 0 && f+1 < numberOfFrames && frag.position > offsetTable[f+1] {
			// an offset points inside a fragment
			return nil, false
		}
		groups[f] = append(groups[f], i)
	}
	if f != numberOfFrames-1 {
		return nil, false
	}
	return groups, true
}

// reassembleFrames replaces the fragments of encapsulated pixel data with one buffer per frame
// when there are more fragments than frames.
func reassembleFrames(pd *PixelData, raw *rawElement, numberOfFrames int, logger zerolog.Logger) error {
	n := len(pd.Frames)
	if n != len(raw.fragments) {
		return fmt.Errorf("%w: %d frames interpreted from %d fragments", ErrFragmentFrameMismatch, n, len(raw.fragments))
	}
	if n <= 1 || n <= numberOfFrames {
		if n < numberOfFrames {
			logger.Warn().
				Int("fragments", n).
				Int("frames", numberOfFrames).
				Msg("fewer fragments than frames")
		}
		return nil
	}

	groups, err := frameGroups(raw.fragments, raw.offsetTable, numberOfFrames, logger)
	if err != nil {
		return err
	}
	frames := make([]Frame, len(groups))
	for f, group := range groups {
		size := 0
		for _, i := range group {
			size += pd.Frames[i].Len()
		}
		buf := make(Uint8Frame, 0, size)
		for _, i := range group {
			fragment, ok := pd.Frames[i].(Uint8Frame)
			if !ok {
				return fmt.Errorf("fragment %d holds %T, want Uint8Frame", i, pd.Frames[i])
			}
			buf = append(buf, fragment...)
		}
		frames[f] = buf
	}
	pd.Frames = frames
	return nil
}

// splitNativeFrames splits the single buffer of native pixel data into numberOfFrames frames of
// equal length.
func splitNativeFrames(pd *PixelData, numberOfFrames int, logger zerolog.Logger) {
	if len(pd.Frames) != 1 || numberOfFrames <= 1 {
		return
	}
	total := pd.Frames[0].Len()
	if total < numberOfFrames {
		logger.Warn().
			Int("samples", total).
			Int("frames", numberOfFrames).
			Msg("native pixel data is shorter than its number of frames, keeping a single buffer")
		return
	}
	if total%numberOfFrames != 0 {
		logger.Warn().
			Int("samples", total).
			Int("frames", numberOfFrames).
			Msg("native pixel data does not divide into frames, keeping a single buffer")
		return
	}
	size := total / numberOfFrames
	switch buf := pd.Frames[0].(type) {
	case Uint8Frame:
		pd.Frames = splitFrame(buf, size)
	case Int8Frame:
		pd.Frames = splitFrame(buf, size)
	case Uint16Frame:
		pd.Frames = splitFrame(buf, size)
	case Int16Frame:
		pd.Frames = splitFrame(buf, size)
	}
}

func splitFrame[F interface {
	~[]E
	Frame
}, E any](buf F, size int) []Frame {
	frames := make([]Frame, 0, len(buf)/size)
	for start := 0; start+size <= len(buf); start += size {
		frames = append(frames, buf[start:start+size:start+size])
	}
	return frames
}
