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
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// PixelInfo is the metadata a Decoder needs to decompress a frame of encapsulated pixel data.
type PixelInfo struct {
	// Algorithm is the decompression algorithm of the transfer syntax, "" for native pixel data
	Algorithm string

	BitsAllocated uint16

	// Signed is true when PixelRepresentation is 1 (two's complement samples)
	Signed bool

	Rows                int
	Columns             int
	SamplesPerPixel     int
	PlanarConfiguration int
	NumberOfFrames      int
}

// Decoder decompresses one frame of encapsulated pixel data.
type Decoder interface {
	Decode(ctx context.Context, frame []byte, info PixelInfo) (Frame, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, frame []byte, info PixelInfo) (Frame, error)

// Decode calls f.
func (f DecoderFunc) Decode(ctx context.Context, frame []byte, info PixelInfo) (Frame, error) {
	return f(ctx, frame, info)
}

// PixelInfo collects the pixel module attributes of ds. Missing attributes take their defaults:
// BitsAllocated 16, PixelRepresentation 0, SamplesPerPixel 1 and NumberOfFrames 1.
func (ds *DataSet) PixelInfo() (PixelInfo, error) {
	info := PixelInfo{
		BitsAllocated:   defaultBitsAllocated,
		SamplesPerPixel: 1,
		NumberOfFrames:  1,
	}

	if uid, err := ds.StringValue(TransferSyntaxUIDTag); err == nil {
		ts, ok := LookupTransferSyntax(uid)
		if !ok {
			return info, fmt.Errorf("%w: '%s' (Unknown)", ErrUnsupportedTransferSyntax, uid)
		}
		info.Algorithm = ts.Algorithm
	}

	ints := []struct {
		tag DataElementTag
		dst *int
	}{
		{RowsTag, &info.Rows},
		{ColumnsTag, &info.Columns},
		{SamplesPerPixelTag, &info.SamplesPerPixel},
		{PlanarConfigurationTag, &info.PlanarConfiguration},
		{NumberOfFramesTag, &info.NumberOfFrames},
	}
	for _, f := range ints {
		if _, ok := ds.Element(f.tag); !ok {
			continue
		}
		v, err := ds.IntValue(f.tag)
		if err != nil {
			return info, fmt.Errorf("reading pixel module attribute: %w", err)
		}
		*f.dst = v
	}
	if _, ok := ds.Element(BitsAllocatedTag); ok {
		v, err := ds.IntValue(BitsAllocatedTag)
		if err != nil {
			return info, fmt.Errorf("reading pixel module attribute: %w", err)
		}
		info.BitsAllocated = uint16(v)
	}
	if _, ok := ds.Element(PixelRepresentationTag); ok {
		v, err := ds.IntValue(PixelRepresentationTag)
		if err != nil {
			return info, fmt.Errorf("reading pixel module attribute: %w", err)
		}
		info.Signed = v == 1
	}
	return info, nil
}

// DecodeFrames returns one decoded frame per frame of the pixel data of ds, in order. Native pixel
// data is returned as parsed. Encapsulated frames are handed to decoder by at most workers
// goroutines, or one goroutine per frame when workers is not positive. The first decoder error
// cancels the remaining frames. Frames of unequal length are logged to the zerolog logger of ctx.
func DecodeFrames(ctx context.Context, ds *DataSet, decoder Decoder, workers int) ([]Frame, error) {
	e, ok := ds.Element(PixelDataTag)
	if !ok {
		return nil, errors.New("data set has no pixel data")
	}
	pd, ok := e.Value.(*PixelData)
	if !ok {
		return nil, fmt.Errorf("pixel data holds %T, want *PixelData", e.Value)
	}
	if !pd.Encapsulated {
		return pd.Frames, nil
	}
	if decoder == nil {
		return nil, errors.New("encapsulated pixel data requires a decoder")
	}

	info, err := ds.PixelInfo()
	if err != nil {
		return nil, err
	}
	if info.Algorithm == "" {
		return nil, errors.New("encapsulated pixel data in a transfer syntax without compression")
	}

	raws := make([]Uint8Frame, len(pd.Frames))
	for i, f := range pd.Frames {
		if raws[i], ok = f.(Uint8Frame); !ok {
			return nil, fmt.Errorf("frame %d holds %T, want Uint8Frame", i, f)
		}
	}

	frames := make([]Frame, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, raw := range raws {
		i, raw := i, raw
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			decoded, err := decoder.Decode(gctx, raw, info)
			if err != nil {
				return fmt.Errorf("decoding frame %d with %s: %w", i, info.Algorithm, err)
			}
			if decoded == nil {
				return fmt.Errorf("decoding frame %d with %s: no frame returned", i, info.Algorithm)
			}
			frames[i] = decoded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	for i := 1; i < len(frames); i++ {
		if frames[i].Len() != frames[0].Len() {
			logger.Warn().
				Int("frame", i).
				Int("length", frames[i].Len()).
				Int("first_length", frames[0].Len()).
				Msg("decoded frames have different lengths")
		}
	}
	return frames, nil
}
