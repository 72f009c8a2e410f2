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

// Command dcmdump prints the data elements of a DICOM file.
//
// Usage:
//
//	dcmdump [-config dcmdump.yaml] [-json] [-v] [-charset label] [-frames dir] file.dcm
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jh4843/my-dicom-canvas/dicom"
	"github.com/jh4843/my-dicom-canvas/internal/config"
	"github.com/jh4843/my-dicom-canvas/internal/logging"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "dcmdump.yaml", "YAML configuration file")
	asJSON := flag.Bool("json", false, "Print the data set as JSON")
	verbose := flag.Bool("v", false, "Log parser diagnostics")
	charset := flag.String("charset", "", "Encoding label used when the file has no Specific Character Set")
	framesDir := flag.String("frames", "", "Directory to write the pixel data frames to")
	workers := flag.Int("workers", 0, "Goroutines extracting frames (default from config)")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dcmdump: %v\n", err)
		os.Exit(1)
	}
	if *asJSON {
		cfg.Output.Format = config.FormatJSON
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	if *charset != "" {
		cfg.Parse.DefaultCharacterSet = *charset
	}
	if *workers > 0 {
		cfg.Decode.Workers = *workers
	}

	logger := logging.New(os.Stderr, cfg.Output.Verbose, cfg.Output.Format == config.FormatJSON)
	if err := run(flag.Arg(0), *framesDir, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("dcmdump failed")
		os.Exit(1)
	}
}

func run(path, framesDir string, cfg *config.Config, logger zerolog.Logger) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	logger = logging.WithFile(logger, path, len(buf))

	ds, err := dicom.Parse(buf,
		dicom.WithLogger(logger),
		dicom.WithDefaultCharacterSet(cfg.Parse.DefaultCharacterSet))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	logger.Debug().Int("elements", len(ds.Elements)).Msg("parsed data set")

	if err := printDataSet(ds, cfg.Output.Format); err != nil {
		return err
	}
	if framesDir == "" {
		return nil
	}
	ctx := logger.WithContext(context.Background())
	return writeFrames(ctx, ds, framesDir, cfg.Decode.Workers)
}

func printDataSet(ds *dicom.DataSet, format string) error {
	if format != config.FormatJSON {
		fmt.Println(ds.String())
		return nil
	}
	out, err := json.MarshalIndent(ds.DumpToObject(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding data set: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// copyFrame hands back the compressed bytes of a frame unchanged, so that each frame is written
// in the encoding of its transfer syntax.
var copyFrame = dicom.DecoderFunc(func(ctx context.Context, frame []byte, info dicom.PixelInfo) (dicom.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dicom.Uint8Frame(frame), nil
})

func writeFrames(ctx context.Context, ds *dicom.DataSet, dir string, workers int) error {
	frames, err := dicom.DecodeFrames(ctx, ds, copyFrame, workers)
	if err != nil {
		return fmt.Errorf("extracting frames: %w", err)
	}
	info, err := ds.PixelInfo()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating frames directory: %w", err)
	}

	ext := frameExtension(info.Algorithm)
	for i, f := range frames {
		b, err := frameBytes(f)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		name := filepath.Join(dir, fmt.Sprintf("frame_%04d%s", i, ext))
		if err := os.WriteFile(name, b, 0644); err != nil {
			return fmt.Errorf("error writing frame %d: %w", i, err)
		}
	}
	zerolog.Ctx(ctx).Info().Int("frames", len(frames)).Str("dir", dir).Msg("wrote frames")
	return nil
}

func frameExtension(algorithm string) string {
	switch algorithm {
	case dicom.JPEGBaselineAlgorithm, dicom.JPEGLosslessAlgorithm:
		return ".jpg"
	case dicom.JPEG2000Algorithm:
		return ".j2k"
	case dicom.RLEAlgorithm:
		return ".rle"
	}
	return ".raw"
}

// frameBytes lays out the samples of f in little endian order.
func frameBytes(f dicom.Frame) ([]byte, error) {
	switch v := f.(type) {
	case dicom.Uint8Frame:
		return v, nil
	case dicom.Int8Frame:
		b := make([]byte, len(v))
		for i, s := range v {
			b[i] = byte(s)
		}
		return b, nil
	case dicom.Uint16Frame:
		b := make([]byte, 2*len(v))
		for i, s := range v {
			b[2*i], b[2*i+1] = byte(s), byte(s>>8)
		}
		return b, nil
	case dicom.Int16Frame:
		b := make([]byte, 2*len(v))
		for i, s := range v {
			b[2*i], b[2*i+1] = byte(s), byte(uint16(s)>>8)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unsupported frame type %T", f)
}
