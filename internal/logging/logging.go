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

// Package logging builds the zerolog loggers of the dcmdump command.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w, or to os.Stderr when w is nil. Warnings and errors are logged
// unless verbose is set, which also enables debug messages. With json unset the output is rendered
// for terminals.
func New(w io.Writer, verbose, json bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if !json {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: true}
	}

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// WithFile adds file context to logger.
func WithFile(logger zerolog.Logger, filePath string, fileSize int) zerolog.Logger {
	return logger.With().
		Str("file_path", filePath).
		Int("file_size", fileSize).
		Logger()
}
