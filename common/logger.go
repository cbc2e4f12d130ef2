// Package common holds the data model and ambient pieces shared by every
// gonmea2k component: the raw-frame representation, the decoded-message
// representation, the structured logger, and the textual line-format
// dialects used to move RawMessages in and out of files and pipes.
package common

// Originally from https://github.com/canboat/canboat (Apache License, Version 2.0)
// (C) 2009-2023, Kees Verruijt, Harlingen, The Netherlands.

// This file is part of CANboat.

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel is a logging verbosity threshold.
type LogLevel int

// All log levels, ordered least to most verbose.
const (
	LogLevelFatal LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelDebug
)

// String returns the human readable LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LogLevelFatal:
		return "FATAL"
	case LogLevelError:
		return "ERROR"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelFatal:
		return zapcore.DPanicLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// Logger is the structured logger used process-wide. It wraps a
// zap.SugaredLogger behind the small Info/Debug/Error/Abort surface every
// component calls, so call sites never import zap directly.
type Logger struct {
	atom     zap.AtomicLevel
	sugar    *zap.SugaredLogger
	progName string
	isCLI    bool
	fixedNow string
}

func newLogger(isCLI bool) *Logger {
	atom := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), atom)
	return &Logger{
		atom:  atom,
		sugar: zap.New(core).Sugar(),
		isCLI: isCLI,
	}
}

// NewLogger returns a new logger for library use (errors are returned, not
// exited on).
func NewLogger() *Logger { return newLogger(false) }

// NewLoggerForCLI returns a new logger for use by a CLI binary: Error and
// Abort wrap their message in an ExitError so main() can os.Exit correctly.
func NewLoggerForCLI() *Logger { return newLogger(true) }

// SetProgName sets the program name reported in log output (usually
// os.Args[0]).
func (l *Logger) SetProgName(name string) {
	if idx := strings.LastIndexAny(name, "/\\"); idx != -1 {
		name = name[idx+1:]
	}
	l.progName = name
}

// SetLogLevel sets the minimum level that will be emitted.
func (l *Logger) SetLogLevel(level LogLevel) {
	if level < LogLevelFatal {
		level = LogLevelFatal
	}
	if level > LogLevelDebug {
		level = LogLevelDebug
	}
	l.atom.SetLevel(level.zapLevel())
}

// SetFixedTimestamp makes Now() return one fixed instant whenever fixed is
// non-empty; the content of fixed is not parsed, and the timestamps zap
// writes on log lines are not affected.
func (l *Logger) SetFixedTimestamp(fixed string) {
	l.fixedNow = fixed
}

// Now returns the current time, honoring a fixed timestamp set for tests.
func (l *Logger) Now() time.Time {
	if l.fixedNow != "" {
		return time.UnixMilli(1672527600000) // 2022-12-31T23:00:00Z
	}
	return time.Now()
}

func formatError(format string, v ...any) error {
	return fmt.Errorf(format, v...)
}

// Info logs at INFO.
func (l *Logger) Info(format string, v ...any) {
	l.sugar.Infof(format, v...)
}

// Debug logs at DEBUG.
func (l *Logger) Debug(format string, v ...any) {
	l.sugar.Debugf(format, v...)
}

// Error logs at ERROR and returns an error usable for propagation. When the
// logger was built for CLI use, the returned error is an *ExitError with
// code 2, matching spec §7's "Internal invariant" / "I/O" error policy.
func (l *Logger) Error(format string, v ...any) error {
	l.sugar.Errorf(format, v...)
	err := formatError(format, v...)
	if !l.isCLI {
		return err
	}
	return &ExitError{Code: 2, Cause: err}
}

// Abort logs at ERROR level with a "FATAL: " prefix and returns an
// *ExitError when running as a CLI; it does not exit the process itself.
func (l *Logger) Abort(format string, v ...any) error {
	l.sugar.Errorf("FATAL: "+format, v...)
	err := formatError(format, v...)
	if !l.isCLI {
		return err
	}
	return &ExitError{Code: 2, Cause: err}
}
