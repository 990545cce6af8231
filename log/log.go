// Package log contains leveled logger with structured fields, written on top of stdlib logger.
package log

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Logger interface is subset of github.com/uber-common/bark.Logger methods.
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	Panic(args ...interface{})
	Panicf(format string, args ...interface{})
	WithFields(keyValues LogFields) Logger
	Fields() Fields
}

type LogFields interface {
	Fields() map[string]interface{}
}

type Fields map[string]interface{}

func (f Fields) Fields() map[string]interface{} { return f }

// with returns new fields, that contains both f and extra. Extra values win.
func (f Fields) with(extra map[string]interface{}) Fields {
	if len(f) == 0 {
		return extra
	}
	res := make(Fields, len(f)+len(extra))
	for k, v := range f {
		res[k] = v
	}
	for k, v := range extra {
		res[k] = v
	}
	return res
}

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
	levelsNum
)

var levelNames = [levelsNum]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l Level) String() string {
	if l < 0 || l >= levelsNum {
		return "LEVEL(" + strconv.Itoa(int(l)) + ")"
	}
	return levelNames[l]
}

// LevelFromString parses level name. Case is ignored.
func LevelFromString(s string) (Level, error) {
	for l, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(l), nil
		}
	}
	return 0, errors.Errorf("invalid level %q", s)
}

func NewLogger(l Level, w io.Writer) Logger {
	return NewLoggerSink(l, NewStdSink(w))
}

func NewLoggerSink(l Level, s Sink) Logger {
	return &logger{sink: s, level: l}
}

// NewNop returns logger that writes nothing.
// Panic and Fatal methods still panic and exit.
func NewNop() Logger {
	return &logger{sink: nopSink{}, level: levelsNum}
}

// Sink writes log records. Implementations should be safe for concurrent use.
type Sink interface {
	// Output writes record. Call depth is number of logger frames between user code and Output.
	Output(callDepth int, l Level, f Fields, msg string)
}

// NewStdSink returns sink, that writes records as "<time> <file:line>: LEVEL: {fields} msg" lines.
func NewStdSink(w io.Writer) Sink {
	const flags = log.LstdFlags | log.Lmicroseconds | log.Lshortfile
	return stdSink{log.New(w, "", flags)}
}

type stdSink struct {
	std *log.Logger
}

func (s stdSink) Output(callDepth int, l Level, f Fields, msg string) {
	// Skip this method and logger frames.
	s.std.Output(callDepth+2, formatRecord(l, f, msg))
}

type nopSink struct{}

func (nopSink) Output(int, Level, Fields, string) {}

type logger struct {
	sink   Sink
	level  Level
	fields Fields
}

func (l *logger) Fields() Fields { return l.fields }

func (l *logger) WithFields(keyValues LogFields) Logger {
	child := *l
	child.fields = l.fields.with(keyValues.Fields())
	return &child
}

func (l *logger) Debug(args ...interface{})                 { l.print(DebugLevel, args) }
func (l *logger) Debugf(format string, args ...interface{}) { l.printf(DebugLevel, format, args) }
func (l *logger) Info(args ...interface{})                  { l.print(InfoLevel, args) }
func (l *logger) Infof(format string, args ...interface{})  { l.printf(InfoLevel, format, args) }
func (l *logger) Warn(args ...interface{})                  { l.print(WarnLevel, args) }
func (l *logger) Warnf(format string, args ...interface{})  { l.printf(WarnLevel, format, args) }
func (l *logger) Error(args ...interface{})                 { l.print(ErrorLevel, args) }
func (l *logger) Errorf(format string, args ...interface{}) { l.printf(ErrorLevel, format, args) }

func (l *logger) Panic(args ...interface{}) {
	msg := fmt.Sprint(args...)
	l.print(ErrorLevel, []interface{}{msg})
	panic(msg)
}

func (l *logger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.print(ErrorLevel, []interface{}{msg})
	panic(msg)
}

func (l *logger) Fatal(args ...interface{}) {
	l.print(FatalLevel, args)
	os.Exit(1)
}

func (l *logger) Fatalf(format string, args ...interface{}) {
	l.printf(FatalLevel, format, args)
	os.Exit(1)
}

// Public method -> print or printf -> output -> Sink.Output.
const sinkCallDepth = 3

func (l *logger) print(level Level, args []interface{}) {
	if level >= l.level {
		l.output(level, fmt.Sprint(args...))
	}
}

func (l *logger) printf(level Level, format string, args []interface{}) {
	if level >= l.level {
		l.output(level, fmt.Sprintf(format, args...))
	}
}

func (l *logger) output(level Level, msg string) {
	l.sink.Output(sinkCallDepth, level, l.fields, msg)
}

func formatRecord(l Level, f Fields, msg string) string {
	if len(f) == 0 {
		return l.String() + ": " + msg
	}
	// Map keys are sorted by encoding/json, so output is deterministic.
	fields, err := json.Marshal(f)
	if err != nil {
		fields = []byte(fmt.Sprint(map[string]interface{}(f)))
	}
	return l.String() + ": " + string(fields) + " " + msg
}
