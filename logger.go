package xypower

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel is the severity of a log message.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelNone // disables logging
)

var levelNames = map[LogLevel]string{
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelWarning: "WARNING",
	LevelError:   "ERROR",
	LevelNone:    "NONE",
}

// ParseLogLevel maps a name such as "debug" or "WARNING" to its LogLevel.
func ParseLogLevel(name string) (LogLevel, error) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for level, str := range levelNames {
		if str == want {
			return level, nil
		}
	}
	names := make([]string, 0, len(levelNames))
	for _, str := range levelNames {
		names = append(names, str)
	}
	sort.Strings(names)
	return LevelNone, fmt.Errorf("invalid log level: %s. Available levels: %v", name, names)
}

// SimpleLogger is an io.WriteCloser that timestamps, levels and filters
// the lines written to it. The level of each line is sniffed from its
// prefix ("[DEBUG]", "ERROR:", ...), which is then replaced by the
// logger's own level tag; unprefixed lines count as info. Plug it into
// Controller.SetLogger, or bring any other io.Writer.
type SimpleLogger struct {
	mu         sync.Mutex
	level      LogLevel
	output     io.WriteCloser
	timeFormat string
	prefix     string
}

// NewSimpleLogger creates a SimpleLogger writing to output, or os.Stdout
// when output is nil.
func NewSimpleLogger(output io.WriteCloser, level LogLevel, prefix string) *SimpleLogger {
	if output == nil {
		output = os.Stdout
	}
	return &SimpleLogger{
		level:      level,
		output:     output,
		timeFormat: time.RFC3339,
		prefix:     prefix,
	}
}

// SetLevel sets the minimum level that passes the filter.
func (l *SimpleLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current filter level.
func (l *SimpleLogger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetLevelFromString sets the filter level from its name.
func (l *SimpleLogger) SetLevelFromString(name string) error {
	level, err := ParseLogLevel(name)
	if err != nil {
		return err
	}
	l.SetLevel(level)
	return nil
}

// Write implements io.Writer. One call is one log line.
func (l *SimpleLogger) Write(p []byte) (n int, err error) {
	level, message := determineLevel(string(p))

	if level >= l.GetLevel() && l.GetLevel() != LevelNone {
		l.mu.Lock()
		defer l.mu.Unlock()
		timestamp := time.Now().Format(l.timeFormat)
		formatted := fmt.Sprintf("%s [%s] <%s> %s\n", timestamp, levelNames[level], l.prefix, message)
		return l.output.Write([]byte(formatted))
	}
	return len(p), nil
}

// Close closes the underlying output unless it is os.Stdout.
func (l *SimpleLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.output != os.Stdout {
		return l.output.Close()
	}
	return nil
}

// levelPrefixes are the recognized line prefixes, matched case
// insensitively against the start of a message.
var levelPrefixes = []struct {
	prefix string
	level  LogLevel
}{
	{"[DEBUG]", LevelDebug},
	{"DEBUG:", LevelDebug},
	{"[INFO]", LevelInfo},
	{"INFO:", LevelInfo},
	{"[WARNING]", LevelWarning},
	{"[WARN]", LevelWarning},
	{"WARNING:", LevelWarning},
	{"WARN:", LevelWarning},
	{"[ERROR]", LevelError},
	{"ERROR:", LevelError},
}

// determineLevel infers the level from the message prefix and returns
// the message with that prefix removed. Unprefixed messages count as
// info and are passed through whole.
func determineLevel(message string) (LogLevel, string) {
	upper := strings.ToUpper(message)
	for _, p := range levelPrefixes {
		if strings.HasPrefix(upper, p.prefix) {
			return p.level, strings.TrimSpace(message[len(p.prefix):])
		}
	}
	return LevelInfo, strings.TrimSpace(message)
}
