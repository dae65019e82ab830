// Package logger provides leveled logging as text lines or JSON lines.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l Level) String() string {
	if l < DebugLevel || l > FatalLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// Logger provides leveled logging.
type Logger struct {
	level  Level
	json   bool
	logger *log.Logger

	mu  sync.Mutex
	out io.Writer
}

type jsonLine struct {
	Time  string `json:"time"`
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

var defaultLogger *Logger

// ParseLevel maps a level name to its Level. Unknown names map to InfoLevel.
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Init initializes the default logger with the specified level and format.
func Init(level string, format string) {
	defaultLogger = newLogger(os.Stderr, ParseLevel(level), format)
}

func newLogger(out io.Writer, level Level, format string) *Logger {
	l := &Logger{level: level, out: out}
	if strings.ToLower(format) == "json" {
		l.json = true
		return l
	}
	l.logger = log.New(out, "", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return l
}

func (l *Logger) output(level Level, format string, args ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !l.json {
		// 3 frames: output, the package-level helper, its caller
		_ = l.logger.Output(3, "["+level.String()+"] "+msg)
		return
	}

	line, err := json.Marshal(jsonLine{
		Time:  time.Now().UTC().Format(time.RFC3339Nano),
		Level: strings.ToLower(level.String()),
		Msg:   msg,
	})
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(append(line, '\n'))
}

func Debug(format string, args ...interface{}) {
	defaultLogger.output(DebugLevel, format, args...)
}

func Info(format string, args ...interface{}) {
	defaultLogger.output(InfoLevel, format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.output(WarnLevel, format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.output(ErrorLevel, format, args...)
}

func Fatal(format string, args ...interface{}) {
	if defaultLogger == nil {
		fmt.Fprintf(os.Stderr, "[FATAL] "+format+"\n", args...)
	} else {
		defaultLogger.output(FatalLevel, format, args...)
	}
	os.Exit(1)
}
