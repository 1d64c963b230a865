// Package logging configures the process-wide logrus logger.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
)

const (
	red    = "\033[31m"
	yellow = "\033[33m"
	green  = "\033[32m"
	gray   = "\033[90m"
	reset  = "\033[0m"
	bold   = "\033[1m"
)

// Formatter prints one compact line per entry:
//
//	[2025-03-03 09:00:00] [+] Activity logged app=Inbox status=working
type Formatter struct {
	Colors bool
}

func (f *Formatter) Format(entry *log.Entry) ([]byte, error) {
	var b bytes.Buffer

	symbol, color := levelStyle(entry.Level)
	timestamp := entry.Time.Format("2006-01-02 15:04:05")

	if f.Colors {
		fmt.Fprintf(&b, "%s[%s]%s %s%s%s%s %s", gray, timestamp, reset, bold, color, symbol, reset, entry.Message)
	} else {
		fmt.Fprintf(&b, "[%s] %s %s", timestamp, symbol, entry.Message)
	}

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := entry.Data[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		if f.Colors {
			fmt.Fprintf(&b, " %s%s=%s%v", gray, k, reset, v)
		} else {
			fmt.Fprintf(&b, " %s=%v", k, v)
		}
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelStyle(level log.Level) (string, string) {
	switch level {
	case log.PanicLevel, log.FatalLevel, log.ErrorLevel:
		return "[!]", red
	case log.WarnLevel:
		return "[~]", yellow
	case log.InfoLevel:
		return "[+]", green
	default:
		return "[*]", gray
	}
}

// Setup sets the level and output of the standard logger. When file is
// non-empty entries are also appended there; the returned closer releases
// it and is never nil.
func Setup(level, file string) (io.Closer, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nopCloser{}, errors.Wrapf(err, "invalid log level %q", level)
	}
	log.SetLevel(lvl)

	if file == "" {
		log.SetOutput(os.Stdout)
		log.SetFormatter(&Formatter{Colors: isTerminal(os.Stdout)})
		return nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nopCloser{}, errors.Wrap(err, "failed to create log directory")
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nopCloser{}, errors.Wrap(err, "failed to open log file")
	}

	log.SetOutput(io.MultiWriter(os.Stdout, f))
	log.SetFormatter(&Formatter{})
	return f, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
