// Package logsvc provides the core.Logger implementations.
package logsvc

import (
	"fmt"
	"log"
	"strings"

	"github.com/trezcool/daftari/core"
	"github.com/trezcool/daftari/core/access"
)

// StdLogger writes entries to a standard logger only.
type StdLogger struct {
	std *log.Logger
}

var _ core.Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger) *StdLogger {
	return &StdLogger{std: std}
}

// printEntry writes `msg` followed by its args on one line;
// an access.Identity is printed as "by <username>".
func printEntry(std *log.Logger, level, msg string, args []interface{}) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(": ")
	b.WriteString(msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case access.Identity:
			b.WriteString(" by " + a.Username)
		case error:
			b.WriteString(" error=" + a.Error())
		default:
			fmt.Fprintf(&b, " %+v", a)
		}
	}
	std.Println(b.String())
}

func (l StdLogger) Debug(msg string, args ...interface{}) { printEntry(l.std, "DEBUG", msg, args) }
func (l StdLogger) Info(msg string, args ...interface{})  { printEntry(l.std, "INFO", msg, args) }
func (l StdLogger) Warn(msg string, args ...interface{})  { printEntry(l.std, "WARN", msg, args) }
func (l StdLogger) Error(msg string, args ...interface{}) { printEntry(l.std, "ERROR", msg, args) }

func (l StdLogger) Fatal(msg string, args ...interface{}) {
	printEntry(l.std, "FATAL", msg, args)
	l.std.Fatal(msg)
}
