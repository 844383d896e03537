// Package logging provides the logger interface shared by every component of
// fileserverd.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is a bridging interface between logrus and the rest of the server,
// so components depend on an interface rather than a concrete logrus type.
type Logger interface {
	logrus.FieldLogger
	Writer() *io.PipeWriter
}

// New returns a logrus-backed Logger writing to the given output at the
// given level.
func New(out io.Writer, level logrus.Level) Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(level)
	return log
}
