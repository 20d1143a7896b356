// Package definition holds the default implementations of the seams
// pkg/mesh/types declares: Logger, Storage and Metrics. Applications may
// supply their own; these are simply what a node uses if it doesn't.
package definition

import (
	"github.com/sirupsen/logrus"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// DefaultLogger adapts a logrus.FieldLogger to types.Logger, filtering
// output by the debug verbosity mask (§6).
type DefaultLogger struct {
	entry *logrus.Entry
	mask  types.VerbosityMask
}

// NewDefaultLogger builds a DefaultLogger writing to stderr with the given
// verbosity mask. Pass 0xFFFF to enable every category.
func NewDefaultLogger(mask types.VerbosityMask) *DefaultLogger {
	base := logrus.New()
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	base.SetLevel(logrus.DebugLevel)
	return &DefaultLogger{entry: logrus.NewEntry(base), mask: mask}
}

// ToggleDebug enables or disables VerbosityGeneral-level debug output.
func (l *DefaultLogger) ToggleDebug(enabled bool) {
	if enabled {
		l.mask |= types.VerbosityGeneral
	} else {
		l.mask &^= types.VerbosityGeneral
	}
}

func (l *DefaultLogger) Infof(format string, v ...interface{}) {
	if l.mask.Has(types.VerbosityStartup) || l.mask.Has(types.VerbosityGeneral) {
		l.entry.Infof(format, v...)
	}
}

func (l *DefaultLogger) Warnf(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}

func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	if l.mask.Has(types.VerbosityError) {
		l.entry.Errorf(format, v...)
	}
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	if l.mask.Has(types.VerbosityGeneral) {
		l.entry.Debugf(format, v...)
	}
}
