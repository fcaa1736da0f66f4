// Package logrus adapts a *logrus.Entry to shardcount.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/shardcount"
)

var _ shardcount.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

func New(l *logrus.Logger) Logger { return Logger{E: l.WithField("component", "shardcount")} }

func (l Logger) Debug(msg string, f shardcount.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f shardcount.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f shardcount.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f shardcount.Fields) { l.with(f).Error(msg) }

// with moves an "err" field under logrus.ErrorKey so formatters and hooks
// that look for errors find it.
func (l Logger) with(f shardcount.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			lf[logrus.ErrorKey] = err
			continue
		}
		lf[k] = v
	}
	return l.E.WithFields(lf)
}
