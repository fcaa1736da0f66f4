// Package zap adapts a *zap.Logger to shardcount.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/shardcount"
)

var _ shardcount.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New tags every entry with the counter subsystem.
func New(l *zap.Logger) Logger { return Logger{L: l.With(zap.String("component", "shardcount"))} }

func (z Logger) Debug(msg string, f shardcount.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f shardcount.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f shardcount.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f shardcount.Fields) { z.L.Error(msg, fields(f)...) }

// fields sorts keys so entries are stable across runs; errors keep their
// type so zap renders them with errorVerbose.
func fields(f shardcount.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		switch v := f[k].(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		case int64:
			out = append(out, zap.Int64(k, v))
		case int:
			out = append(out, zap.Int(k, v))
		case string:
			out = append(out, zap.String(k, v))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}
