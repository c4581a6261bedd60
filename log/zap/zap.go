// Package zap adapts a *zap.Logger to the swrcache Logger interface.
package zap

import (
	"github.com/vnykmshr/swrcache-go/pkg/swrcache"
	"go.uber.org/zap"
)

type ZapLogger struct{ L *zap.Logger }

// New wraps a zap logger for use as a cache logger.
func New(l *zap.Logger) ZapLogger { return ZapLogger{L: l} }

func (z ZapLogger) Debug(msg string, f ...swrcache.Field) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f ...swrcache.Field)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f ...swrcache.Field)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f ...swrcache.Field) { z.L.Error(msg, zf(f)...) }

func (z ZapLogger) With(f ...swrcache.Field) swrcache.Logger {
	if len(f) == 0 {
		return z
	}
	return ZapLogger{L: z.L.With(zf(f)...)}
}

func zf(f []swrcache.Field) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for _, fld := range f {
		out = append(out, zap.Any(fld.Key, fld.Value))
	}
	return out
}

var _ swrcache.Logger = ZapLogger{}
