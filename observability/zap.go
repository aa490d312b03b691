package observability

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var bandZap = [...]zapcore.Level{zapcore.DebugLevel, zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel, zapcore.ErrorLevel}

// ZapLevel maps this level to the corresponding zapcore.Level.
func (l Level) ZapLevel() zapcore.Level {
	return bandZap[l.band()]
}

// ZapObserver emits events to a zap.Logger. The event type becomes the log
// message, the entry is stamped with the event's timestamp and Data keys
// become fields in sorted order.
type ZapObserver struct {
	logger *zap.Logger
}

// NewZapObserver creates a ZapObserver that emits to the given logger.
func NewZapObserver(logger *zap.Logger) *ZapObserver {
	return &ZapObserver{logger: logger}
}

func (o *ZapObserver) OnEvent(ctx context.Context, event Event) {
	ce := o.logger.Check(event.Level.ZapLevel(), string(event.Type))
	if ce == nil {
		return
	}

	ce.Time = event.timestamp()

	fields := make([]zap.Field, 0, len(event.Data)+1)
	fields = append(fields, zap.String("source", event.Source))
	for _, k := range event.sortedKeys() {
		fields = append(fields, zap.Any(k, event.Data[k]))
	}
	ce.Write(fields...)
}
