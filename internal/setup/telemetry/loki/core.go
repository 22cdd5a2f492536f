package loki

import (
	"github.com/bytedance/sonic"
	"go.uber.org/zap/zapcore"
)

// Core implements zapcore.Core by handing encoded entries to a Pusher.
type Core struct {
	zapcore.LevelEnabler

	pusher *Pusher
	fields []zapcore.Field
}

// NewCore creates a new Loki Core with the provided pusher.
func NewCore(enabler zapcore.LevelEnabler, pusher *Pusher) *Core {
	return &Core{
		LevelEnabler: enabler,
		pusher:       pusher,
	}
}

// With returns a child core carrying the extra fields.
func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	return &Core{
		LevelEnabler: c.LevelEnabler,
		pusher:       c.pusher,
		fields:       append(c.fields[:len(c.fields):len(c.fields)], fields...),
	}
}

// Check determines whether the supplied Entry should be logged.
func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

// Write encodes the entry and queues it for shipping.
func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, field := range c.fields {
		field.AddTo(enc)
	}
	for _, field := range fields {
		field.AddTo(enc)
	}

	line := logLine{
		Level:   ent.Level.String(),
		Message: ent.Message,
		Logger:  ent.LoggerName,
		Stack:   ent.Stack,
	}
	if ent.Caller.Defined {
		line.Caller = ent.Caller.TrimmedPath()
	}
	if len(enc.Fields) > 0 {
		line.Fields = enc.Fields
	}

	raw, err := sonic.Marshal(line)
	if err != nil {
		return err
	}

	c.pusher.Add(entry{unixNano: ent.Time.UnixNano(), line: string(raw)})

	return nil
}

// Sync is a no-op; the pusher ships batches on its own schedule.
func (c *Core) Sync() error {
	return nil
}
