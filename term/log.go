package term

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cottand/hrewrite/internal/log"
)

// slogTerm defers printing a term until a record is actually emitted
func slogTerm(t Term) slog.LogValuer { return termLogValuer{t} }

type termLogValuer struct{ Term }

func (l termLogValuer) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("str", l.Term.String()),
		slog.String("hash", fmt.Sprintf("%x", l.Hash())),
	)
}

type termsLogValuer []Term

func (l termsLogValuer) LogValue() slog.Value {
	return slog.StringValue(fmt.Sprint([]Term(l)))
}

// SlogHandler wraps underlying so that Term and []Term attributes are rendered lazily
func SlogHandler(underlying slog.Handler) slog.Handler {
	return &termLogHandler{underlying: underlying}
}

type termLogHandler struct {
	underlying slog.Handler
}

func wrapAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() != slog.KindAny {
		return attr
	}
	switch value := attr.Value.Any().(type) {
	case Term:
		attr.Value = slog.AnyValue(slogTerm(value))
	case []Term:
		attr.Value = slog.AnyValue(termsLogValuer(value))
	}
	return attr
}

func (l *termLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return l.underlying.Enabled(ctx, level)
}

func (l *termLogHandler) Handle(ctx context.Context, record slog.Record) error {
	newRecord := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		newRecord.AddAttrs(wrapAttr(attr))
		return true
	})
	return l.underlying.Handle(ctx, newRecord)
}

func (l *termLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	wrapped := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		wrapped[i] = wrapAttr(attr)
	}
	return SlogHandler(l.underlying.WithAttrs(wrapped))
}

func (l *termLogHandler) WithGroup(name string) slog.Handler {
	return SlogHandler(l.underlying.WithGroup(name))
}

// Logger returns a section logger able to render terms
func Logger(section string) *slog.Logger {
	return slog.New(SlogHandler(log.Section(section).Handler()))
}
