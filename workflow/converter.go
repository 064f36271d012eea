package workflow

import (
	"github.com/durableio/rewind/backend/converter"
	"github.com/durableio/rewind/backend/payload"
	"github.com/durableio/rewind/internal/contextvalue"
)

type (
	Converter = converter.Converter
	Payload   = payload.Payload
)

var DefaultConverter = converter.DefaultConverter

func WithConverter(ctx Context, c Converter) Context {
	return contextvalue.WithConverter(ctx, c)
}

func GetConverter(ctx Context) Converter {
	return contextvalue.Converter(ctx)
}
