package httpserver

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies this package's spans in whatever SDK the host
// wires into the global otel.TracerProvider; a dev server with no
// configured exporter still gets a no-op tracer, so this is safe to call
// unconditionally.
const tracerName = "github.com/vango-dev/devserver/pkg/httpserver"

func startRequestSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, "devserver.dispatch",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.target", path),
		),
	)
}

func endRequestSpan(span trace.Span, status int) {
	span.SetAttributes(attribute.Int("http.status_code", status))
	span.End()
}
