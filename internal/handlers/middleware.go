package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/ryanjorgeac/rinha-de-backend-2024-q1-ufpb/internal/web"
	"go.opentelemetry.io/otel/trace"
)

// middlewareWeb opens the request span and stores the per-request values the
// inner layers read from the context. With tracing disabled the span has no
// usable id, so a random one keeps log records correlatable.
func middlewareWeb(tracer trace.Tracer, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "web")
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		if !span.SpanContext().TraceID().IsValid() {
			traceID = uuid.NewString()
		}

		v := web.Values{
			TraceID: traceID,
			Tracer:  tracer,
			Now:     time.Now().UTC(),
		}
		ctx = web.SetValues(ctx, &v)
		r = r.WithContext(ctx)

		h(w, r)
	})
}
