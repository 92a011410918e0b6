package obs

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type annotationsKey struct{}

// annotations holds fields that handlers learn mid-request, such as the
// checkout step, so the access log written afterwards can carry them.
type annotations struct {
	mu     sync.Mutex
	keys   []string
	values map[string]string
}

func (a *annotations) set(key, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

func (a *annotations) apply(evt *zerolog.Event) *zerolog.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, k := range a.keys {
		evt = evt.Str(k, a.values[k])
	}
	return evt
}

// withAnnotations returns r carrying an annotation set, reusing one an outer
// middleware already installed.
func withAnnotations(r *http.Request) (*http.Request, *annotations) {
	if a, ok := r.Context().Value(annotationsKey{}).(*annotations); ok {
		return r, a
	}
	a := &annotations{values: map[string]string{}}
	return r.WithContext(context.WithValue(r.Context(), annotationsKey{}, a)), a
}

// Annotate records key=value on the current request. The field lands on the
// access log line, on the request-scoped logger for later handler logs, and
// on the active server span. Outside an instrumented request it only touches
// the span, if any.
func Annotate(ctx context.Context, key, value string) {
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.String(key, value))
	}
	a, ok := ctx.Value(annotationsKey{}).(*annotations)
	if !ok {
		return
	}
	a.set(key, value)
	zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str(key, value)
	})
}
