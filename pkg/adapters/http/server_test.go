package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/semop"
	httpAdapter "github.com/aretw0/semop/pkg/adapters/http"
	"github.com/aretw0/semop/pkg/adapters/memory"
	"github.com/aretw0/semop/pkg/backends"
	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newHandler(t *testing.T, completer *memory.Completer, opts ...httpAdapter.Option) http.Handler {
	t.Helper()
	eng, err := semop.New(semop.WithCompleter(completer))
	require.NoError(t, err)
	return httpAdapter.NewHandler(eng, opts...)
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCall(t *testing.T) {
	h := newHandler(t, memory.NewCompleter(memory.WithReplies("The answer.\n\n### Answer ###\n1969")))

	w := do(h, http.MethodPost, "/call", `{"operator":"resolve","args":["moon landing year"],"return_type":"int"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"result":1969}`, w.Body.String())
}

func TestExplain(t *testing.T) {
	h := newHandler(t, memory.NewCompleter())

	w := do(h, http.MethodPost, "/explain", `{"operator":"resolve","args":["x"],"strategies":["be brief"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var x semop.Explanation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &x))
	assert.Equal(t, "resolve", x.Operator)
	assert.Equal(t, []domain.Sign{
		{Handler: backends.CompletionName, Note: "created"},
		{Handler: backends.StrategyName, Note: "adding 1 strategies"},
	}, x.Signs)
	assert.NotEmpty(t, x.Messages)
}

func TestBackendsAndOperators(t *testing.T) {
	h := newHandler(t, memory.NewCompleter())

	w := do(h, http.MethodGet, "/backends", "")
	require.Equal(t, http.StatusOK, w.Code)
	var infos []semop.BackendInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &infos))
	require.Len(t, infos, 6)
	assert.Equal(t, backends.CompletionName, infos[0].Name)

	w = do(h, http.MethodGet, "/operators", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"select_iter"`)
}

func TestHealthAndInfo(t *testing.T) {
	h := newHandler(t, memory.NewCompleter())

	w := do(h, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(h, http.MethodGet, "/info", "")
	assert.Contains(t, w.Body.String(), semop.Version)
}

func TestErrors(t *testing.T) {
	h := newHandler(t, memory.NewCompleter())

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed body", `{`, http.StatusBadRequest},
		{"unknown operator", `{"operator":"teleport","args":["x"]}`, http.StatusBadRequest},
		{"arity", `{"operator":"equals","args":["alone"]}`, http.StatusBadRequest},
		{"no scripted reply", `{"operator":"resolve","args":["x"]}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, "/call", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

type unimplemented struct{}

func (unimplemented) Call(ctx context.Context, req *domain.Request) (any, error) {
	return nil, &domain.UnimplementedError{Operator: req.OperatorName()}
}

func (unimplemented) Explain(ctx context.Context, req *domain.Request) (*semop.Explanation, error) {
	return nil, &domain.GuardViolationError{Guard: domain.Guard{Name: "g", Expected: "42"}, Output: "41"}
}

func (unimplemented) Backends() []semop.BackendInfo { return nil }

func TestErrorStatus(t *testing.T) {
	h := httpAdapter.NewHandler(unimplemented{})

	w := do(h, http.MethodPost, "/call", `{"operator":"diff","args":["a","b"]}`)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = do(h, http.MethodPost, "/explain", `{"operator":"diff","args":["a","b"]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "guard g failed")
}

func TestCORS(t *testing.T) {
	h := httpAdapter.NewHandler(unimplemented{})

	w := do(h, http.MethodOptions, "/call", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "semop_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h := httpAdapter.NewHandler(unimplemented{}, httpAdapter.WithGatherer(reg))
	w := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "semop_test_total 1")

	w = do(httpAdapter.NewHandler(unimplemented{}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func spanAttr(attrs []attribute.KeyValue, key string) attribute.Value {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestTracing_SpanPerRequest(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	eng, err := semop.New(
		semop.WithCompleter(memory.NewCompleter(memory.WithReplies("Paris"))),
		semop.WithLifecycleHooks(observability.Tracing()),
	)
	require.NoError(t, err)
	h := httpAdapter.NewHandler(eng, httpAdapter.WithTracerProvider(provider))

	w := do(h, http.MethodPost, "/call", `{"operator":"resolve","args":["capital of France?"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	call := spans[0]
	assert.Equal(t, "POST /call", call.Name())
	assert.Equal(t, int64(http.StatusOK), spanAttr(call.Attributes(), "http.response.status_code").AsInt64())
	var names []string
	for _, e := range call.Events() {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "semop.dispatch.start")
	assert.Contains(t, names, "semop.dispatch.end")

	assert.Equal(t, "GET /health", spans[1].Name())
	assert.Empty(t, spans[1].Events())
}

func TestTracing_ServerErrorMarksSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	h := httpAdapter.NewHandler(unimplemented{}, httpAdapter.WithTracerProvider(provider))
	w := do(h, http.MethodPost, "/call", `{"operator":"resolve","args":["x"]}`)
	require.Equal(t, http.StatusNotImplemented, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, int64(http.StatusNotImplemented), spanAttr(spans[0].Attributes(), "http.response.status_code").AsInt64())
}
