package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	TenantIDHeader  = "X-Tenant-ID"
	RequestIDHeader = "X-Request-ID"
	TraceIDHeader   = "X-Trace-ID"

	maxTenantIDLen = 64
)

var tracer = otel.Tracer("praxis-api")

type scopeKey struct{}

// requestScope travels with every request. The tracing middleware creates
// it; the tenant middleware fills in the tenant once the route is known.
type requestScope struct {
	requestID string
	traceID   string
	tenantID  string
}

func scopeOf(ctx context.Context) *requestScope {
	if s, ok := ctx.Value(scopeKey{}).(*requestScope); ok {
		return s
	}
	return &requestScope{}
}

// tenantOf returns the tenant the request was authorized for.
func tenantOf(r *http.Request) string {
	return scopeOf(r.Context()).tenantID
}

// TenantMiddleware requires a well-formed X-Tenant-ID header. Tenant ids
// become part of cache keys and bus subjects, so only letters, digits, '-'
// and '_' are accepted.
func TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := strings.TrimSpace(r.Header.Get(TenantIDHeader))
		switch {
		case tenantID == "":
			writeJSON(w, http.StatusBadRequest, errorBody{Error: TenantIDHeader + " header is required"})
			return
		case !validTenantID(tenantID):
			writeJSON(w, http.StatusBadRequest, errorBody{Error: TenantIDHeader + " header is malformed"})
			return
		}

		scopeOf(r.Context()).tenantID = tenantID
		trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("tenant.id", tenantID))
		next.ServeHTTP(w, r)
	})
}

func validTenantID(id string) bool {
	if len(id) > maxTenantIDLen {
		return false
	}
	for _, c := range id {
		ok := c == '-' || c == '_' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !ok {
			return false
		}
	}
	return true
}

// TracingMiddleware starts a server span and echoes the request and trace
// ids back to the caller. A caller-supplied request id is kept.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope := &requestScope{requestID: r.Header.Get(RequestIDHeader)}
		if scope.requestID == "" {
			scope.requestID = uuid.NewString()
		}

		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
				attribute.String("request.id", scope.requestID),
			),
		)
		defer span.End()

		scope.traceID = scope.requestID
		if sc := span.SpanContext(); sc.TraceID().IsValid() {
			scope.traceID = sc.TraceID().String()
		}
		w.Header().Set(RequestIDHeader, scope.requestID)
		w.Header().Set(TraceIDHeader, scope.traceID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(ctx, scopeKey{}, scope)))

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
	})
}

// LoggingMiddleware writes one line per request once the handler is done.
// It must run inside TracingMiddleware to see the request ids.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		switch {
		case rec.status >= http.StatusInternalServerError:
			level = slog.LevelError
		case rec.status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		scope := scopeOf(r.Context())
		slog.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"tenant_id", scope.tenantID,
			"request_id", scope.requestID,
			"trace_id", scope.traceID,
		)
	})
}

// CORSMiddleware lets browser clients call the API from any origin.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if origin := r.Header.Get("Origin"); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		} else {
			h.Set("Access-Control-Allow-Origin", "*")
		}
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", strings.Join([]string{"Content-Type", TenantIDHeader, RequestIDHeader}, ", "))
		h.Set("Access-Control-Expose-Headers", RequestIDHeader+", "+TraceIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecoverMiddleware converts a handler panic into a 500 response.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				slog.Error("handler panicked",
					"panic", v,
					"method", r.Method,
					"path", r.URL.Path,
				)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
