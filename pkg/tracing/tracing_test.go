package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestSetup_WithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{ServiceName: "tracing-test"})
	require.NoError(t, err)
	defer func() { assert.NoError(t, shutdown(context.Background())) }()

	_, span := Tracer("tracing-test").Start(context.Background(), "op")
	defer span.End()

	assert.True(t, span.SpanContext().IsValid())
}

func TestKafkaHeaders_RoundTrip(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{ServiceName: "tracing-test"})
	require.NoError(t, err)
	defer shutdown(context.Background())

	ctx, span := Tracer("tracing-test").Start(context.Background(), "produce")
	defer span.End()

	headers := InjectKafkaHeaders(ctx, []kafka.Header{{Key: "event_type", Value: []byte("ORDER_CREATED")}})
	assert.Greater(t, len(headers), 1)

	extracted := ExtractKafkaHeaders(context.Background(), headers)
	remote := trace.SpanContextFromContext(extracted)

	assert.Equal(t, span.SpanContext().TraceID(), remote.TraceID())
	assert.True(t, remote.IsRemote())
}

func TestGinMiddleware_SetsSpanOnRequestContext(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{ServiceName: "tracing-test"})
	require.NoError(t, err)
	defer shutdown(context.Background())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware("tracing-test"))

	var valid bool
	router.GET("/ping", func(c *gin.Context) {
		valid = trace.SpanContextFromContext(c.Request.Context()).IsValid()
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, valid)
}
