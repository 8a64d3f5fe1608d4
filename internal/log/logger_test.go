package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigure(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Service: "test"})

	l := Base()
	l.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"service":"test"`)
	assert.Contains(t, buf.String(), "hello")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf}) // no-op after the first Configure

	l := WithComponent("service")
	l.Info().Msg("ready")
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestIDFromContext(ctx))
}

func TestRequestIDMissing(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}
