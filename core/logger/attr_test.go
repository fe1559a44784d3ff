package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/certward/core/logger"
)

func TestError(t *testing.T) {
	t.Parallel()
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestErrors(t *testing.T) {
	t.Parallel()
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	empty := logger.Errors(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestDuration(t *testing.T) {
	t.Parallel()
	attr := logger.Duration(2 * time.Second)
	require.Equal(t, "duration", attr.Key)
	assert.Equal(t, 2*time.Second, attr.Value.Duration())
}

func TestElapsed(t *testing.T) {
	t.Parallel()
	attr := logger.Elapsed(time.Now().Add(-time.Second))
	require.Equal(t, "elapsed", attr.Key)
	assert.GreaterOrEqual(t, attr.Value.Duration(), time.Second)
}

func TestComponent(t *testing.T) {
	t.Parallel()
	attr := logger.Component("lifecycle")
	require.Equal(t, "component", attr.Key)
	assert.Equal(t, "lifecycle", attr.Value.String())
}

func TestCount(t *testing.T) {
	t.Parallel()
	attr := logger.Count("tokens", 3)
	require.Equal(t, "tokens", attr.Key)
	assert.Equal(t, int64(3), attr.Value.Int64())
}

func TestDomain(t *testing.T) {
	t.Parallel()
	attr := logger.Domain("x.test")
	require.Equal(t, "domain", attr.Key)
	assert.Equal(t, "x.test", attr.Value.String())

	empty := logger.Domain("")
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestDomains(t *testing.T) {
	t.Parallel()
	attr := logger.Domains([]string{"x.test", "www.x.test"})
	require.Equal(t, "domains", attr.Key)
	assert.Equal(t, "x.test,www.x.test", attr.Value.String())

	empty := logger.Domains(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestAuthID(t *testing.T) {
	t.Parallel()
	attr := logger.AuthID("auth-1")
	require.Equal(t, "auth_id", attr.Key)
	assert.Equal(t, "auth-1", attr.Value.String())

	empty := logger.AuthID("")
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestEmail(t *testing.T) {
	t.Parallel()
	attr := logger.Email("a@b.test")
	require.Equal(t, "email", attr.Key)
	assert.Equal(t, "a@b.test", attr.Value.String())
}

func TestToken(t *testing.T) {
	t.Parallel()
	attr := logger.Token("token-1")
	require.Equal(t, "token", attr.Key)
	assert.Equal(t, "token-1", attr.Value.String())

	empty := logger.Token("")
	assert.True(t, empty.Equal(slog.Attr{}))
}
