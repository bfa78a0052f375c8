package trace

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testParent    = "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01"
	testCtxParent = "00-deadbeefdeadbeefdeadbeefdeadbeef-0123456789abcdef-01"
)

func TestEnsureTraceID(t *testing.T) {
	t.Run("uses existing", func(t *testing.T) {
		ctx := WithTraceID(context.Background(), "existing-trace-id")
		assert.Equal(t, "existing-trace-id", EnsureTraceID(ctx))
	})

	t.Run("generates uuid when missing", func(t *testing.T) {
		got := EnsureTraceID(context.Background())
		re := regexp.MustCompile(`^[a-f0-9\-]{36}$`)
		assert.True(t, re.MatchString(strings.ToLower(got)))
	})

	t.Run("empty value counts as missing", func(t *testing.T) {
		ctx := WithTraceID(context.Background(), "")
		_, ok := IDFromContext(ctx)
		assert.False(t, ok)
	})
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithTraceParent(context.Background(), testParent)
	ctx = WithTraceState(ctx, "vendor=a:b,c=d")

	tp, ok := ParentFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, testParent, tp)

	ts, ok := StateFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "vendor=a:b,c=d", ts)
}

func TestGenerateTraceParent(t *testing.T) {
	tp := GenerateTraceParent()
	parts := strings.Split(tp, "-")
	require.Len(t, parts, 4)

	assert.Equal(t, "00", parts[0])
	assert.Len(t, parts[1], 32)
	assert.Len(t, parts[2], 16)
	assert.Equal(t, "01", parts[3])

	hexRe := regexp.MustCompile(`^[0-9a-f]+$`)
	assert.True(t, hexRe.MatchString(parts[1]))
	assert.True(t, hexRe.MatchString(parts[2]))
	assert.NotEqual(t, strings.Repeat("0", 32), parts[1])
}

func TestIDFromTraceParent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		id    string
		ok    bool
	}{
		{"valid", testCtxParent, "deadbeefdeadbeefdeadbeefdeadbeef", true},
		{"uppercase normalized", "00-DEADBEEFDEADBEEFDEADBEEFDEADBEEF-0123456789abcdef-01", "deadbeefdeadbeefdeadbeefdeadbeef", true},
		{"too few parts", "00-abc-01", "", false},
		{"short trace id", "00-abc-0123456789abcdef-01", "", false},
		{"not hex", "00-zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz-0123456789abcdef-01", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := IDFromTraceParent(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestInjectIntoHeaders(t *testing.T) {
	t.Run("preserve keeps existing values", func(t *testing.T) {
		h := http.Header{}
		h.Set(HeaderXRequestID, "pre-xid")
		h.Set(HeaderTraceParent, testParent)
		h.Set(HeaderTraceState, "vendor=a:b")

		ctx := WithTraceID(context.Background(), "ctx-xid")
		ctx = WithTraceParent(ctx, testCtxParent)
		ctx = WithTraceState(ctx, "vendor=ctx")

		got := InjectIntoHeaders(ctx, h, InjectOptions{Mode: InjectPreserve, W3C: true})

		assert.Equal(t, "pre-xid", got)
		assert.Equal(t, "pre-xid", h.Get(HeaderXRequestID))
		assert.Equal(t, testParent, h.Get(HeaderTraceParent))
		assert.Equal(t, "vendor=a:b", h.Get(HeaderTraceState))
	})

	t.Run("preserve fills missing from context", func(t *testing.T) {
		h := http.Header{}
		ctx := WithTraceParent(context.Background(), testCtxParent)
		ctx = WithTraceState(ctx, "vendor=x")

		got := InjectIntoHeaders(ctx, h, InjectOptions{W3C: true})

		assert.Equal(t, testCtxParent, h.Get(HeaderTraceParent))
		assert.Equal(t, "deadbeefdeadbeefdeadbeefdeadbeef", got)
		assert.Equal(t, got, h.Get(HeaderXRequestID))
		assert.Equal(t, "vendor=x", h.Get(HeaderTraceState))
	})

	t.Run("overwrite replaces existing values", func(t *testing.T) {
		h := http.Header{}
		h.Set(HeaderXRequestID, "pre-xid")
		h.Set(HeaderTraceParent, testParent)

		ctx := WithTraceID(context.Background(), "ctx-xid")
		ctx = WithTraceParent(ctx, testCtxParent)

		got := InjectIntoHeaders(ctx, h, InjectOptions{Mode: InjectOverwrite, W3C: true})

		assert.Equal(t, "ctx-xid", got)
		assert.Equal(t, testCtxParent, h.Get(HeaderTraceParent))
	})

	t.Run("overwrite without context id keeps header", func(t *testing.T) {
		h := http.Header{}
		h.Set(HeaderXRequestID, "pre-xid")

		got := InjectIntoHeaders(context.Background(), h, InjectOptions{Mode: InjectOverwrite})
		assert.Equal(t, "pre-xid", got)
	})

	t.Run("custom header and generator", func(t *testing.T) {
		h := http.Header{}
		got := InjectIntoHeaders(context.Background(), h, InjectOptions{
			RequestIDHeader: "X-Correlation-ID",
			NewID:           func() string { return "generated-1" },
		})

		assert.Equal(t, "generated-1", got)
		assert.Equal(t, "generated-1", h.Get("X-Correlation-ID"))
		assert.Empty(t, h.Get(HeaderXRequestID))
		assert.Empty(t, h.Get(HeaderTraceParent), "w3c headers are opt-in")
	})

	t.Run("w3c generates traceparent and correlates request id", func(t *testing.T) {
		h := http.Header{}
		got := InjectIntoHeaders(context.Background(), h, InjectOptions{W3C: true})

		tp := h.Get(HeaderTraceParent)
		require.NotEmpty(t, tp)
		id, ok := IDFromTraceParent(tp)
		require.True(t, ok)
		assert.Equal(t, id, got)
	})
}
