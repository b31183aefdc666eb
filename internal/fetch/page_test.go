package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const docPage = `<html><head><title>API Reference</title>
<style>body { color: red; }</style>
<script>trackVisit();</script>
</head><body>
<h1>Reference</h1>
<p>General introduction to the library.</p>
<h2 id="old_function">old_function</h2>
<p>Deprecated in version 1.20. Use new_function instead.</p>
<pre>old_function(x)</pre>
<h2 id="new_function">new_function API</h2>
<p>The replacement.</p>
</body></html>`

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestReadPageFullDocument(t *testing.T) {
	t.Parallel()

	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(docPage))
	})

	p := NewPageReader(Config{MaxTextBytes: 100000}, nil)
	text, err := p.ReadPage(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Contains(t, text, "General introduction")
	require.Contains(t, text, "old_function")
	require.NotContains(t, text, "trackVisit")
	require.NotContains(t, text, "color: red")
	require.NotContains(t, text, "TARGET API")
}

func TestReadPageFragmentNarrowsToSection(t *testing.T) {
	t.Parallel()

	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(docPage))
	})

	p := NewPageReader(Config{MaxTextBytes: 100000}, nil)
	text, err := p.ReadPage(context.Background(), srv.URL+"/#old_function")
	require.NoError(t, err)
	require.Contains(t, text, "TARGET API: old_function")
	require.Contains(t, text, "TARGET API SECTION:")
	require.Contains(t, text, "Deprecated in version 1.20")
	// The next API heading starts a new section and is excluded.
	require.NotContains(t, text, "The replacement")
}

func TestReadPageUnknownFragmentFallsBackToFullPage(t *testing.T) {
	t.Parallel()

	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(docPage))
	})

	p := NewPageReader(Config{MaxTextBytes: 100000}, nil)
	text, err := p.ReadPage(context.Background(), srv.URL+"/#missing_anchor")
	require.NoError(t, err)
	require.Contains(t, text, "TARGET API: missing_anchor")
	require.Contains(t, text, "FULL PAGE CONTENT:")
	require.Contains(t, text, "General introduction")
}

func TestReadPageTruncatesLongText(t *testing.T) {
	t.Parallel()

	long := "<html><body><p>" + strings.Repeat("words ", 2000) + "</p></body></html>"
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(long))
	})

	p := NewPageReader(Config{MaxTextBytes: 500}, nil)
	text, err := p.ReadPage(context.Background(), srv.URL)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(text, "[content truncated]"))
	require.Less(t, len(text), 600)
}

func TestReadPageNotFound(t *testing.T) {
	t.Parallel()

	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	p := NewPageReader(Config{}, nil)
	_, err := p.ReadPage(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestReadPageServerDown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	p := NewPageReader(Config{Timeout: time.Second}, nil)
	_, err := p.ReadPage(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestReadPageRepeatedVisitsAllowed(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(docPage))
	})

	p := NewPageReader(Config{MaxTextBytes: 100000}, nil)
	for i := 0; i < 2; i++ {
		_, err := p.ReadPage(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	require.EqualValues(t, 2, hits.Load())
}

func TestTargetAPI(t *testing.T) {
	t.Parallel()

	require.Equal(t, "old_function", TargetAPI("https://docs.example.com/api#old_function"))
	require.Empty(t, TargetAPI("https://docs.example.com/api"))
	require.Empty(t, TargetAPI("://not a url"))
}
