package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHTML(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestURL(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := serveHTML(t, http.StatusOK, "<html><body><h1>Spec</h1></body></html>")

		result, err := URL(context.Background(), server.URL, nil)
		require.NoError(t, err)
		assert.Equal(t, server.URL, result.URL)
		assert.Contains(t, result.HTML, "<h1>Spec</h1>")
		assert.Equal(t, http.StatusOK, result.StatusCode)
		assert.Contains(t, result.ContentType, "text/html")
	})

	t.Run("sends user agent and custom headers", func(t *testing.T) {
		var gotUA, gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte("ok"))
		}))
		t.Cleanup(server.Close)

		opts := DefaultOptions()
		opts.Headers = map[string]string{"Authorization": "Bearer wiki-token"}
		_, err := URL(context.Background(), server.URL, opts)
		require.NoError(t, err)
		assert.Equal(t, DefaultUserAgent, gotUA)
		assert.Equal(t, "Bearer wiki-token", gotAuth)
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := URL(context.Background(), "not-a-valid-url", nil)
		require.Error(t, err)

		var fetchErr *Error
		assert.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, err.Error(), "invalid URL")
	})

	t.Run("non-200 returns result alongside error", func(t *testing.T) {
		server := serveHTML(t, http.StatusNotFound, "gone")

		result, err := URL(context.Background(), server.URL, nil)
		require.Error(t, err)
		require.NotNil(t, result)
		assert.Equal(t, http.StatusNotFound, result.StatusCode)
		assert.Contains(t, err.Error(), "404")
	})
}

func TestExtractMainText(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		selectors []string
		noise     []string
		want      []string
		absent    []string
	}{
		{
			name: "main element wins over chrome",
			html: `<html><body>
				<nav>Navigation</nav>
				<main><h1>API Requirements</h1><p>This is the important text.</p></main>
				<footer>Footer</footer>
			</body></html>`,
			selectors: DefaultTextSelectors(),
			want:      []string{"API Requirements", "important text"},
			absent:    []string{"Navigation", "Footer"},
		},
		{
			name:      "article element",
			html:      `<html><body><article><h1>Design Document</h1><p>Article body.</p></article></body></html>`,
			selectors: DefaultTextSelectors(),
			want:      []string{"Design Document", "Article body"},
		},
		{
			name:      "falls back to body",
			html:      `<html><body><div>Some content here.</div></body></html>`,
			selectors: DefaultTextSelectors(),
			want:      []string{"Some content here"},
		},
		{
			name: "platform noise selectors",
			html: `<html><body>
				<div class="comments">Old discussion thread</div>
				<div class="markdown-body"><h2>Acceptance Criteria</h2><p>Uploads complete within 5 seconds</p></div>
			</body></html>`,
			selectors: DocPageSelectors(),
			noise:     []string{".comments"},
			want:      []string{"Acceptance Criteria", "Uploads complete within 5 seconds"},
			absent:    []string{"Old discussion thread"},
		},
		{
			name: "doc selectors beat generic ones",
			html: `<html><body>
				<main>Generic shell around the page</main>
				<div class="wiki-content">Release checklist for the payments API</div>
			</body></html>`,
			selectors: DocPageSelectors(),
			want:      []string{"Release checklist"},
			absent:    []string{"Generic shell"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := ExtractMainText(tt.html, tt.selectors, tt.noise...)
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, text, want)
			}
			for _, absent := range tt.absent {
				assert.NotContains(t, text, absent)
			}
		})
	}
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "Payments Spec",
		ExtractTitle("<html><head><title>  Payments Spec </title></head><body></body></html>"))
	assert.Equal(t, "", ExtractTitle("<html><body>untitled</body></html>"))
}

func TestCollapseBlankLines(t *testing.T) {
	in := "  Overview  \n\n\n   \n\tScope\n\n"
	assert.Equal(t, "Overview\nScope", collapseBlankLines(in))
	assert.Equal(t, "", collapseBlankLines("\n \n\t\n"))
}
