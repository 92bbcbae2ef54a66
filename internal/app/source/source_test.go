package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"epg/internal/app/epg"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

const doc = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <programme channel="rai1" start="20250117063000 +0000" stop="20250117070000 +0000"><title>News</title></programme>
</tv>`

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(doc))
	}))
	defer server.Close()

	f := NewHTTPFetcher(server.Client(), map[string]string{"X-Token": "secret"})
	data, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != doc {
		t.Errorf("unexpected body: %q", data)
	}
}

func TestHTTPFetcher_errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) }},
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{"empty body", func(w http.ResponseWriter, r *http.Request) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			if _, err := NewHTTPFetcher(server.Client(), nil).Fetch(context.Background(), server.URL); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := NewHTTPFetcher(nil, nil).Fetch(context.Background(), "://bad url"); err == nil {
		t.Error("expected error for malformed url")
	}
}

func TestGzipDecompressor(t *testing.T) {
	d := GzipDecompressor{}

	out, err := d.Decompress(gzipBytes(t, []byte(doc)))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if string(out) != doc {
		t.Errorf("unexpected output %q", out)
	}

	if _, err := d.Decompress([]byte(doc)); err == nil {
		t.Error("plain text should fail to decompress")
	}

	corrupted := gzipBytes(t, []byte(doc))
	corrupted = corrupted[:len(corrupted)/2]
	if _, err := d.Decompress(corrupted); err == nil {
		t.Error("truncated gzip should fail to decompress")
	}
}

// TestGuideWithHTTPSource 通过真实的HTTP、gzip和XML解析执行一次完整更新
func TestGuideWithHTTPSource(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"gzip", gzipBytes(t, []byte(doc))},
		{"plain", []byte(doc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write(tt.body)
			}))
			defer server.Close()

			now := time.Date(2025, 1, 17, 6, 45, 0, 0, time.UTC)
			g := epg.NewGuide(NewHTTPFetcher(server.Client(), nil), GzipDecompressor{}, XMLParser{}, epg.Options{
				Clock:  func() time.Time { return now },
				Logger: zaptest.NewLogger(t),
			})
			g.TriggerUpdate(context.Background(), server.URL)

			prog, ok := g.CurrentProgram("rai1")
			if !ok || prog.Title != "News" {
				t.Errorf("CurrentProgram = %+v, %v", prog, ok)
			}
		})
	}
}

// TestGuideWithHTTPSource_errorPage 上游返回200的HTML错误页时保留原有节目单
func TestGuideWithHTTPSource_errorPage(t *testing.T) {
	var mu sync.Mutex
	body := []byte("<?xml version=\"1.0\" encoding=\"windows-1252\"?>\n" +
		"<tv><programme channel=\"rai1\" start=\"20250117063000 +0000\" stop=\"20250117070000 +0000\"><title>Caf\xe9</title></programme></tv>")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		w.Write(body)
	}))
	defer server.Close()

	now := time.Date(2025, 1, 17, 6, 45, 0, 0, time.UTC)
	g := epg.NewGuide(NewHTTPFetcher(server.Client(), nil), GzipDecompressor{}, XMLParser{}, epg.Options{
		Clock:  func() time.Time { return now },
		Logger: zaptest.NewLogger(t),
	})
	g.TriggerUpdate(context.Background(), server.URL)
	if prog, ok := g.CurrentProgram("rai1"); !ok || prog.Title != "Café" {
		t.Fatalf("CurrentProgram = %+v, %v", prog, ok)
	}

	mu.Lock()
	body = []byte("<html><body>Service Unavailable</body></html>")
	mu.Unlock()
	g.TriggerUpdate(context.Background(), server.URL)

	status := g.Status()
	if !strings.Contains(status.LastError, epg.ErrNotXMLTV.Error()) {
		t.Errorf("lastError = %q", status.LastError)
	}
	if prog, ok := g.CurrentProgram("rai1"); !ok || prog.Title != "Café" {
		t.Errorf("previous guide should be kept, got %+v, %v", prog, ok)
	}
}
