package embeddings

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"empty model", Config{SocketPath: "/tmp/test.sock"}, true},
		{"no endpoint", Config{Model: "test-model"}, true},
		{"base url without key", Config{BaseURL: "https://api.example/v1", Model: "test-model"}, true},
		{"socket", Config{SocketPath: "/tmp/test.sock", Model: "test-model"}, false},
		{"base url", Config{BaseURL: "https://api.example/v1", APIKey: "k", Model: "test-model"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDimensions(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"ai/embeddinggemma", 768},
		{"ai/qwen3-embedding", 2560},
		{"text-embedding-3-small", 1536},
		{"unknown-model", 768},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := Dimensions(tt.model); got != tt.want {
				t.Errorf("Dimensions(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}

func serveEmbeddings(vector []float32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{"data": []map[string]any{}}
		if vector != nil {
			resp["data"] = []map[string]any{{"embedding": vector}}
		}
		json.NewEncoder(w).Encode(resp)
	})
}

func TestEmbed_UnixSocket(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "test.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("Failed to create Unix socket: %v", err)
	}
	defer listener.Close()

	want := []float32{0.1, 0.2, 0.3}
	server := &http.Server{Handler: serveEmbeddings(want)}
	go server.Serve(listener)
	defer server.Close()

	client, err := New(Config{SocketPath: socketPath, Model: "test-model"})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	got, err := client.Embed(t.Context(), "test text")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Embed() returned %d dimensions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Embed()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestEmbed_BaseURL(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		serveEmbeddings([]float32{1}).ServeHTTP(w, r)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL + "/v1", APIKey: "k", Model: "m"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.Embed(t.Context(), "x"); err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if auth != "Bearer k" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestEmbed_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.Handler
	}{
		{"server error", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("internal error"))
		})},
		{"empty data", serveEmbeddings(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client, _ := New(Config{BaseURL: server.URL, APIKey: "k", Model: "m"})
			if _, err := client.Embed(t.Context(), "test text"); err == nil {
				t.Error("Embed() expected an error")
			}
		})
	}
}
