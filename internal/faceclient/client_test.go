package faceclient

import (
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 32, 24))
}

func TestCountFaces_Skip(t *testing.T) {
	c := New("http://unused.invalid", true)
	n, err := c.CountFaces(context.Background(), testImage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("faces = %d, want 1", n)
	}
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("health in skip mode: %v", err)
	}
}

func TestCountFaces_Remote(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		want    int
		wantErr bool
	}{
		{name: "one face", status: http.StatusOK, body: map[string]any{"faces_detected": 1}, want: 1},
		{name: "two faces", status: http.StatusOK, body: map[string]any{"faces_detected": 2}, want: 2},
		{name: "none", status: http.StatusOK, body: map[string]any{"faces_detected": 0}, want: 0},
		{
			name:   "count from boxes",
			status: http.StatusOK,
			body:   map[string]any{"boxes": []map[string]int{{"x": 1}, {"x": 50}, {"x": 90}}},
			want:   3,
		},
		{name: "server error", status: http.StatusInternalServerError, body: map[string]string{"detail": "model not loaded"}, wantErr: true},
		{name: "negative", status: http.StatusOK, body: map[string]any{"faces_detected": -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/detect" {
					http.NotFound(w, r)
					return
				}
				f, _, err := r.FormFile("image")
				if err != nil {
					http.Error(w, "missing image", http.StatusBadRequest)
					return
				}
				defer f.Close()
				if _, err := jpeg.Decode(f); err != nil {
					http.Error(w, "not a jpeg", http.StatusBadRequest)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(tt.body)
			}))
			defer srv.Close()

			n, err := New(srv.URL+"/", false).CountFaces(context.Background(), testImage())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n != tt.want {
				t.Errorf("faces = %d, want %d", n, tt.want)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("healthy service: %v", err)
	}
	healthy.Store(false)
	if err := c.Health(context.Background()); err == nil {
		t.Error("expected error from unhealthy service")
	}
}
