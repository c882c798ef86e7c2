package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBucket(capacity, perMinute int) (*TokenBucket, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	l := NewTokenBucket(capacity, perMinute)
	l.now = clk.now
	return l, clk
}

func TestAllowBurstThenRefill(t *testing.T) {
	l, clk := newTestBucket(3, 60) // one token per second

	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("request %d denied within burst", i)
		}
	}
	if l.Allow("a") {
		t.Fatal("expected denial after burst")
	}

	clk.advance(500 * time.Millisecond)
	if l.Allow("a") {
		t.Fatal("half a token should not be enough")
	}
	clk.advance(500 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatal("expected allow after a full token refilled")
	}

	if !l.Allow("b") {
		t.Error("keys should not share buckets")
	}
}

func TestRefillCapsAtCapacity(t *testing.T) {
	l, clk := newTestBucket(2, 60)
	l.Allow("a")
	clk.advance(time.Hour)
	allowed := 0
	for i := 0; i < 5; i++ {
		if l.Allow("a") {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("allowed = %d, want 2", allowed)
	}
}

func TestSweepEvictsIdle(t *testing.T) {
	l, clk := newTestBucket(2, 60)
	l.Allow("a")
	clk.advance(2 * time.Minute)
	l.Allow("b")
	if _, ok := l.state["a"]; ok {
		t.Error("idle bucket was not evicted")
	}
	if _, ok := l.state["b"]; !ok {
		t.Error("active bucket missing")
	}
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, _ := newTestBucket(1, 1)
	r := gin.New()
	r.GET("/", l.GinMiddleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}
