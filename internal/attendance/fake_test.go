package attendance

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"

	"faceattend/internal/model"
)

type stubCounter struct {
	n     int
	err   error
	calls atomic.Int32
}

func (s *stubCounter) CountFaces(ctx context.Context, img image.Image) (int, error) {
	s.calls.Add(1)
	return s.n, s.err
}

// fakeStore mimics a store with a (roll_number, date) unique key.
type fakeStore struct {
	mu      sync.Mutex
	users   []model.User
	records []model.AttendanceRecord

	begins    int
	commits   int
	rollbacks int
	inserts   int

	BeginError  error
	FindError   error
	CountError  error
	InsertError error
	CommitError error
	// BlindCount makes CountAttendance always report zero, as a concurrent
	// request that has not seen the other insert yet would.
	BlindCount bool
}

func newFakeStore(users ...model.User) *fakeStore {
	return &fakeStore{users: users}
}

func (s *fakeStore) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begins++
	if s.BeginError != nil {
		return nil, s.BeginError
	}
	return &fakeTx{s: s}, nil
}

func (s *fakeStore) count(roll, date string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records {
		if r.RollNumber == roll && r.Date == date {
			n++
		}
	}
	return n
}

type fakeTx struct {
	s       *fakeStore
	pending []model.AttendanceRecord
	closed  bool
}

func (t *fakeTx) FindUser(ctx context.Context, roll string) (*model.User, error) {
	if t.s.FindError != nil {
		return nil, t.s.FindError
	}
	for _, u := range t.s.users {
		if u.RollNumber == roll {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (t *fakeTx) FindAnyUser(ctx context.Context) (*model.User, error) {
	if t.s.FindError != nil {
		return nil, t.s.FindError
	}
	if len(t.s.users) == 0 {
		return nil, nil
	}
	u := t.s.users[0]
	return &u, nil
}

func (t *fakeTx) CountAttendance(ctx context.Context, roll, date string) (int, error) {
	if t.s.CountError != nil {
		return 0, t.s.CountError
	}
	if t.s.BlindCount {
		return 0, nil
	}
	return t.s.count(roll, date), nil
}

func (t *fakeTx) InsertAttendance(ctx context.Context, rec model.AttendanceRecord) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.inserts++
	if t.s.InsertError != nil {
		return t.s.InsertError
	}
	for _, r := range t.s.records {
		if r.RollNumber == rec.RollNumber && r.Date == rec.Date {
			return ErrDuplicateAttendance
		}
	}
	t.pending = append(t.pending, rec)
	return nil
}

func (t *fakeTx) Commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.closed {
		return errors.New("tx closed")
	}
	t.closed = true
	if t.s.CommitError != nil {
		return t.s.CommitError
	}
	t.s.commits++
	t.s.records = append(t.s.records, t.pending...)
	return nil
}

func (t *fakeTx) Rollback() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.closed {
		return errors.New("tx closed")
	}
	t.closed = true
	t.s.rollbacks++
	t.pending = nil
	return nil
}

// pngBytes returns a small encoded image; its content is irrelevant because
// face counting is stubbed.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.White)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
