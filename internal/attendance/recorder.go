package attendance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"faceattend/internal/facedetect"
	"faceattend/internal/model"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// FaceCounter counts the faces present in a decoded image.
type FaceCounter interface {
	CountFaces(ctx context.Context, img image.Image) (int, error)
}

// Capture is one inbound image plus how to attribute it.
type Capture struct {
	Image    []byte
	Identity Identity
}

// Options tune a Recorder. The zero value is usable.
type Options struct {
	// AllowArbitrarySelection enables ByArbitrarySelection captures.
	AllowArbitrarySelection bool
	// Location defines the calendar day used by the one-per-day rule.
	Location *time.Location
	// Now stamps records; defaults to time.Now.
	Now func() time.Time
	// Decode turns raw capture bytes into an image; defaults to facedetect.Decode.
	Decode func([]byte) (image.Image, error)
	// NewID mints capture ids; defaults to uuid.NewString.
	NewID func() string
}

// Recorder decides whether a capture becomes an attendance record.
type Recorder struct {
	faces FaceCounter
	store Store
	opts  Options
}

// NewRecorder builds a Recorder around a shared face counter and store.
func NewRecorder(faces FaceCounter, store Store, opts Options) *Recorder {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Decode == nil {
		opts.Decode = func(b []byte) (image.Image, error) {
			return facedetect.Decode(b, facedetect.DefaultMaxDimension)
		}
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Recorder{faces: faces, store: store, opts: opts}
}

// AllowsArbitrarySelection reports whether demo captures are enabled.
func (r *Recorder) AllowsArbitrarySelection() bool { return r.opts.AllowArbitrarySelection }

// Record evaluates a capture and, when it is a single known face not yet
// marked today, writes a Present row. It never retries.
func (r *Recorder) Record(ctx context.Context, c Capture) Outcome {
	id := r.opts.NewID()

	img, err := r.opts.Decode(c.Image)
	if err != nil {
		return failed(id, DecodeError, err)
	}

	n, err := r.faces.CountFaces(ctx, img)
	if err != nil {
		return failed(id, DetectorError, err)
	}
	switch {
	case n == 0:
		return rejected(id, NoFaceDetected, "No face detected")
	case n > 1:
		return rejected(id, MultipleFacesDetected, "Multiple faces detected. Please ensure only one person is in frame.")
	}

	if c.Identity.Arbitrary() && !r.opts.AllowArbitrarySelection {
		return rejected(id, AnonymousCaptureDisabled, "Anonymous capture is disabled; a roll number is required")
	}

	now := r.opts.Now().In(r.opts.Location)
	rec := model.AttendanceRecord{
		Date:      now.Format(dateLayout),
		Time:      now.Format(timeLayout),
		Status:    model.StatusPresent,
		CaptureID: id,
	}

	var user *model.User
	err = withTx(ctx, r.store, func(tx Tx) error {
		u, err := resolve(ctx, tx, c.Identity)
		if err != nil {
			return err
		}
		user = u
		rec.RollNumber = u.RollNumber

		count, err := tx.CountAttendance(ctx, u.RollNumber, rec.Date)
		if err != nil {
			return fmt.Errorf("count attendance: %w", err)
		}
		if count > 0 {
			return alreadyMarked(u.Name)
		}
		if err := tx.InsertAttendance(ctx, rec); err != nil {
			if errors.Is(err, ErrDuplicateAttendance) {
				return alreadyMarked(u.Name)
			}
			return fmt.Errorf("insert attendance: %w", err)
		}
		return nil
	})

	var rej *rejection
	switch {
	case errors.As(err, &rej):
		return rejected(id, rej.reason, rej.message)
	case err != nil:
		return failed(id, PersistenceError, err)
	}
	return recorded(id, user.Name, user.RollNumber, rec.Date, rec.Time, c.Identity.Arbitrary())
}

func resolve(ctx context.Context, tx Tx, id Identity) (*model.User, error) {
	if key, ok := id.Key(); ok {
		u, err := tx.FindUser(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("find user: %w", err)
		}
		if u == nil {
			return nil, &rejection{reason: UnknownUser, message: "User not found"}
		}
		return u, nil
	}

	u, err := tx.FindAnyUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("find any user: %w", err)
	}
	if u == nil {
		return nil, &rejection{reason: UnknownUser, message: "No users registered in the system"}
	}
	return u, nil
}
