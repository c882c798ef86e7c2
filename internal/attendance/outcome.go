package attendance

import "fmt"

// Status is the terminal state of a capture.
type Status string

const (
	StatusRecorded Status = "recorded"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Reason explains an expected, user-facing rejection.
type Reason string

const (
	NoFaceDetected           Reason = "no_face_detected"
	MultipleFacesDetected    Reason = "multiple_faces_detected"
	UnknownUser              Reason = "unknown_user"
	AlreadyMarked            Reason = "already_marked"
	AnonymousCaptureDisabled Reason = "anonymous_capture_disabled"
)

// Kind classifies a failed capture.
type Kind string

const (
	DecodeError      Kind = "decode_error"
	DetectorError    Kind = "detector_error"
	PersistenceError Kind = "persistence_error"
)

// Outcome is the tagged result of one capture. Exactly one of Reason or Kind
// is set unless Status is StatusRecorded.
type Outcome struct {
	Status    Status
	Reason    Reason
	Kind      Kind
	Message   string
	CaptureID string

	// Set on StatusRecorded.
	Name       string
	RollNumber string
	Date       string
	Time       string

	// Demo marks a record attributed by arbitrary selection rather than by a
	// caller-supplied identity.
	Demo bool

	// Err carries the underlying error for StatusFailed.
	Err error
}

// Recorded reports whether the capture produced an attendance row.
func (o Outcome) Recorded() bool { return o.Status == StatusRecorded }

// Detail returns the reason or kind, whichever applies.
func (o Outcome) Detail() string {
	switch o.Status {
	case StatusRejected:
		return string(o.Reason)
	case StatusFailed:
		return string(o.Kind)
	}
	return ""
}

func recorded(captureID, name, roll, date, tm string, demo bool) Outcome {
	return Outcome{
		Status:     StatusRecorded,
		Message:    fmt.Sprintf("Attendance marked for %s (%s)", name, roll),
		CaptureID:  captureID,
		Name:       name,
		RollNumber: roll,
		Date:       date,
		Time:       tm,
		Demo:       demo,
	}
}

func rejected(captureID string, reason Reason, message string) Outcome {
	return Outcome{Status: StatusRejected, Reason: reason, Message: message, CaptureID: captureID}
}

func failed(captureID string, kind Kind, err error) Outcome {
	var msg string
	switch kind {
	case DecodeError:
		msg = "Invalid image data: " + err.Error()
	case DetectorError:
		msg = "Face detection failed: " + err.Error()
	default:
		msg = "Error marking attendance: " + err.Error()
	}
	return Outcome{Status: StatusFailed, Kind: kind, Message: msg, CaptureID: captureID, Err: err}
}

// DecodeFailure builds the outcome for a payload that could not be turned
// into image bytes at the transport boundary.
func DecodeFailure(err error) Outcome {
	return failed("", DecodeError, err)
}

// rejection aborts the capture transaction with a user-facing reason.
type rejection struct {
	reason  Reason
	message string
}

func (r *rejection) Error() string { return r.message }

func alreadyMarked(name string) *rejection {
	return &rejection{reason: AlreadyMarked, message: fmt.Sprintf("Attendance already marked for %s today", name)}
}
