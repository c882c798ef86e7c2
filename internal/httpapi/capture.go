package httpapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"faceattend/internal/attendance"
	"faceattend/internal/queue"
)

var (
	errTooLarge     = errors.New("image exceeds size limit")
	errMissingImage = errors.New("image is required")
)

type capturePayload struct {
	// Image is a data URI ("data:image/jpeg;base64,...") or bare base64.
	Image      string `json:"image"`
	RollNumber string `json:"roll_number"`
}

type captureResponse struct {
	Status     string `json:"status"` // success or error
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"` // set on rejected
	Kind       string `json:"kind,omitempty"`   // set on failed
	Message    string `json:"message"`
	CaptureID  string `json:"capture_id,omitempty"`
	Name       string `json:"name,omitempty"`
	RollNumber string `json:"roll_number,omitempty"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
	Demo       bool   `json:"demo,omitempty"`
}

// Capture marks attendance from a webcam frame. Without a roll number the
// capture is attributed by arbitrary selection, which the recorder only
// accepts when enabled.
func (h *Handler) Capture(c *gin.Context) {
	h.capture(c, false)
}

// AdminCapture marks attendance for an explicit roll number.
func (h *Handler) AdminCapture(c *gin.Context) {
	h.capture(c, true)
}

func (h *Handler) capture(c *gin.Context, requireKey bool) {
	img, roll, err := h.readCapture(c)
	if errors.Is(err, errTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.respond(c, attendance.DecodeFailure(err))
		return
	}

	identity := attendance.ByArbitrarySelection()
	if roll != "" {
		identity = attendance.ByExplicitKey(roll)
	} else if requireKey {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roll_number is required"})
		return
	}

	out := h.recorder.Record(c.Request.Context(), attendance.Capture{Image: img, Identity: identity})
	if out.Recorded() {
		h.publish(out, img)
	}
	h.respond(c, out)
}

func (h *Handler) respond(c *gin.Context, out attendance.Outcome) {
	if h.metrics != nil {
		h.metrics.ObserveOutcome(out)
	}
	if out.Status == attendance.StatusFailed {
		log.Printf("capture %s failed (%s): %v", out.CaptureID, out.Kind, out.Err)
	}

	resp := captureResponse{
		Status:     "error",
		Outcome:    string(out.Status),
		Reason:     string(out.Reason),
		Kind:       string(out.Kind),
		Message:    out.Message,
		CaptureID:  out.CaptureID,
		Name:       out.Name,
		RollNumber: out.RollNumber,
		Date:       out.Date,
		Time:       out.Time,
		Demo:       out.Demo,
	}
	if out.Recorded() {
		resp.Status = "success"
	}
	c.JSON(statusFor(out), resp)
}

func statusFor(out attendance.Outcome) int {
	switch out.Status {
	case attendance.StatusRecorded:
		return http.StatusCreated
	case attendance.StatusRejected:
		switch out.Reason {
		case attendance.AlreadyMarked:
			return http.StatusConflict
		case attendance.UnknownUser:
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	}
	switch out.Kind {
	case attendance.DecodeError:
		return http.StatusBadRequest
	case attendance.DetectorError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// publish hands the committed record to the archive worker. Failures are
// logged and counted; the record stands either way.
func (h *Handler) publish(out attendance.Outcome, img []byte) {
	if h.queue == nil {
		return
	}
	msg, err := queue.NewRecordedMessage(queue.RecordedEvent{
		CaptureID:  out.CaptureID,
		RollNumber: out.RollNumber,
		Date:       out.Date,
		Image:      img,
	})
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = h.queue.Publish(ctx, msg)
	}
	if err != nil {
		log.Printf("queue publish failed for capture %s: %v", out.CaptureID, err)
		if h.metrics != nil {
			h.metrics.PublishFailure()
		}
	}
}

// readCapture extracts the image bytes and optional roll number from either
// a multipart form (field "image") or a JSON body.
func (h *Handler) readCapture(c *gin.Context) ([]byte, string, error) {
	limit := h.cfg.MaxImageBytes
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+64<<10)
		fh, err := c.FormFile("image")
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return nil, "", errTooLarge
			}
			return nil, "", errMissingImage
		}
		if fh.Size > limit {
			return nil, "", errTooLarge
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		img, err := io.ReadAll(io.LimitReader(f, limit+1))
		if err != nil {
			return nil, "", fmt.Errorf("read image: %w", err)
		}
		if int64(len(img)) > limit {
			return nil, "", errTooLarge
		}
		return img, strings.TrimSpace(c.PostForm("roll_number")), nil
	}

	// base64 inflates by 4/3; leave room for the data URI prefix and fields.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit/3*4+64<<10)
	var p capturePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, "", errTooLarge
		}
		return nil, "", fmt.Errorf("decode body: %w", err)
	}
	img, err := decodeDataURI(p.Image)
	if err != nil {
		return nil, "", err
	}
	if int64(len(img)) > limit {
		return nil, "", errTooLarge
	}
	return img, strings.TrimSpace(p.RollNumber), nil
}

// decodeDataURI accepts "data:<mime>;base64,<payload>" or bare base64.
func decodeDataURI(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errMissingImage
	}
	if strings.HasPrefix(s, "data:") {
		header, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, errors.New("malformed data URI")
		}
		if !strings.HasSuffix(header, ";base64") {
			return nil, errors.New("data URI is not base64 encoded")
		}
		s = payload
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if b, rawErr := base64.RawStdEncoding.DecodeString(s); rawErr == nil {
			return b, nil
		}
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return b, nil
}
