package archive

import (
	"context"
	"fmt"
	"log"

	"faceattend/internal/queue"
)

// Uploader archives one capture.
type Uploader interface {
	UploadCapture(ctx context.Context, cp Capture) (*UploadResult, error)
}

// URLSetter records where a capture was archived.
type URLSetter interface {
	SetCaptureURL(ctx context.Context, captureID, url string) error
}

// Worker drains recorded events from a queue and archives their images.
type Worker struct {
	Queue    queue.Queue
	Uploader Uploader
	Records  URLSetter
}

// Run consumes until ctx ends or the queue closes. Individual failures are
// logged and skipped.
func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.Queue.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for msg := range msgs {
		if msg.Type != queue.TypeAttendanceRecorded {
			continue
		}
		if err := w.Handle(ctx, msg); err != nil {
			log.Printf("archive: %v", err)
		}
	}
	return ctx.Err()
}

// Handle archives the capture carried by msg.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	evt, err := queue.DecodeRecorded(msg)
	if err != nil {
		return err
	}
	if len(evt.Image) == 0 {
		return fmt.Errorf("capture %s: no image to archive", evt.CaptureID)
	}

	res, err := w.Uploader.UploadCapture(ctx, Capture{
		ID:         evt.CaptureID,
		RollNumber: evt.RollNumber,
		Date:       evt.Date,
		Image:      evt.Image,
	})
	if err != nil {
		return fmt.Errorf("capture %s: %w", evt.CaptureID, err)
	}

	url := res.SecureURL
	if url == "" {
		url = res.URL
	}
	if err := w.Records.SetCaptureURL(ctx, evt.CaptureID, url); err != nil {
		return fmt.Errorf("capture %s: %w", evt.CaptureID, err)
	}
	log.Printf("archived capture %s for %s -> %s", evt.CaptureID, evt.RollNumber, url)
	return nil
}
