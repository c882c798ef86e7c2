package faceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Box is a face region reported by the face service.
type Box struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Score  float64 `json:"score"`
}

// DetectResult is the face service's answer for one image.
type DetectResult struct {
	FacesDetected int   `json:"faces_detected"`
	Boxes         []Box `json:"boxes"`
}

// Client calls the face detection microservice.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with configurable timeout.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // detection on large frames can take time
		},
	}
}

// CountFaces satisfies attendance.FaceCounter. In Skip mode every image
// reports exactly one face.
func (c *Client) CountFaces(ctx context.Context, img image.Image) (int, error) {
	res, err := c.Detect(ctx, img)
	if err != nil {
		return 0, err
	}
	return res.FacesDetected, nil
}

// Detect re-encodes img as JPEG and posts it to /detect.
func (c *Client) Detect(ctx context.Context, img image.Image) (*DetectResult, error) {
	if c.Skip {
		b := img.Bounds()
		return &DetectResult{
			FacesDetected: 1,
			Boxes:         []Box{{X: b.Dx() / 4, Y: b.Dy() / 4, Width: b.Dx() / 2, Height: b.Dy() / 2, Score: 0.95}},
		}, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "capture.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := jpeg.Encode(part, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode capture: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/detect", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out DetectResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.FacesDetected < 0 {
		return nil, fmt.Errorf("face service returned negative face count %d", out.FacesDetected)
	}
	if out.FacesDetected == 0 && len(out.Boxes) > 0 {
		out.FacesDetected = len(out.Boxes)
	}
	return &out, nil
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}

	return nil
}
