// Package facedetect counts faces in still images.
//
// Detection uses a pixel-intensity-comparison cascade (pigo) tuned the way a
// Haar cascade is: a scale step between pyramid levels and a minimum number of
// overlapping raw hits ("neighbours") before a region counts as a face.
// Results are approximate; missed and spurious faces are expected.
package facedetect

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sort"

	pigo "github.com/esimov/pigo/core"
)

// Params tune the cascade. Detectors copy them at construction.
type Params struct {
	ScaleFactor  float64 // pyramid step, > 1
	MinNeighbors int     // raw hits required besides the strongest one
	MinSize      int     // smallest face side in pixels
	MaxSize      int     // largest face side in pixels; 0 means the image's longest side
	ShiftFactor  float64 // window stride as a fraction of its size
	IoUThreshold float64 // overlap above which two raw hits belong to one face
}

// DefaultParams mirrors the classic webcam tuning: scale 1.1, five neighbours.
func DefaultParams() Params {
	return Params{
		ScaleFactor:  1.1,
		MinNeighbors: 5,
		MinSize:      40,
		ShiftFactor:  0.1,
		IoUThreshold: 0.2,
	}
}

func (p Params) validate() error {
	if p.ScaleFactor <= 1 {
		return fmt.Errorf("scale factor must be > 1, got %v", p.ScaleFactor)
	}
	if p.MinNeighbors < 0 {
		return fmt.Errorf("min neighbors must be >= 0, got %d", p.MinNeighbors)
	}
	if p.MinSize <= 0 {
		return fmt.Errorf("min size must be > 0, got %d", p.MinSize)
	}
	if p.ShiftFactor <= 0 || p.ShiftFactor >= 1 {
		return fmt.Errorf("shift factor must be in (0,1), got %v", p.ShiftFactor)
	}
	if p.IoUThreshold <= 0 || p.IoUThreshold >= 1 {
		return fmt.Errorf("iou threshold must be in (0,1), got %v", p.IoUThreshold)
	}
	return nil
}

// Box is a detected face region in image coordinates.
type Box struct {
	X, Y  int // top-left corner
	Size  int // side length; cascade windows are square
	Score float32
	Votes int // raw hits merged into this box
}

// Detector is immutable after construction and safe for concurrent use.
type Detector struct {
	classifier *pigo.Pigo
	params     Params
}

// minCascadeLen is the size of the cascade header pigo reads before any tree.
const minCascadeLen = 8 + 4*4

// NewDetector unpacks a pigo cascade (e.g. the "facefinder" file).
func NewDetector(cascade []byte, p Params) (d *Detector, err error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(cascade) < minCascadeLen {
		return nil, errors.New("cascade data too short")
	}
	// Unpack indexes into the buffer without bounds checks.
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("unpack cascade: %v", r)
		}
	}()
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}
	return &Detector{classifier: classifier, params: p}, nil
}

// Load reads a cascade file from disk and builds a Detector.
func Load(path string, p Params) (*Detector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cascade %s: %w", path, err)
	}
	return NewDetector(data, p)
}

// Params returns the tuning the detector was built with.
func (d *Detector) Params() Params { return d.params }

// CountFaces returns how many face regions survive neighbour voting.
func (d *Detector) CountFaces(ctx context.Context, img image.Image) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(d.Detect(img)), nil
}

// Detect runs the cascade over a grayscale copy of img.
func (d *Detector) Detect(img image.Image) []Box {
	gray := toGray(img)
	cols, rows := gray.Rect.Dx(), gray.Rect.Dy()

	maxSize := d.params.MaxSize
	if maxSize <= 0 {
		maxSize = max(cols, rows)
	}
	cp := pigo.CascadeParams{
		MinSize:     d.params.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.params.ShiftFactor,
		ScaleFactor: d.params.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: gray.Pix,
			Rows:   rows,
			Cols:   cols,
			Dim:    gray.Stride,
		},
	}
	raw := d.classifier.RunCascade(cp, 0.0)

	boxes := make([]Box, 0, len(raw))
	for _, det := range raw {
		boxes = append(boxes, Box{
			X:     det.Col - det.Scale/2,
			Y:     det.Row - det.Scale/2,
			Size:  det.Scale,
			Score: det.Q,
			Votes: 1,
		})
	}
	return groupBoxes(boxes, d.params.IoUThreshold, d.params.MinNeighbors)
}

// groupBoxes merges overlapping raw hits, strongest first, and keeps groups
// with more than minNeighbors members. Each kept box is the members' average.
func groupBoxes(raw []Box, iouThreshold float64, minNeighbors int) []Box {
	sorted := make([]Box, len(raw))
	copy(sorted, raw)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	type group struct {
		lead    Box
		members []Box
	}
	var groups []*group
	for _, b := range sorted {
		placed := false
		for _, g := range groups {
			if iou(g.lead, b) > iouThreshold {
				g.members = append(g.members, b)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, &group{lead: b, members: []Box{b}})
		}
	}

	var out []Box
	for _, g := range groups {
		if len(g.members)-1 < minNeighbors {
			continue
		}
		var x, y, size int
		var score float32
		for _, m := range g.members {
			x += m.X
			y += m.Y
			size += m.Size
			score += m.Score
		}
		n := len(g.members)
		out = append(out, Box{X: x / n, Y: y / n, Size: size / n, Score: score, Votes: n})
	}
	return out
}

// iou is the intersection-over-union of two square boxes.
func iou(a, b Box) float64 {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Size, b.X+b.Size)
	y2 := min(a.Y+a.Size, b.Y+b.Size)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	inter := float64((x2 - x1) * (y2 - y1))
	union := float64(a.Size*a.Size+b.Size*b.Size) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
