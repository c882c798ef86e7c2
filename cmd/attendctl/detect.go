package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"faceattend/internal/config"
	"faceattend/internal/facedetect"
)

func newDetectCmd() *cobra.Command {
	var (
		cascade      string
		scaleFactor  float64
		minNeighbors int
		minSize      int
		verbose      bool
	)
	cmd := &cobra.Command{
		Use:   "detect <image>",
		Short: "Count faces in an image with the local detector",
		Long: `detect runs the same cascade the API uses for FACE_BACKEND=local and prints
the face count. Useful for tuning FACE_MIN_NEIGHBORS and FACE_SCALE_FACTOR.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			p := facedetect.DefaultParams()
			p.ScaleFactor = cfg.FaceScaleFactor
			p.MinNeighbors = cfg.FaceMinNeighbors
			p.MinSize = cfg.FaceMinSize
			if cascade == "" {
				cascade = cfg.FaceCascadePath
			}
			if cmd.Flags().Changed("scale") {
				p.ScaleFactor = scaleFactor
			}
			if cmd.Flags().Changed("min-neighbors") {
				p.MinNeighbors = minNeighbors
			}
			if cmd.Flags().Changed("min-size") {
				p.MinSize = minSize
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			img, err := facedetect.Decode(data, facedetect.DefaultMaxDimension)
			if err != nil {
				return err
			}
			d, err := facedetect.Load(cascade, p)
			if err != nil {
				return err
			}

			boxes := d.Detect(img)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d face(s)\n", args[0], len(boxes))
			if verbose {
				for _, b := range boxes {
					fmt.Fprintf(out, "  x=%d y=%d size=%d votes=%d score=%.1f\n", b.X, b.Y, b.Size, b.Votes, b.Score)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cascade, "cascade", "", "pigo cascade file (default $FACE_CASCADE_PATH)")
	cmd.Flags().Float64Var(&scaleFactor, "scale", 1.1, "pyramid scale factor")
	cmd.Flags().IntVar(&minNeighbors, "min-neighbors", 5, "raw hits required besides the strongest")
	cmd.Flags().IntVar(&minSize, "min-size", 40, "smallest face side in pixels")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each detected box")
	return cmd
}
