package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-moments/internal/composer"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

var composeCmd = &cobra.Command{
	Use:   "compose <cluster-id>",
	Short: "Build a perfect moment composite for a moment",
	Long: `Analyzes the faces of every photo in the moment and swaps each person's
best face onto the best backdrop photo. The library the moment was analyzed
from must be selected again so the images can be loaded.

Examples:
  photo-moments compose 3f2c... --dir ~/Pictures/trip --provider sidecar --output best.jpg
  photo-moments compose 3f2c... --album aq8i4k2l3m1n0o9p --upload --upload-album aq8i4k2l3m1n0o9p`,
	Args: cobra.ExactArgs(1),
	RunE: runCompose,
}

func init() {
	rootCmd.AddCommand(composeCmd)
	addLibraryFlags(composeCmd)
	composeCmd.Flags().StringP("output", "o", "", "Write the composite JPEG to this file")
	composeCmd.Flags().Bool("upload", false, "Upload the composite to PhotoPrism")
	composeCmd.Flags().StringSlice("upload-album", nil, "Album UIDs the uploaded composite is added to")
}

func runCompose(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireLibrary(); err != nil {
		return err
	}
	if found, err := a.loadClusters(ctx); err != nil || !found {
		return err
	}

	outcome, err := a.service.ComposePerfectMoment(ctx, args[0])
	if err != nil {
		return err
	}
	printOutcome(a, outcome)
	a.printUsage()

	if outcome.Status != composer.StatusComposed {
		return outcome.Err()
	}
	result := outcome.Result

	if path := mustGetString(cmd, "output"); path != "" {
		if err := os.WriteFile(path, result.Image, 0o644); err != nil {
			return fmt.Errorf("failed to write composite: %w", err)
		}
		fmt.Printf("Composite written to %s\n", path)
	}

	if mustGetBool(cmd, "upload") {
		pp, err := a.photoPrism(ctx)
		if err != nil {
			return err
		}
		token, err := pp.UploadData(ctx, photo.CompositeFileName(result.ID), result.Image)
		if err != nil {
			return fmt.Errorf("failed to upload composite: %w", err)
		}
		if err := pp.ProcessUpload(ctx, token, mustGetStringSlice(cmd, "upload-album")); err != nil {
			return fmt.Errorf("failed to process upload: %w", err)
		}
		fmt.Println("Composite uploaded to PhotoPrism")
	} else if len(mustGetStringSlice(cmd, "upload-album")) > 0 {
		return errors.New("--upload-album requires --upload")
	}
	return nil
}

func printOutcome(a *app, o *composer.Outcome) {
	fmt.Printf("Status:   %s\n", o.Status)
	if o.Reason != "" {
		fmt.Printf("Reason:   %s\n", o.Reason)
	}
	fmt.Printf("Original: %s\n", photoLabel(a, o.Original.ID))
	if o.Notice != "" {
		fmt.Printf("Notice:   %s\n", o.Notice)
	}
	for _, f := range o.Failures {
		fmt.Printf("Face analysis failed for %s: %s\n", f.PhotoID, f.Error)
	}

	if o.Result == nil {
		fmt.Println()
		return
	}
	r := o.Result
	fmt.Printf("Composite: %s (%s)\n", r.ID, r.Duration.Round(time.Millisecond))
	for _, imp := range r.Improvements {
		fmt.Printf("  %s: %s from %s (confidence %.2f)\n", imp.PersonID, imp.Type, photoLabel(a, imp.SourcePhotoID), imp.Confidence)
	}
	m := r.Metrics
	fmt.Printf("Quality:  overall %.2f, blending %.2f, lighting %.2f, naturalness %.2f, edge artifacts %.2f\n",
		m.OverallQuality, m.BlendingQuality, m.LightingConsistency, m.Naturalness, m.EdgeArtifacts)
	if o.QualityWarning {
		fmt.Println("Warning: composite quality is below the threshold, consider keeping the original")
	}
	fmt.Println()
}
