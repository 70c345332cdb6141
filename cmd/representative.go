package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-moments/internal/curator"
	"github.com/kozaktomas/photo-moments/internal/photo"
)

var representativeCmd = &cobra.Command{
	Use:   "representative",
	Short: "Pin, reset or recompute the representative photo of a moment",
}

var representativeSetCmd = &cobra.Command{
	Use:   "set <cluster-id> <photo-id>",
	Short: "Pin a photo as the representative of a moment",
	Long: `Pins the photo as the representative of the moment. The choice survives
re-analysis as long as the photo stays in a moment.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClusters(cmd, func(ctx context.Context, a *app) (photo.ClusterRepresentative, error) {
			return a.service.SetManualRepresentative(ctx, args[0], args[1])
		})
	},
}

var representativeResetCmd = &cobra.Command{
	Use:   "reset <cluster-id>",
	Short: "Drop a pinned representative and select automatically again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClusters(cmd, func(ctx context.Context, a *app) (photo.ClusterRepresentative, error) {
			return a.service.ResetToAutomatic(ctx, args[0])
		})
	},
}

var representativeRecomputeCmd = &cobra.Command{
	Use:   "recompute <cluster-id>",
	Short: "Recompute the representative of a moment",
	Long:  "Recomputes the representative from stored scores. A pinned photo is kept.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClusters(cmd, func(ctx context.Context, a *app) (photo.ClusterRepresentative, error) {
			return a.service.RecomputeRepresentative(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(representativeCmd)
	representativeCmd.AddCommand(representativeSetCmd)
	representativeCmd.AddCommand(representativeResetCmd)
	representativeCmd.AddCommand(representativeRecomputeCmd)
}

// withClusters loads the stored moments, applies fn and prints the resulting representative.
func withClusters(cmd *cobra.Command, fn func(context.Context, *app) (photo.ClusterRepresentative, error)) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if found, err := a.loadClusters(ctx); err != nil || !found {
		return err
	}

	rep, err := fn(ctx, a)
	if err != nil && !errors.Is(err, curator.ErrNotSaved) {
		return err
	}

	fmt.Printf("Cluster:        %s\n", rep.ClusterID)
	fmt.Printf("Representative: %s\n", photoLabel(a, rep.Photo.ID))
	fmt.Printf("Mode:           %s\n", rep.Mode)
	fmt.Printf("Reason:         %s\n", rep.Reason)
	fmt.Printf("Score:          %.2f (confidence %.2f)\n", rep.CombinedQualityScore, rep.RankingConfidence)
	// the change only lived in this process, so an unsaved one is lost
	return err
}
