package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-moments/internal/constants"
	"github.com/kozaktomas/photo-moments/internal/recommend"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend a diverse selection of moment winners",
	Long: `Picks photos among the representatives of all moments, balancing quality
against diversity of content, time and camera settings.

Policies:
  best     greedy mix of quality and diversity (default)
  diverse  fill quotas per content type first`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendCmd.Flags().Int("count", constants.DefaultRecommendationCount, "Number of photos to recommend")
	recommendCmd.Flags().String("policy", "", "Selection policy: best or diverse")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	policy, err := recommend.ParsePolicy(mustGetString(cmd, "policy"))
	if err != nil {
		return err
	}
	count := mustGetInt(cmd, "count")
	if count < 0 {
		return fmt.Errorf("--count must not be negative, got %d", count)
	}
	count = min(count, constants.MaxRecommendationCount)

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

	photos := a.service.Recommendations(count, policy)
	if len(photos) == 0 {
		fmt.Println("Nothing to recommend.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPHOTO\tTAKEN\tCONTENT\tSCORE")
	fmt.Fprintln(w, "-\t-----\t-----\t-------\t-----")
	for i, p := range photos {
		score := "-"
		if p.Score != nil {
			score = fmt.Sprintf("%.2f", p.Score.Overall)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, photoLabel(a, p.ID),
			p.TakenAt.Format("2006-01-02 15:04"), p.Bucket(), score)
	}
	w.Flush()
	fmt.Printf("\nPolicy: %s, %d of %d requested\n", policy, len(photos), count)
	return nil
}
