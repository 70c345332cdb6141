package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-moments/internal/photo"
)

var clustersCmd = &cobra.Command{
	Use:   "clusters [cluster-id]",
	Short: "List the stored moments and their representatives",
	Long: `Lists every stored moment with its size, time span and representative photo.
With a cluster ID, shows all photos of that moment with their scores.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClusters,
}

func init() {
	rootCmd.AddCommand(clustersCmd)
	clustersCmd.Flags().Bool("important", false, "Only list important moments, largest first")
}

func runClusters(cmd *cobra.Command, args []string) error {
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

	if len(args) == 1 {
		return printClusterDetail(a, args[0])
	}

	if mustGetBool(cmd, "important") {
		moments := a.service.ImportantMoments()
		if len(moments) == 0 {
			fmt.Println("No important moments found.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CLUSTER\tPHOTO\tSCORE\tREASON")
		fmt.Fprintln(w, "-------\t-----\t-----\t------")
		for _, m := range moments {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", m.ClusterID, photoLabel(a, m.Photo.ID), m.CombinedQualityScore, m.Reason)
		}
		w.Flush()
		fmt.Printf("\nTotal: %d important moments\n", len(moments))
		return nil
	}

	clusters, reps := a.service.Clusters()
	fmt.Printf("Analyzed at %s\n\n", a.service.AnalyzedAt().Local().Format("2006-01-02 15:04"))
	printClusterTable(a, clusters, reps)
	return nil
}

func printClusterTable(a *app, clusters []photo.PhotoCluster, reps []photo.ClusterRepresentative) {
	if len(clusters) == 0 {
		fmt.Println("No moments found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLUSTER\tTAKEN\tPHOTOS\tREPRESENTATIVE\tSCORE\tCONFIDENCE\tREASON")
	fmt.Fprintln(w, "-------\t-----\t------\t--------------\t-----\t----------\t------")
	for i, c := range clusters {
		start, end := c.TimeRange()
		taken := start.Format("2006-01-02 15:04:05")
		if span := end.Sub(start); span > 0 {
			taken += " +" + span.Round(time.Second).String()
		}
		rep := reps[i]
		marker := ""
		if rep.IsImportantMoment {
			marker = " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%d%s\t%s\t%.2f\t%.2f\t%s\n",
			c.ID, taken, c.Size(), marker, photoLabel(a, rep.Photo.ID),
			rep.CombinedQualityScore, rep.RankingConfidence, rep.Reason)
	}
	w.Flush()
	fmt.Printf("\nTotal: %d moments (* important)\n", len(clusters))
}

func printClusterDetail(a *app, clusterID string) error {
	cluster, rep, err := a.service.Cluster(clusterID)
	if err != nil {
		return err
	}

	fmt.Printf("Cluster:        %s\n", cluster.ID)
	fmt.Printf("Selection:      %s (%s)\n", rep.Mode, rep.Reason)
	fmt.Printf("Representative: %s\n", photoLabel(a, rep.Photo.ID))
	fmt.Printf("Confidence:     %.2f\n\n", rep.RankingConfidence)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHOTO\tTAKEN\tTECHNICAL\tFACES\tOVERALL\t")
	fmt.Fprintln(w, "-----\t-----\t---------\t-----\t-------\t")
	for _, p := range cluster.Photos {
		technical, overall := "-", "-"
		if p.Technical != nil {
			technical = fmt.Sprintf("%.2f", p.Technical.Overall)
		}
		if p.Score != nil {
			overall = fmt.Sprintf("%.2f", p.Score.Overall)
		}
		faces := "-"
		if avg, ok := p.Faces.Facial(); ok {
			faces = fmt.Sprintf("%d (%.2f)", p.Faces.Count, avg)
		} else if p.FaceCount() > 0 {
			faces = fmt.Sprintf("%d", p.FaceCount())
		}
		selected := ""
		if p.ID == rep.Photo.ID {
			selected = "<"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", photoLabel(a, p.ID), p.TakenAt.Format("15:04:05"),
			technical, faces, overall, selected)
	}
	w.Flush()
	return nil
}

// photoLabel renders a photo ID as a PhotoPrism link when PHOTOPRISM_DOMAIN is set.
func photoLabel(a *app, id string) string {
	if link := a.cfg.PhotoPrism.PhotoURL(id); link != "" {
		return link
	}
	return id
}
