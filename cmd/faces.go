package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var facesCmd = &cobra.Command{
	Use:   "faces <cluster-id>",
	Short: "Show per-person face quality within a moment",
	Long: `Analyzes every face in the moment, groups them by person and shows the best
and worst shot of each person together with the detected issues.`,
	Args: cobra.ExactArgs(1),
	RunE: runFaces,
}

func init() {
	rootCmd.AddCommand(facesCmd)
	addLibraryFlags(facesCmd)
}

func runFaces(cmd *cobra.Command, args []string) error {
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

	persons, failures, err := a.service.FaceAnalysis(ctx, args[0])
	if err != nil {
		return err
	}
	for _, f := range failures {
		fmt.Printf("Face analysis failed for %s: %s\n", f.PhotoID, f.Error)
	}
	if len(persons) == 0 {
		fmt.Println("No faces found.")
		return nil
	}

	ids := make([]string, 0, len(persons))
	for id := range persons {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PERSON\tFACES\tBEST\tWORST\tPOTENTIAL\tREPLACE\tISSUES")
	fmt.Fprintln(w, "------\t-----\t----\t-----\t---------\t-------\t------")
	for _, id := range ids {
		p := persons[id]
		issues := make([]string, 0, len(p.Worst.Issues))
		for _, i := range p.Worst.Issues {
			issues = append(issues, string(i))
		}
		replace := "no"
		if p.ShouldReplace {
			replace = "yes"
		}
		fmt.Fprintf(w, "%s\t%d\t%s (%.2f)\t%s (%.2f)\t%.2f\t%s\t%s\n", id, len(p.Faces),
			p.Best.PhotoID, p.Best.QualityRank, p.Worst.PhotoID, p.Worst.QualityRank,
			p.ImprovementPotential, replace, strings.Join(issues, ", "))
	}
	w.Flush()
	a.printUsage()
	return nil
}
