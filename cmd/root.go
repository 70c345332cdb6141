package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-moments",
	Short: "Group photos into moments and pick the best shot of each",
	Long: `Photo Moments groups a photo library into moments (bursts of similar photos
taken within seconds of each other), scores every photo and picks a
representative per moment. It can compose a "perfect moment" from the best
faces of a burst and recommend a diverse selection of highlights.

Photos come from a PhotoPrism album or a local directory.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
