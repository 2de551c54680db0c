package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/darkroom/internal/histogram"
	"github.com/MeKo-Tech/darkroom/internal/imageio"
)

var histogramCmd = &cobra.Command{
	Use:   "histogram <input>",
	Short: "Print the luma and RGB histograms of an image",
	Long: `Print normalized histograms (tallest bin = 255) of an image, optionally after
applying adjustments.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistogram,
}

func init() {
	rootCmd.AddCommand(histogramCmd)

	addAdjustmentFlags(histogramCmd, "histogram")
	histogramCmd.Flags().Bool("json", false, "Emit JSON instead of a tab separated table")

	if err := viper.BindPFlag("histogram.json", histogramCmd.Flags().Lookup("json")); err != nil {
		panic(fmt.Sprintf("failed to bind flag json: %v", err))
	}
}

func runHistogram(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	img, err := imageio.Load(args[0])
	if err != nil {
		return err
	}

	adj, err := resolveAdjustments(commandContext(cmd), cmd, "histogram")
	if err != nil {
		return err
	}
	if !adj.IsIdentity() {
		engine, err := newEngine("histogram")
		if err != nil {
			return err
		}
		if img, err = engine.Render(img, adj, nil); err != nil {
			return fmt.Errorf("failed to render %s: %w", args[0], err)
		}
	}

	data := histogram.Compute(img)
	if viper.GetBool("histogram.json") {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	return data.WriteText(cmd.OutOrStdout())
}
