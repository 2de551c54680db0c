package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/darkroom/internal/imageio"
	"github.com/MeKo-Tech/darkroom/internal/pipeline"
)

var applyCmd = &cobra.Command{
	Use:   "apply <input> <output>",
	Short: "Apply adjustments to a single image",
	Long: `Apply adjustments to one image and write the result. The output format follows
the output file extension (png, jpg, gif, tif, bmp).`,
	Args: cobra.ExactArgs(2),
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	addAdjustmentFlags(applyCmd, "apply")
	addMaskFlags(applyCmd, "apply")
	applyCmd.Flags().Int("preview", 0, "Downscale so the longest side is at most this many pixels before rendering")
	applyCmd.Flags().String("dump-stages", "", "Directory to write a PNG after every executed stage")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"apply.preview", "preview"},
		{"apply.dump_stages", "dump-stages"},
	}
	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, applyCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runApply(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	input, output := args[0], args[1]
	preview := viper.GetInt("apply.preview")
	dumpDir := viper.GetString("apply.dump_stages")

	adj, err := resolveAdjustments(commandContext(cmd), cmd, "apply")
	if err != nil {
		return err
	}

	img, err := imageio.Load(input)
	if err != nil {
		return err
	}
	sourceSize := img.Bounds().Size()
	if preview > 0 {
		img = imageio.Preview(img, preview)
	}

	layers, err := loadLayers(cmd, "apply", sourceSize, img.Bounds().Size())
	if err != nil {
		return err
	}

	engine, err := newEngine("apply")
	if err != nil {
		return err
	}

	var dbg *pipeline.DebugContext
	if dumpDir != "" {
		dbg = &pipeline.DebugContext{}
	}

	logger.Info("Applying adjustments",
		"input", input,
		"output", output,
		"size", img.Bounds().Size().String(),
		"layers", len(layers),
		"identity", adj.IsIdentity(),
	)

	out, err := engine.RenderDebug(img, adj, layers, dbg)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", input, err)
	}

	if dbg != nil {
		if err := writeStages(dumpDir, dbg); err != nil {
			return err
		}
	}

	if err := imageio.Save(out, output); err != nil {
		return err
	}
	logger.Info("Image written", "path", output)
	return nil
}

func writeStages(dir string, dbg *pipeline.DebugContext) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create stage dir: %w", err)
	}
	for _, s := range dbg.SortedStages() {
		path := filepath.Join(dir, s.Name+".png")
		if err := imageio.Save(s.Image, path); err != nil {
			return err
		}
		logger.Debug("Wrote stage", "stage", s.Name, "path", path)
	}
	return nil
}
