package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/darkroom/internal/presets"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage named presets",
}

var presetSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Store adjustments under a name",
	Long: `Store adjustments under a name. The adjustments are built the same way as for
apply: --preset or --preset-name first, then --set, --hsl and --curve overrides.`,
	Args: cobra.ExactArgs(1),
	RunE: runPresetSave,
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored presets",
	Args:  cobra.NoArgs,
	RunE:  runPresetList,
}

var presetShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a stored preset as a JSON document",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetShow,
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetDelete,
}

func init() {
	rootCmd.AddCommand(presetCmd)
	presetCmd.AddCommand(presetSaveCmd, presetListCmd, presetShowCmd, presetDeleteCmd)

	addAdjustmentFlags(presetSaveCmd, "preset_save")
}

func openStore() (*presets.Store, error) {
	if logger == nil {
		initLogging()
	}
	return presets.Open(viper.GetString("presets-db"), logger)
}

func runPresetSave(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	adj, err := resolveAdjustments(ctx, cmd, "preset_save")
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Save(ctx, args[0], adj); err != nil {
		return err
	}
	logger.Info("Preset saved", "name", args[0], "identity", adj.IsIdentity())
	return nil
}

func runPresetList(cmd *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.List(commandContext(cmd))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tUPDATED\tIDENTITY")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", p.Name, p.UpdatedAt.Format(time.RFC3339), p.Adjustments.IsIdentity())
	}
	return tw.Flush()
}

func runPresetShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := store.Get(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(p.Adjustments)
}

func runPresetDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(commandContext(cmd), args[0]); err != nil {
		return err
	}
	logger.Info("Preset deleted", "name", args[0])
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
