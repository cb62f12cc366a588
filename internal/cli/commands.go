package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vk/tablegrid/internal/app"
	"github.com/vk/tablegrid/internal/resmon"
)

func newRunCommand(v *viper.Viper, outW io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run PIPELINE_PATH",
		Short: "Run the pipeline's run block",
		Long: `Run loads a pipeline file, or every .hcl, .yaml and .yml file in a
directory, and executes its run block.`,
		Args: pipelineArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appConfig(v, args[0])
			if err != nil {
				return err
			}
			a, err := app.NewApp(cmd.Context(), outW, cfg, nil)
			if err != nil {
				return err
			}
			res, err := a.Run(cmd.Context())
			if err != nil {
				return err
			}
			tags := make([]string, len(res.Snapshots))
			for i, s := range res.Snapshots {
				tags[i] = s.Tag
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s finished: %d iterations in %s, snapshots [%s]\n",
				res.RunID, res.Iterations, res.Duration.Round(time.Millisecond), strings.Join(tags, " "))
			return nil
		},
	}
	cmd.Flags().String("persist-to", "", "store location for snapshots, overriding the run block")
	cmd.Flags().String("store", "", "snapshot store: memory, sqlite or badger (default sqlite)")
	cmd.Flags().String("run-name", "", "key the snapshots are stored under (default: pipeline file name)")
	cmd.Flags().Bool("profile", false, "poll and log resource usage during the run")
	cmd.Flags().Duration("profile-interval", resmon.DefaultInterval, "resource polling interval")
	return cmd
}

func newDescribeCommand(v *viper.Viper, outW io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe PIPELINE_PATH",
		Short: "Print the tables, injectables, steps and broadcasts of a pipeline",
		Args:  pipelineArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := strings.ToLower(v.GetString("format"))
			if format != "text" && format != "json" {
				return usageError(fmt.Errorf("invalid format %q: must be 'text' or 'json'", format))
			}
			cfg, err := appConfig(v, args[0])
			if err != nil {
				return err
			}
			a, err := app.NewApp(cmd.Context(), outW, cfg, nil)
			if err != nil {
				return err
			}
			return a.Describe(cmd.OutOrStdout(), format)
		},
	}
	cmd.Flags().String("format", "text", "output format: text or json")
	return cmd
}
