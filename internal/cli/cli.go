package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vk/tablegrid/internal/app"
)

// Exit codes.
const (
	ExitRuntime = 1
	ExitUsage   = 2
)

// EnvPrefix prefixes the environment variables bound to flags.
const EnvPrefix = "TABLEGRID"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

// Execute runs the command tree with args. Errors come back as *ExitError:
// usage errors with ExitUsage, everything else with ExitRuntime.
func Execute(ctx context.Context, args []string, outW io.Writer) error {
	root := NewRootCommand(outW)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if strings.HasPrefix(err.Error(), "unknown command") {
		return usageError(err)
	}
	return &ExitError{Code: ExitRuntime, Message: err.Error()}
}

// NewRootCommand builds the command tree. Each call returns a fresh tree
// bound to its own viper instance.
func NewRootCommand(outW io.Writer) *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "tablegrid",
		Short: "Run table pipelines declared in HCL or YAML",
		Long: `tablegrid loads tables, injectables and broadcasts from pipeline files and
runs the pipeline's steps over a sequence of iterations, optionally
persisting snapshots of the tables it touches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cmd, cfgFile)
		},
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file with flag values (yaml, json or toml)")
	root.PersistentFlags().String("log-level", "info", "logging level: debug, info, warn or error")
	root.PersistentFlags().String("log-format", "text", "log output format: text or json")
	root.PersistentFlags().Int("max-depth", 0, "maximum nested resolutions before a cycle is reported (0 keeps the default)")

	root.AddCommand(newRunCommand(v, outW), newDescribeCommand(v, outW))
	return root
}

func initConfig(v *viper.Viper, cmd *cobra.Command, cfgFile string) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return usageError(fmt.Errorf("failed to read config file: %w", err))
		}
	}
	slog.Debug("CLI configuration resolved.", "command", cmd.Name(), "config_file", v.ConfigFileUsed())
	return nil
}

func pipelineArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return usageError(fmt.Errorf("%s requires exactly one PIPELINE_PATH argument, got %d", cmd.CommandPath(), len(args)))
	}
	return nil
}

// appConfig builds the validated application configuration from v.
func appConfig(v *viper.Viper, path string) (*app.Config, error) {
	cfg, err := app.NewConfig(app.Config{
		PipelinePath:    path,
		LogLevel:        strings.ToLower(v.GetString("log-level")),
		LogFormat:       strings.ToLower(v.GetString("log-format")),
		MaxDepth:        v.GetInt("max-depth"),
		PersistTo:       v.GetString("persist-to"),
		Store:           strings.ToLower(v.GetString("store")),
		RunName:         v.GetString("run-name"),
		Profile:         v.GetBool("profile"),
		ProfileInterval: v.GetDuration("profile-interval"),
	})
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}
