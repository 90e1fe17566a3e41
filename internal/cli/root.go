package cli

import (
	"fmt"

	"rgehrsitz/acrex/internal/config"
	"rgehrsitz/acrex/internal/logging"
	"rgehrsitz/acrex/internal/preprocessor"
	"rgehrsitz/acrex/internal/rules"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// version can be overridden at build time via:
// go build -ldflags "-X rgehrsitz/acrex/internal/cli.version=1.2.3"
var version = "0.3.0"

type rootOptions struct {
	configPath string
	rulesPath  string
	logLevel   string
	logFormat  string
}

// Execute runs the acrex command line.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "acrex",
		Short:         "acrex - rule-based air conditioner controller",
		Long:          color.CyanString("acrex") + "\nPicks an AC mode, fan speed and setpoint from home conditions using priority-ordered rules.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to the acrex YAML config file")
	flags.StringVar(&opts.rulesPath, "rules", "", "rule file (JSON or YAML); defaults to the built-in rule set")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (console or json)")

	root.AddCommand(newDecideCmd(opts))
	root.AddCommand(newRulesCmd(opts))
	root.AddCommand(newValidateCmd(opts))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

// load resolves configuration, flag overrides included, and sets up logging.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.rulesPath != "" {
		cfg.Rules.File = o.rulesPath
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if err := logging.Setup(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *rootOptions) loadRules(cmd *cobra.Command) (*config.Config, []*rules.Rule, error) {
	cfg, err := o.load(cmd)
	if err != nil {
		return nil, nil, err
	}
	rs, err := preprocessor.LoadRules(cfg.Rules.File)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rs, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "acrex %s\n", version)
		},
	}
}
