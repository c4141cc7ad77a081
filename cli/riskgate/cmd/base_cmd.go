package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/riskgate-org/riskgate/logger"
)

type riskgateApp struct {
	baseCmd    *cobra.Command
	baseConfig *baseConfiguration
	opts       *Options
}

// New creates the riskgate command tree.
func New(logF logger.Factory, opts ...Option) *riskgateApp {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	config := &baseConfiguration{loggerBuilder: logF}
	baseCmd := &cobra.Command{
		Use:           "riskgate",
		Short:         "The riskgate CLI",
		Long:          `The riskgate CLI runs the risk-gated ledger node and includes tools for genesis, keys and attestations.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		// subcommands must not define their own PersistentPreRunE, it would replace this one
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.Join(config.loadConfig(cmd), config.initLogger(cmd)); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
	}
	config.addConfigurationFlags(baseCmd)
	baseCmd.AddCommand(
		newNodeCmd(config, o.nodeRunFn),
		newGenesisCmd(config),
		newKeysCmd(config),
		newAttestCmd(config),
	)
	return &riskgateApp{baseCmd: baseCmd, baseConfig: config, opts: o}
}

func (a *riskgateApp) Execute(ctx context.Context) error {
	return a.baseCmd.ExecuteContext(ctx)
}

// loadConfig applies values from the config file and RG_ prefixed environment
// variables to the flags the user did not set on the command line.
func (r *baseConfiguration) loadConfig(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	// --rest-address is read from RG_REST_ADDRESS
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	r.initConfigFileLocation()
	if r.configFileExists() {
		v.SetConfigFile(r.CfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading configuration file %s: %w", r.CfgFile, err)
		}
	}

	var errs []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// home and config are resolved before the config file is read
		if f.Changed || f.Name == keyHome || f.Name == keyConfig || !v.IsSet(f.Name) {
			return
		}
		if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
			errs = append(errs, fmt.Errorf("setting flag %q from configuration: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}
