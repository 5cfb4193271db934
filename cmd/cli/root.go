package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vdo-project/vdomgr/cmd/cli/volume"
	"github.com/vdo-project/vdomgr/cmd/util"
	"github.com/vdo-project/vdomgr/pkg/configstore"
	"github.com/vdo-project/vdomgr/pkg/logger"
	"github.com/vdo-project/vdomgr/pkg/runmode"
)

const environmentVariablePrefix = "VDOMGR"

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vdomgr",
		Short:         "Manage the shared configuration of a set of storage volumes",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger.Configure()

			viper.SetEnvPrefix(environmentVariablePrefix)
			viper.AutomaticEnv()
			if err := viper.BindPFlag("conf", cmd.Root().PersistentFlags().Lookup("conf")); err != nil {
				return err
			}
			if err := viper.BindPFlag("lock-file", cmd.Root().PersistentFlags().Lookup("lock-file")); err != nil {
				return err
			}

			dryRun, err := cmd.Root().PersistentFlags().GetBool("dry-run")
			if err != nil {
				return err
			}
			runmode.SetDryRun(dryRun)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringP("conf", "f", util.DefaultConfigPath,
		"Path to the volume configuration file (can also be set via VDOMGR_CONF)")
	rootCmd.PersistentFlags().String("lock-file", configstore.DefaultLockPath,
		"Path to the lock file coordinating configuration access across processes")
	rootCmd.PersistentFlags().Bool("dry-run", false,
		"Log intended filesystem mutations instead of performing them")

	rootCmd.AddCommand(volume.NewCmd())
	return rootCmd
}

func Execute() {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		util.Fatal(rootCmd, err, 1)
	}
}
