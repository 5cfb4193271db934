package volume

import (
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vdo-project/vdomgr/pkg/configstore"
	"github.com/vdo-project/vdomgr/pkg/volume"
)

func NewCmd() *cobra.Command {
	volumeCmd := &cobra.Command{
		Use:   "volume",
		Short: "Manage volumes in the shared configuration file.",
	}
	volumeCmd.AddCommand(newCreateCmd())
	volumeCmd.AddCommand(newRemoveCmd())
	volumeCmd.AddCommand(newListCmd())
	volumeCmd.AddCommand(newStatusCmd())
	return volumeCmd
}

// configPath resolves the configuration file path from the --conf flag or
// the VDOMGR_CONF environment variable, expanding a leading ~.
func configPath() (string, error) {
	return homedir.Expand(viper.GetString("conf"))
}

// newRegistry builds the process-wide registry for commands that mutate the
// shared configuration.
func newRegistry() *configstore.Registry {
	return configstore.NewRegistry(configstore.RegistryParams{
		LockPath: viper.GetString("lock-file"),
		Codec:    volume.NewCodec(),
	})
}

// openReadOnly constructs a private read-only store, for commands that only
// inspect the configuration.
func openReadOnly(mustExist bool) (*configstore.Store, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return configstore.NewStore(configstore.StoreParams{
		Path:      path,
		Codec:     volume.NewCodec(),
		ReadOnly:  true,
		MustExist: mustExist,
	})
}
