package volume

import (
	"github.com/spf13/cobra"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "remove NAME",
		Short:        "Remove a volume from the configuration file.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(cmd, args[0])
		},
	}
}

func runRemove(cmd *cobra.Command, name string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	store, err := newRegistry().GetOrCreate(path)
	if err != nil {
		return err
	}
	if err := store.Remove(name); err != nil {
		return err
	}
	if err := store.Persist(); err != nil {
		return err
	}
	cmd.Printf("Removed volume %q\n", name)
	return nil
}
