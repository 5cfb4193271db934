package volume

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vdo-project/vdomgr/cmd/util/output"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "status",
		Short:        "Show the status of the configuration file.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	store, err := openReadOnly(false)
	if err != nil {
		return err
	}
	status, err := store.Status()
	if err != nil {
		return err
	}
	output.KeyValue(cmd, [][2]string{
		{"File", status.File},
		{"Last modified", status.LastModified},
		{"Volumes", fmt.Sprintf("%d", len(store.List()))},
	})
	return nil
}
