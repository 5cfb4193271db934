package volume

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/vdo-project/vdomgr/cmd/util"
	"github.com/vdo-project/vdomgr/cmd/util/output"
	"github.com/vdo-project/vdomgr/pkg/configstore"
	"github.com/vdo-project/vdomgr/pkg/volume"
)

var listColumns = []output.TableColumn[*volume.Volume]{
	{
		ColumnConfig: table.ColumnConfig{Name: "Name"},
		Value:        func(v *volume.Volume) string { return v.Name },
	},
	{
		ColumnConfig: table.ColumnConfig{Name: "Device"},
		Value:        func(v *volume.Volume) string { return v.Device },
	},
	{
		ColumnConfig: table.ColumnConfig{Name: "Logical Size"},
		Value:        func(v *volume.Volume) string { return v.LogicalSize.String() },
	},
	{
		ColumnConfig: table.ColumnConfig{Name: "Write Policy"},
		Value:        func(v *volume.Volume) string { return v.WritePolicy },
	},
	{
		ColumnConfig: table.ColumnConfig{Name: "Activated"},
		Value:        func(v *volume.Volume) string { return fmt.Sprintf("%t", v.Activated) },
	},
	{
		ColumnConfig: table.ColumnConfig{Name: "UUID", WidthMax: 8, WidthMaxEnforcer: func(col string, _ int) string {
			if len(col) > 8 {
				return col[:8]
			}
			return col
		}},
		Value: func(v *volume.Volume) string { return v.UUID },
	},
}

func newListCmd() *cobra.Command {
	o := output.OutputOptions{
		Format: output.TableFormat,
		Pretty: true,
	}
	listCmd := &cobra.Command{
		Use:          "list",
		Short:        "List the volumes in the configuration file.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, o)
		},
	}
	listCmd.Flags().AddFlagSet(util.OutputFormatFlags(&o))
	return listCmd
}

func runList(cmd *cobra.Command, o output.OutputOptions) error {
	store, err := openReadOnly(false)
	if err != nil {
		return err
	}

	o.SortBy = []table.SortBy{{Name: "Name", Mode: table.Asc}}

	volumes := lo.FilterMap(lo.Values(store.List()),
		func(e configstore.Entry, _ int) (*volume.Volume, bool) {
			v, ok := e.(*volume.Volume)
			return v, ok
		})

	return output.Output(cmd, listColumns, o, volumes)
}
