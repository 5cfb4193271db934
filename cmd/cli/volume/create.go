package volume

import (
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"

	"github.com/vdo-project/vdomgr/pkg/volume"
)

type createOptions struct {
	device        string
	logicalSize   string
	physicalSize  string
	indexMemory   string
	writePolicy   string
	compression   bool
	deduplication bool
	activated     bool
	force         bool
}

func newCreateCmd() *cobra.Command {
	opts := createOptions{
		writePolicy:   volume.WritePolicyAuto,
		deduplication: true,
		activated:     true,
	}
	createCmd := &cobra.Command{
		Use:          "create NAME",
		Short:        "Add a volume to the configuration file.",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, args[0], opts)
		},
	}
	createCmd.Flags().StringVar(&opts.device, "device", "", "Backing device path (required)")
	createCmd.Flags().StringVar(&opts.logicalSize, "logical-size", "", "Logical size of the volume, e.g. 10GB")
	createCmd.Flags().StringVar(&opts.physicalSize, "physical-size", "", "Physical size of the volume, e.g. 10GB")
	createCmd.Flags().StringVar(&opts.indexMemory, "index-memory", "", "Index memory size, e.g. 256MB")
	createCmd.Flags().StringVar(&opts.writePolicy, "write-policy", opts.writePolicy, "Write policy (sync, async or auto)")
	createCmd.Flags().BoolVar(&opts.compression, "compression", opts.compression, "Enable compression")
	createCmd.Flags().BoolVar(&opts.deduplication, "deduplication", opts.deduplication, "Enable deduplication")
	createCmd.Flags().BoolVar(&opts.activated, "activate", opts.activated, "Mark the volume activated")
	createCmd.Flags().BoolVar(&opts.force, "force", false, "Replace an existing volume with the same name")
	_ = createCmd.MarkFlagRequired("device")
	return createCmd
}

func runCreate(cmd *cobra.Command, name string, opts createOptions) error {
	vol := volume.New(name, opts.device)
	vol.WritePolicy = opts.writePolicy
	vol.Compression = opts.compression
	vol.Deduplication = opts.deduplication
	vol.Activated = opts.activated

	for _, size := range []struct {
		raw    string
		target *volume.Size
		flag   string
	}{
		{opts.logicalSize, &vol.LogicalSize, "logical-size"},
		{opts.physicalSize, &vol.PhysicalSize, "physical-size"},
		{opts.indexMemory, &vol.IndexMemory, "index-memory"},
	} {
		if size.raw == "" {
			continue
		}
		var parsed datasize.ByteSize
		if err := parsed.UnmarshalText([]byte(size.raw)); err != nil {
			return fmt.Errorf("invalid --%s value %q: %w", size.flag, size.raw, err)
		}
		*size.target = volume.Size(parsed)
	}

	if err := vol.Validate(); err != nil {
		return err
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	store, err := newRegistry().GetOrCreate(path)
	if err != nil {
		return err
	}

	added, err := store.Add(name, vol, opts.force)
	if err != nil {
		return err
	}
	if !added {
		return fmt.Errorf("volume %q already exists, use --force to replace it", name)
	}
	if err := store.Persist(); err != nil {
		return err
	}

	cmd.Printf("Created volume %q on %s\n", name, vol.Device)
	return nil
}
