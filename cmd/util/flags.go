package util

import (
	"github.com/spf13/pflag"

	"github.com/vdo-project/vdomgr/cmd/util/output"
)

// DefaultConfigPath is the volume configuration file consulted when neither
// the --conf flag nor VDOMGR_CONF is set.
const DefaultConfigPath = "/etc/vdoconf.yml"

// OutputFormatFlags returns a flag set controlling list/status rendering.
func OutputFormatFlags(o *output.OutputOptions) *pflag.FlagSet {
	flags := pflag.NewFlagSet("output", pflag.ContinueOnError)
	flags.StringVar((*string)(&o.Format), "output", string(o.Format),
		"The output format for the command (one of [\"table\" \"csv\" \"json\" \"yaml\"])")
	flags.BoolVar(&o.Pretty, "pretty", o.Pretty, "Pretty print the output. Only applies to json and yaml output formats.")
	flags.BoolVar(&o.HideHeader, "hide-header", o.HideHeader, "do not print the column headers.")
	flags.BoolVar(&o.NoStyle, "no-style", o.NoStyle, "remove all styling from table output.")
	flags.BoolVar(&o.Wide, "wide", o.Wide, "Print full values in the table results")
	return flags
}
