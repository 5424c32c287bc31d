package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/maauso/newsvideo-api/internal/layout"
)

func newPresetsCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the available layout presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = os.Getenv("LAYOUT_PRESETS_FILE")
			}
			reg := layout.NewRegistry()
			if file != "" {
				if err := reg.LoadFile(file); err != nil {
					return err
				}
			}
			return printPresets(cmd.OutOrStdout(), reg)
		},
	}

	cmd.Flags().StringVar(&file, "presets-file", "", "YAML file with extra presets (defaults to LAYOUT_PRESETS_FILE)")
	return cmd
}

func printPresets(out io.Writer, reg *layout.Registry) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCANVAS\tSCENE\tEXTEND SCENE\tAVATAR")
	for _, name := range reg.Names() {
		p, err := reg.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%dx%d\t%s\t%s\t%s\n",
			p.Name,
			p.Width, p.Height,
			formatRect(p.Scene.Area.Bounds()),
			formatRect(p.ExtendScene.Area.Bounds()),
			formatRect(p.Avatar.Area.Bounds()),
		)
	}
	return tw.Flush()
}

func formatRect(r layout.Rect) string {
	return fmt.Sprintf("%dx%d+%d+%d", r.W, r.H, r.X, r.Y)
}
