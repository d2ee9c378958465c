package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <manifest>",
	Short: "Open every track in a manifest and report what was resolved, without pulling packets",
	Args:  cobra.ExactArgs(1),
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	p, err := buildPipeline(args[0], nil)
	if err != nil {
		return fatal(err)
	}
	defer p.Close()

	out := cmd.OutOrStdout()
	for _, t := range p.tracks {
		fmt.Fprintf(out, "track %d: codec=%s pid=%d lang=%q file=%s\n",
			t.state.StreamIndex, t.codec, t.state.PID, t.state.Lang, t.state.SourceFileName)
	}
	return nil
}
