// Command inputcore is the driver for the demultiplexing/codec-framing
// core: it loads a track manifest, opens every stream, and pulls the
// MetaDemuxer to completion, logging packet flow. It is not the muxer —
// the actual TS/M2TS write-out is an external collaborator this driver
// stands in for with a trace log.
package main

import (
	"os"

	"github.com/tsmuxer/inputcore/cmd/inputcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
