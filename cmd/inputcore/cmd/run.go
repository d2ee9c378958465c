package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tsmuxer/inputcore/internal/outcome"
	"github.com/tsmuxer/inputcore/internal/packet"
)

var reportEvery int

var runCmd = &cobra.Command{
	Use:   "run <manifest>",
	Short: "Open every track in a manifest and pull the interleaver to completion, logging packet flow",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVar(&reportEvery, "report-every", 1000, "log a progress line every N packets (0 disables)")
}

func runRun(cmd *cobra.Command, args []string) error {
	runID := uuid.New()
	log := slog.Default().With("run", runID.String())

	p, err := buildPipeline(args[0], log)
	if err != nil {
		return fatal(err)
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case sig := <-sigCh:
			log.Info("received signal, stopping after the current round", "signal", sig)
			p.adapter.Terminate()
		case <-ctx.Done():
		}
		return nil
	})

	var pullErr error
	g.Go(func() error {
		pullErr = pullToCompletion(ctx, p, log)
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		return fatal(err)
	}
	if pullErr != nil {
		return fatal(pullErr)
	}
	return nil
}

// pullToCompletion drives the MetaDemuxer's single-threaded ReadPacket loop
// until EOF, a fatal stream error, or ctx cancellation (checked between
// packets, not mid-packet, since ReadPacket itself never blocks).
func pullToCompletion(ctx context.Context, p *pipeline, log *slog.Logger) error {
	var pkt packet.Packet
	count := 0
	start := time.Now()

	for {
		if ctx.Err() != nil {
			log.Info("stopped before completion", "packets", count)
			return nil
		}

		rez := p.demuxer.ReadPacket(&pkt)
		switch rez {
		case outcome.OK:
			count++
			log.Debug("packet", "stream", pkt.StreamIndex, "pts", pkt.PTS, "dts", pkt.DTS,
				"size", pkt.Size, "flags", pkt.Flags)
			if reportEvery > 0 && count%reportEvery == 0 {
				log.Info("progress", "packets", count, "elapsed", time.Since(start))
			}
		case outcome.EOF:
			log.Info("demux complete", "packets", count, "elapsed", time.Since(start))
			return nil
		case outcome.NotReady:
			// Either every stream exhausted the delayed-retry budget this
			// round or a source reported a read error; end the run with an
			// error rather than spinning the driver hot.
			return fmt.Errorf("run: interleaver made no progress after %d packets", count)
		default:
			// Delayed never escapes refillAndSelect's retry loop to here.
		}
	}
}
