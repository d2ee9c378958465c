// Package metademux implements the MetaDemuxer, the top-level interleaver
// that holds every configured StreamState and emits a single
// monotone-by-DTS packet stream, applying time shifts and the flush-mode
// EOF discipline.
//
// The refill/selection algorithm below is grounded directly on
// METADemuxer::readPacket (original_source/tsMuxer/metaDemuxer.cpp): the
// nested "retry while all streams report delayed" loop, the minimum-last-DTS
// selection with index tiebreak, and the flush-mode fallback once no stream
// is eligible are carried over one to one, translated from the reference's
// sentinel-index scan into idiomatic Go.
package metademux

import (
	"log/slog"

	"github.com/tsmuxer/inputcore/internal/outcome"
	"github.com/tsmuxer/inputcore/internal/packet"
	"github.com/tsmuxer/inputcore/internal/streaminfo"
)

// maxDelayedSpins bounds the "every stream delayed, reset, retry" cycle
// (spec.md §9's open question: the reference has no such bound and can spin
// forever against a producer that never advances). Chosen generously; a
// caller that legitimately needs more spins is polling a producer that is
// not actually making progress and should back off at a higher level.
const maxDelayedSpins = 1000

// DelayedResetter clears soft back-pressure marks so a round where every
// stream reported Delayed can be retried. *containeradapter.ContainerAdapter
// satisfies this via its ResetDelayedMark method.
type DelayedResetter interface {
	ResetDelayedMark()
}

// MetaDemuxer is the top-level interleaver. It is not safe for concurrent
// use: exactly one goroutine drives ReadPacket, matching the single
// cooperative pull loop the rest of the core assumes.
type MetaDemuxer struct {
	log       *slog.Logger
	streams   []*streaminfo.StreamState
	resetters []DelayedResetter

	flushMode bool
}

// New creates an empty MetaDemuxer. Streams are added via AddStream in the
// order they should be selected as PCR reference and tiebreak priority —
// the first stream added carries FlagPCRStream.
func New(log *slog.Logger) *MetaDemuxer {
	if log == nil {
		log = slog.Default()
	}
	return &MetaDemuxer{log: log.With("component", "metademux")}
}

// AddStream registers a StreamState. Its StreamIndex must equal its
// position in insertion order (streaminfo.New's caller is responsible for
// numbering streams 0..n-1 in configuration order).
func (m *MetaDemuxer) AddStream(s *streaminfo.StreamState) {
	m.streams = append(m.streams, s)
}

// AddDelayedResetter registers a back-pressure source (typically the shared
// ContainerAdapter) to be cleared whenever every stream reports Delayed in
// the same round.
func (m *MetaDemuxer) AddDelayedResetter(r DelayedResetter) {
	m.resetters = append(m.resetters, r)
}

// ReadClose closes every stream's ByteSource and drops them, per spec.md
// §3's StreamInfo lifecycle.
func (m *MetaDemuxer) ReadClose() {
	for _, s := range m.streams {
		if err := s.Close(); err != nil {
			m.log.Warn("error closing stream", "stream", s.StreamIndex, "error", err)
		}
	}
	m.streams = nil
}

// ReadPacket fills out with the next packet in non-decreasing DTS order
// across every configured stream, subject to each stream's time shift.
// Returns OK, NotReady, or EOF; EOFResidual is never returned to the
// caller — internally it means "this stream is done but may still have a
// flushable residual frame", resolved by flush mode once no stream is live.
func (m *MetaDemuxer) ReadPacket(out *packet.Packet) outcome.Outcome {
	for {
		selected, rez := m.refillAndSelect()
		if rez != outcome.OK {
			return rez
		}
		if selected == nil {
			if !m.flushMode {
				m.flushMode = true
				continue
			}
			return outcome.EOF
		}

		if !m.flushMode && !selected.IsEOF {
			if !selected.ReadPacket(out) {
				// The stream reported readiness but had no complete frame
				// yet (e.g. a Fragmented parser still accumulating); retry
				// the whole refill/select round rather than spin here.
				continue
			}
		} else {
			if !selected.FlushPacket(out) {
				// Nothing left to flush for this stream this round; it is
				// now fully Flushed and refillAndSelect will skip it next
				// time. Retry immediately.
				continue
			}
		}
		return outcome.OK
	}
}

// refillAndSelect runs the refill phase (pulling each non-pending stream's
// next block) followed by the selection phase (minimum LastDTS among
// eligible streams, ties by stream index). Returns the selected stream (nil
// if none is eligible this round) or a propagated NotReady.
func (m *MetaDemuxer) refillAndSelect() (*streaminfo.StreamState, outcome.Outcome) {
	for spin := 0; ; spin++ {
		if spin >= maxDelayedSpins {
			m.log.Warn("all streams delayed past spin bound, giving up this round")
			return nil, outcome.NotReady
		}

		allDelayed := true
		anyLive := false
		var selected *streaminfo.StreamState
		var minDTS int64

		for _, s := range m.streams {
			if s.Flushed {
				continue // fully drained; never eligible again
			}
			anyLive = true

			if m.flushMode {
				allDelayed = false
				if selected == nil || s.LastDTS < minDTS {
					selected, minDTS = s, s.LastDTS
				}
				continue
			}

			rez := s.Read()
			if rez == outcome.Delayed {
				continue // skip this stream, keep scanning
			}
			allDelayed = false

			if rez == outcome.NotReady {
				return nil, outcome.NotReady
			}

			if selected == nil || s.LastDTS < minDTS {
				selected, minDTS = s, s.LastDTS
			}
		}

		if !anyLive {
			return nil, outcome.OK
		}

		if !allDelayed {
			return selected, outcome.OK
		}

		// Every stream reported Delayed this round: clear the soft
		// back-pressure mark on every ContainerAdapter-backed stream and
		// retry, mirroring resetDelayedMark's role in the reference.
		m.log.Debug("all streams delayed, resetting and retrying", "spin", spin)
		for _, r := range m.resetters {
			r.ResetDelayedMark()
		}
	}
}
