package bassdts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// PCMPipelineConfig configures a PCM send pipeline.
type PCMPipelineConfig struct {
	Source     io.Reader      // Decoded 16-bit PCM, e.g. a FlagDecode Stream
	Packetizer *PCMPacketizer // RTP packetizer
	Writer     RTPWriter      // Output writer
	SampleRate int            // Pace output in real time at this rate (0 = as fast as possible)
	ChunkMs    int            // Read size in milliseconds of audio (default 20)
}

// PCMPipelineStats provides pipeline statistics.
type PCMPipelineStats struct {
	BytesRead   uint64
	PacketsSent uint64
	BytesSent   uint64
}

// PCMPipeline handles: Stream -> PCMPacketizer -> RTPWriter
type PCMPipeline struct {
	config PCMPipelineConfig
	buf    []byte

	stats   PCMPipelineStats
	statsMu sync.Mutex
}

// NewPCMPipeline creates a new PCM send pipeline.
func NewPCMPipeline(config PCMPipelineConfig) (*PCMPipeline, error) {
	if config.Source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if config.Packetizer == nil {
		return nil, fmt.Errorf("packetizer is required")
	}
	if config.Writer == nil {
		return nil, fmt.Errorf("writer is required")
	}
	if config.ChunkMs <= 0 {
		config.ChunkMs = 20
	}

	rate := config.SampleRate
	if rate <= 0 {
		rate = 44100
	}
	frameSize := l16SampleSize * config.Packetizer.Channels()
	frames := max(rate*config.ChunkMs/1000, 1)

	return &PCMPipeline{
		config: config,
		buf:    make([]byte, frames*frameSize),
	}, nil
}

// Run pumps PCM until the source is exhausted or ctx is done. Reaching the
// end of the source is not an error.
func (p *PCMPipeline) Run(ctx context.Context) error {
	var ticker *time.Ticker
	if p.config.SampleRate > 0 {
		ticker = time.NewTicker(time.Duration(p.config.ChunkMs) * time.Millisecond)
		defer ticker.Stop()
	}

	frameSize := l16SampleSize * p.config.Packetizer.Channels()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := io.ReadFull(p.config.Source, p.buf)
		n -= n % frameSize
		if n > 0 {
			if sendErr := p.send(p.buf[:n]); sendErr != nil {
				return sendErr
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
}

func (p *PCMPipeline) send(pcm []byte) error {
	packets, err := p.config.Packetizer.Packetize(pcm)
	if err != nil {
		return err
	}
	for _, pkt := range packets {
		if err := p.config.Writer.WriteRTP(pkt); err != nil {
			return fmt.Errorf("write RTP: %w", err)
		}
		p.statsMu.Lock()
		p.stats.PacketsSent++
		p.stats.BytesSent += uint64(len(pkt.Payload))
		p.statsMu.Unlock()
	}
	p.statsMu.Lock()
	p.stats.BytesRead += uint64(len(pcm))
	p.statsMu.Unlock()
	return nil
}

// Stats returns pipeline statistics.
func (p *PCMPipeline) Stats() PCMPipelineStats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}
