package bassdts

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockRTPWriter implements RTPWriter for testing
type mockRTPWriter struct {
	packets []*RTPPacket
	err     error
	mu      sync.Mutex
}

func (w *mockRTPWriter) WriteRTP(packet *RTPPacket) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.packets = append(w.packets, packet)
	return nil
}

func (w *mockRTPWriter) PacketCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.packets)
}

func TestPCMPipeline(t *testing.T) {
	pkt, err := NewPCMPacketizer(1, PayloadTypeL16Stereo, 1200, 2)
	if err != nil {
		t.Fatal(err)
	}
	writer := &mockRTPWriter{}

	// 1s of stereo audio plus half a frame of trailing garbage
	pcm := append(testPCM(44100, 2), 0xAA, 0xBB)
	pipeline, err := NewPCMPipeline(PCMPipelineConfig{
		Source:     bytes.NewReader(pcm),
		Packetizer: pkt,
		Writer:     writer,
	})
	if err != nil {
		t.Fatalf("NewPCMPipeline failed: %v", err)
	}

	if err := pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	stats := pipeline.Stats()
	if stats.BytesRead != 44100*4 {
		t.Errorf("BytesRead = %d, want %d", stats.BytesRead, 44100*4)
	}
	if stats.BytesSent != stats.BytesRead {
		t.Errorf("BytesSent = %d, want %d", stats.BytesSent, stats.BytesRead)
	}
	if int(stats.PacketsSent) != writer.PacketCount() {
		t.Errorf("PacketsSent = %d, writer saw %d", stats.PacketsSent, writer.PacketCount())
	}
	if pkt.Timestamp() != 44100 {
		t.Errorf("final timestamp = %d, want 44100", pkt.Timestamp())
	}
}

func TestPCMPipelineFromStream(t *testing.T) {
	engine, plugin := newLoadedPlugin(t)
	engine.addFile("/media/short.dts", 12*4800)

	s, err := plugin.OpenStream("/media/short.dts", WithFlags(FlagDecode))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	pkt, err := NewStreamPacketizer(s, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	writer := &mockRTPWriter{}
	pipeline, err := NewPCMPipeline(PCMPipelineConfig{Source: s, Packetizer: pkt, Writer: writer})
	if err != nil {
		t.Fatal(err)
	}
	if err := pipeline.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := pipeline.Stats().BytesRead; got != 12*4800 {
		t.Errorf("BytesRead = %d, want %d", got, 12*4800)
	}
}

func TestPCMPipelineWriteError(t *testing.T) {
	pkt, _ := NewPCMPacketizer(1, PayloadTypeL16Stereo, 1200, 2)
	writeErr := errors.New("connection refused")
	pipeline, err := NewPCMPipeline(PCMPipelineConfig{
		Source:     bytes.NewReader(testPCM(4410, 2)),
		Packetizer: pkt,
		Writer:     &mockRTPWriter{err: writeErr},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := pipeline.Run(context.Background()); !errors.Is(err, writeErr) {
		t.Errorf("Run = %v, want %v", err, writeErr)
	}
}

func TestPCMPipelineCancel(t *testing.T) {
	pkt, _ := NewPCMPacketizer(1, PayloadTypeL16Stereo, 1200, 2)
	pipeline, err := NewPCMPipeline(PCMPipelineConfig{
		Source:     bytes.NewReader(testPCM(44100*10, 2)),
		Packetizer: pkt,
		Writer:     &mockRTPWriter{},
		SampleRate: 44100, // real-time pacing
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := pipeline.Run(ctx); err != context.DeadlineExceeded {
		t.Errorf("Run = %v, want DeadlineExceeded", err)
	}
	if pipeline.Stats().BytesRead >= 44100*10*4 {
		t.Error("paced pipeline consumed the whole source")
	}
}

func TestNewPCMPipelineValidation(t *testing.T) {
	pkt, _ := NewPCMPacketizer(1, PayloadTypeL16Stereo, 1200, 2)
	tests := []struct {
		name   string
		config PCMPipelineConfig
	}{
		{"no source", PCMPipelineConfig{Packetizer: pkt, Writer: &mockRTPWriter{}}},
		{"no packetizer", PCMPipelineConfig{Source: bytes.NewReader(nil), Writer: &mockRTPWriter{}}},
		{"no writer", PCMPipelineConfig{Source: bytes.NewReader(nil), Packetizer: pkt}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPCMPipeline(tt.config); err == nil {
				t.Error("expected error")
			}
		})
	}
}
