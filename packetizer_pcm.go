package bassdts

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/rtp"
)

// RTP payload types for L16 audio. The static types (RFC 3551) are only
// defined for 44.1kHz mono and stereo; other layouts use a dynamic type
// announced out of band, e.g. "a=rtpmap:96 L16/48000/6".
const (
	PayloadTypeL16Stereo  uint8 = 10
	PayloadTypeL16Mono    uint8 = 11
	PayloadTypeL16Dynamic uint8 = 96
)

// L16PayloadType returns the payload type for an L16 stream.
func L16PayloadType(rate, channels int) uint8 {
	if rate != 44100 {
		return PayloadTypeL16Dynamic
	}
	switch channels {
	case 1:
		return PayloadTypeL16Mono
	case 2:
		return PayloadTypeL16Stereo
	}
	return PayloadTypeL16Dynamic
}

// ErrFloatPCM is returned when float samples are handed to the L16 packetizer.
var ErrFloatPCM = errors.New("bassdts: L16 packetizer requires 16-bit PCM")

const l16SampleSize = 2

// PCMPacketizer implements RTPPacketizer for 16-bit PCM as read from a
// decode-only stream (little-endian, interleaved). Payloads are L16:
// network byte order, whole sample frames only. The RTP timestamp advances
// by one per sample frame.
type PCMPacketizer struct {
	ssrc        uint32
	payloadType uint8
	mtu         int
	channels    int
	timestamp   uint32
	sequencer   rtp.Sequencer
	mu          sync.Mutex
}

// NewPCMPacketizer creates an L16 RTP packetizer for channels interleaved
// channels.
func NewPCMPacketizer(ssrc uint32, pt uint8, mtu, channels int) (*PCMPacketizer, error) {
	if mtu <= 0 {
		mtu = DefaultMTU
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if (mtu-rtpHeaderSize)/(l16SampleSize*channels) == 0 {
		return nil, fmt.Errorf("MTU %d too small for %d channels", mtu, channels)
	}
	return &PCMPacketizer{
		ssrc:        ssrc,
		payloadType: pt,
		mtu:         mtu,
		channels:    channels,
		sequencer:   rtp.NewRandomSequencer(),
	}, nil
}

// NewStreamPacketizer creates a packetizer matching a decode stream's
// rate and channel layout. Float streams are rejected.
func NewStreamPacketizer(s *Stream, ssrc uint32, mtu int) (*PCMPacketizer, error) {
	if s.Flags().Has(FlagFloat) {
		return nil, ErrFloatPCM
	}
	info, err := s.Info()
	if err != nil {
		return nil, err
	}
	return NewPCMPacketizer(ssrc, L16PayloadType(info.Freq, info.Chans), mtu, info.Chans)
}

// Packetize converts little-endian interleaved PCM to L16 RTP packets.
func (p *PCMPacketizer) Packetize(pcm []byte) ([]*RTPPacket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameSize := l16SampleSize * p.channels
	if len(pcm)%frameSize != 0 {
		return nil, fmt.Errorf("PCM length %d is not a multiple of the %d byte frame", len(pcm), frameSize)
	}
	if len(pcm) == 0 {
		return nil, nil
	}

	maxPayload := (p.mtu - rtpHeaderSize) / frameSize * frameSize
	packets := make([]*RTPPacket, 0, (len(pcm)+maxPayload-1)/maxPayload)
	for len(pcm) > 0 {
		n := min(len(pcm), maxPayload)
		payload := make([]byte, n)
		for i := 0; i < n; i += l16SampleSize {
			binary.BigEndian.PutUint16(payload[i:], binary.LittleEndian.Uint16(pcm[i:]))
		}
		packets = append(packets, &RTPPacket{
			Header: rtp.Header{
				Version:        2,
				PayloadType:    p.payloadType,
				SequenceNumber: p.sequencer.NextSequenceNumber(),
				Timestamp:      p.timestamp,
				SSRC:           p.ssrc,
			},
			Payload: payload,
		})
		p.timestamp += uint32(n / frameSize)
		pcm = pcm[n:]
	}
	return packets, nil
}

// PacketizeToBytes converts PCM to raw RTP packet bytes.
func (p *PCMPacketizer) PacketizeToBytes(pcm []byte) ([][]byte, error) {
	packets, err := p.Packetize(pcm)
	if err != nil {
		return nil, err
	}
	result := make([][]byte, len(packets))
	for i, pkt := range packets {
		b, err := pkt.Marshal()
		if err != nil {
			return nil, err
		}
		result[i] = b
	}
	return result, nil
}

// Timestamp returns the RTP timestamp of the next packet.
func (p *PCMPacketizer) Timestamp() uint32 { p.mu.Lock(); defer p.mu.Unlock(); return p.timestamp }

// Channels returns the interleaved channel count.
func (p *PCMPacketizer) Channels() int { return p.channels }

func (p *PCMPacketizer) SetSSRC(ssrc uint32) { p.mu.Lock(); p.ssrc = ssrc; p.mu.Unlock() }
func (p *PCMPacketizer) SSRC() uint32        { p.mu.Lock(); defer p.mu.Unlock(); return p.ssrc }
func (p *PCMPacketizer) PayloadType() uint8  { p.mu.Lock(); defer p.mu.Unlock(); return p.payloadType }
func (p *PCMPacketizer) MTU() int            { p.mu.Lock(); defer p.mu.Unlock(); return p.mtu }

// PCMDepacketizer converts L16 RTP payloads back to little-endian PCM.
type PCMDepacketizer struct {
	lastTimestamp uint32
	started       bool
	mu            sync.Mutex
}

// NewPCMDepacketizer creates an L16 RTP depacketizer.
func NewPCMDepacketizer() *PCMDepacketizer {
	return &PCMDepacketizer{}
}

// Depacketize returns the packet's samples as little-endian PCM. Packets
// older than the last one accepted are dropped (nil, nil).
func (d *PCMDepacketizer) Depacketize(packet *RTPPacket) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(packet.Payload)%l16SampleSize != 0 {
		return nil, fmt.Errorf("odd L16 payload length %d", len(packet.Payload))
	}
	if d.started && packet.Timestamp != d.lastTimestamp && IsRTPTimestampOlder(packet.Timestamp, d.lastTimestamp) {
		return nil, nil
	}
	d.started = true
	d.lastTimestamp = packet.Timestamp

	pcm := make([]byte, len(packet.Payload))
	for i := 0; i < len(pcm); i += l16SampleSize {
		binary.LittleEndian.PutUint16(pcm[i:], binary.BigEndian.Uint16(packet.Payload[i:]))
	}
	return pcm, nil
}

// DepacketizeBytes processes raw RTP packet bytes.
func (d *PCMDepacketizer) DepacketizeBytes(data []byte) ([]byte, error) {
	var pkt rtp.Packet
	if err := pkt.Unmarshal(data); err != nil {
		return nil, err
	}
	return d.Depacketize(&pkt)
}

// Reset forgets the last seen timestamp.
func (d *PCMDepacketizer) Reset() {
	d.mu.Lock()
	d.started = false
	d.lastTimestamp = 0
	d.mu.Unlock()
}
