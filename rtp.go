package bassdts

import (
	"github.com/pion/rtp"
)

// Re-export pion/rtp types for convenience
type (
	// RTPPacket is an alias to pion's rtp.Packet
	RTPPacket = rtp.Packet

	// RTPHeader is an alias to pion's rtp.Header
	RTPHeader = rtp.Header
)

// RTPPacketizer segments decoded PCM into RTP packets.
type RTPPacketizer interface {
	// Packetize converts interleaved PCM to RTP packets.
	Packetize(pcm []byte) ([]*RTPPacket, error)

	// PacketizeToBytes converts interleaved PCM to raw RTP packet bytes.
	PacketizeToBytes(pcm []byte) ([][]byte, error)

	// SetSSRC updates the SSRC for outgoing packets.
	SetSSRC(ssrc uint32)

	// SSRC returns the current SSRC.
	SSRC() uint32

	// PayloadType returns the configured payload type.
	PayloadType() uint8

	// MTU returns the maximum transmission unit.
	MTU() int
}

// RTPWriter is an interface for writing RTP packets.
type RTPWriter interface {
	// WriteRTP writes an RTP packet.
	WriteRTP(packet *RTPPacket) error
}

// Default MTU for RTP packets (UDP safe)
const DefaultMTU = 1200

// rtpHeaderSize is the fixed RTP header size without CSRCs or extensions.
const rtpHeaderSize = 12

// IsRTPTimestampOlder returns true if ts1 is older than or equal to ts2,
// handling 32-bit wraparound correctly per RTP timestamp comparison rules.
func IsRTPTimestampOlder(ts1, ts2 uint32) bool {
	if ts1 == ts2 {
		return true
	}
	// ts1 is older if (ts2 - ts1) < 2^31
	diff := ts2 - ts1
	return diff < 0x80000000
}
