package bassdts

import (
	"strings"
)

// PluginHandle identifies a plugin loaded into the engine's plugin registry.
// Zero means "not loaded".
type PluginHandle uint32

// StreamHandle identifies an open, decodable stream (an engine channel).
// Zero signals a failed open.
type StreamHandle uint32

// ChannelType tags which codec produced a channel.
type ChannelType uint32

// ChannelTypeDTS is the channel type registered by the bass_dts plugin.
// A stream opened through the plugin reports it in ChannelInfo.Type.
const ChannelTypeDTS ChannelType = 0x1f200

func (t ChannelType) String() string {
	switch t {
	case ChannelTypeDTS:
		return "DTS"
	case channelTypeSample:
		return "sample"
	case channelTypeStream:
		return "stream"
	default:
		return "unknown"
	}
}

const (
	channelTypeSample ChannelType = 1
	channelTypeStream ChannelType = 0x10000
)

// Flags are engine sample/stream creation flags.
type Flags uint32

const (
	FlagDefault  Flags = 0
	Flag8Bits    Flags = 0x1
	FlagMono     Flags = 0x2
	FlagLoop     Flags = 0x4
	FlagFloat    Flags = 0x100      // 32-bit floating-point sample output
	FlagPrescan  Flags = 0x20000    // Scan the whole file up front for accurate length/seeking
	FlagAutoFree Flags = 0x40000    // Free the stream when playback ends
	FlagDecode   Flags = 0x200000   // Decode only, no playback; read with ChannelGetData
	flagUnicode  Flags = 0x80000000 // File name is UTF-16 (Windows only)
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{Flag8Bits, "8bits"},
	{FlagMono, "mono"},
	{FlagLoop, "loop"},
	{FlagFloat, "float"},
	{FlagPrescan, "prescan"},
	{FlagAutoFree, "autofree"},
	{FlagDecode, "decode"},
	{flagUnicode, "unicode"},
}

// Has returns true if all specified flags are set.
func (f Flags) Has(flag Flags) bool { return f&flag == flag }

func (f Flags) String() string {
	if f == FlagDefault {
		return "default"
	}
	var parts []string
	rest := f
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
			rest &^= fn.flag
		}
	}
	if rest != 0 || len(parts) == 0 {
		parts = append(parts, "other")
	}
	return strings.Join(parts, "|")
}

// PositionMode selects the unit of a length/position query.
type PositionMode uint32

// PosByte measures positions in decoded bytes. It is the only mode the
// DTS plugin supports.
const PosByte PositionMode = 0

// PlaybackState is the result of ChannelIsActive.
type PlaybackState uint32

const (
	PlaybackStopped PlaybackState = iota
	PlaybackPlaying
	PlaybackStalled
	PlaybackPaused
	PlaybackPausedDevice
)

func (s PlaybackState) String() string {
	switch s {
	case PlaybackStopped:
		return "stopped"
	case PlaybackPlaying:
		return "playing"
	case PlaybackStalled:
		return "stalled"
	case PlaybackPaused:
		return "paused"
	case PlaybackPausedDevice:
		return "paused-device"
	default:
		return "unknown"
	}
}

// ChannelInfo describes an open channel.
type ChannelInfo struct {
	Freq     int         // Default sample rate
	Chans    int         // Channel count
	Flags    Flags       // Flags the channel was created with
	Type     ChannelType // Codec type tag
	OrigRes  int         // Original resolution in bits
	Plugin   PluginHandle
	Sample   uint32
	Filename string
}

// PluginFormat is one file format a plugin registers.
type PluginFormat struct {
	Type ChannelType
	Name string // Format description, e.g. "DTS file"
	Exts string // File extension filter, e.g. "*.dts"
}

// PluginInfo describes a loaded plugin.
type PluginInfo struct {
	Version Version
	Formats []PluginFormat
}

// Engine is the external audio engine this package sequences.
//
// Every method mirrors an engine primitive: failures are reported with a
// false/zero result and the detail is read with ErrorGetCode immediately
// after the failed call. Implementations must not panic.
type Engine interface {
	// Init initializes an output device. Device -1 is the default device,
	// 0 is the "no sound" device (decode channels only).
	Init(device int, freq uint32) bool
	// Free releases the resources of the current device.
	Free() bool
	// Version returns the engine version (major.minor.rev.build, 8 bits each).
	Version() uint32
	// ErrorGetCode returns the last-error code of the calling thread.
	ErrorGetCode() ErrorCode

	PluginLoad(file string) PluginHandle
	PluginFree(handle PluginHandle) bool
	PluginGetInfo(handle PluginHandle) (PluginInfo, bool)

	// PluginStreamCreateFile calls the plugin's own file stream constructor.
	PluginStreamCreateFile(plugin PluginHandle, file string, offset, length uint64, flags Flags) StreamHandle
	// PluginStreamCreateMemory is PluginStreamCreateFile over an in-memory
	// file. data must stay valid and pinned until the stream is freed.
	PluginStreamCreateMemory(plugin PluginHandle, data []byte, flags Flags) StreamHandle

	ChannelGetInfo(handle StreamHandle) (ChannelInfo, bool)
	ChannelPlay(handle StreamHandle, restart bool) bool
	ChannelPause(handle StreamHandle) bool
	ChannelStop(handle StreamHandle) bool
	ChannelIsActive(handle StreamHandle) PlaybackState
	// ChannelGetLength returns ^uint64(0) on failure.
	ChannelGetLength(handle StreamHandle, mode PositionMode) uint64
	// ChannelGetPosition returns ^uint64(0) on failure.
	ChannelGetPosition(handle StreamHandle, mode PositionMode) uint64
	ChannelSetPosition(handle StreamHandle, pos uint64, mode PositionMode) bool
	ChannelBytes2Seconds(handle StreamHandle, pos uint64) float64
	ChannelSeconds2Bytes(handle StreamHandle, seconds float64) uint64
	// ChannelGetData reads decoded sample data from a decode channel.
	// Returns -1 on failure.
	ChannelGetData(handle StreamHandle, buf []byte) int
	StreamFree(handle StreamHandle) bool
}

// invalidPosition is the engine's QWORD -1 failure value.
const invalidPosition = ^uint64(0)
