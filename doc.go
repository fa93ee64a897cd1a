// Package bassdts binds the BASS audio engine's DTS decoding plugin
// (bass_dts) to Go.
//
// Decoding, buffering and playback all happen inside the native engine and
// its plugin. This package sequences them correctly:
//   - Plugin loads and unloads the plugin into the engine's plugin registry,
//     tracking a single plugin handle
//   - Plugin.CreateStream opens a DTS file through the plugin and returns an
//     engine stream handle
//   - Stream wraps a handle with the engine's generic channel API (play,
//     seek, length, position, decode reads)
//   - Session orders setup and teardown: device, plugin, streams
//   - Plugin.Probe and Plugin.ProbeMany describe files without playing them
//
// # Architecture
//
//	Playback: Session -> Plugin.Load -> Plugin.OpenStream -> Stream.Play/Seek -> Stream.Close -> Plugin.Unload
//	Decode:   Stream (FlagDecode) -> PCMPipeline -> PCMPacketizer -> RTPWriter
//
// # Errors
//
// Engine calls fail with a false/zero result and a process-wide last-error
// code. Operations here return the handle together with an *Error holding
// that code, so
//
//	handle, err := plugin.CreateStream(path)
//	if errors.Is(err, bassdts.ErrorFileOpen) { ... }
//
// The non-failing queries Plugin.Loaded and Plugin.Handle never touch the
// engine.
//
// # Native Libraries
//
// NativeEngine loads libbass at runtime with purego (no cgo). Set
// BASS_LIB_PATH to the directory containing libbass and, unless
// BASS_DTS_LIB_PATH says otherwise, the plugin. Only Linux and macOS are
// supported; elsewhere NewNativeEngine returns ErrEngineUnavailable.
//
// Streams report ChannelTypeDTS in their ChannelInfo. Checking it is how a
// caller knows the file was opened by this plugin rather than by another
// registered format.
package bassdts
