//go:build !darwin && !linux

package bassdts

// NativeEngine is unavailable on this platform: every call fails with
// ErrorInit.
type NativeEngine struct{}

var _ Engine = (*NativeEngine)(nil)

// NewNativeEngine always fails on this platform.
func NewNativeEngine(libPath string) (*NativeEngine, error) {
	return nil, ErrEngineUnavailable
}

// IsEngineAvailable reports false on this platform.
func IsEngineAvailable() bool { return false }

func (e *NativeEngine) LibraryPath() string                    { return "" }
func (e *NativeEngine) Init(device int, freq uint32) bool      { return false }
func (e *NativeEngine) Free() bool                             { return false }
func (e *NativeEngine) Version() uint32                        { return 0 }
func (e *NativeEngine) ErrorGetCode() ErrorCode                { return ErrorInit }
func (e *NativeEngine) PluginLoad(file string) PluginHandle    { return 0 }
func (e *NativeEngine) PluginFree(handle PluginHandle) bool    { return false }
func (e *NativeEngine) ChannelPause(handle StreamHandle) bool  { return false }
func (e *NativeEngine) ChannelStop(handle StreamHandle) bool   { return false }
func (e *NativeEngine) StreamFree(handle StreamHandle) bool    { return false }
func (e *NativeEngine) ChannelGetData(StreamHandle, []byte) int { return -1 }

func (e *NativeEngine) PluginGetInfo(handle PluginHandle) (PluginInfo, bool) {
	return PluginInfo{}, false
}

func (e *NativeEngine) PluginStreamCreateFile(PluginHandle, string, uint64, uint64, Flags) StreamHandle {
	return 0
}

func (e *NativeEngine) PluginStreamCreateMemory(PluginHandle, []byte, Flags) StreamHandle {
	return 0
}

func (e *NativeEngine) ChannelGetInfo(handle StreamHandle) (ChannelInfo, bool) {
	return ChannelInfo{}, false
}

func (e *NativeEngine) ChannelPlay(handle StreamHandle, restart bool) bool { return false }

func (e *NativeEngine) ChannelIsActive(handle StreamHandle) PlaybackState {
	return PlaybackStopped
}

func (e *NativeEngine) ChannelGetLength(StreamHandle, PositionMode) uint64 {
	return invalidPosition
}

func (e *NativeEngine) ChannelGetPosition(StreamHandle, PositionMode) uint64 {
	return invalidPosition
}

func (e *NativeEngine) ChannelSetPosition(StreamHandle, uint64, PositionMode) bool { return false }

func (e *NativeEngine) ChannelBytes2Seconds(StreamHandle, uint64) float64 { return -1 }

func (e *NativeEngine) ChannelSeconds2Bytes(StreamHandle, float64) uint64 {
	return invalidPosition
}
