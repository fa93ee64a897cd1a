package bassdts

import (
	"sync"
	"time"
)

// fakeStream is an open channel inside fakeEngine.
type fakeStream struct {
	plugin PluginHandle
	flags  Flags
	ctype  ChannelType
	length uint64
	pos    uint64
	state  PlaybackState
}

// fakeEngine is a scripted in-memory Engine. Files are registered up front
// with their decoded length; everything else follows the engine contract:
// false/zero results plus a last-error code.
type fakeEngine struct {
	mu sync.Mutex

	version     uint32
	initialized bool
	lastErr     ErrorCode

	files map[string]uint64 // path -> decoded length in bytes
	types map[string]ChannelType

	pluginPaths map[string]bool // loadable plugin files
	plugins     map[PluginHandle]string
	nextPlugin  PluginHandle
	refuseFree  bool // PluginFree fails with ErrorBusy

	streams          map[StreamHandle]*fakeStream
	nextStream       StreamHandle
	refuseStreamFree bool // StreamFree fails with ErrorBusy

	bytesPerSecond uint64
	overshoot      uint64 // bytes the position runs past a seek target

	// call counters
	loadCalls       int
	freeCalls       int
	createCalls     int
	streamFreeCalls int
	loadedPaths     []string
	lastCreateFlags Flags
	lastOffset      uint64
	lastLength      uint64
}

var _ Engine = (*fakeEngine)(nil)

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		version:        0x02041100,
		files:          make(map[string]uint64),
		types:          make(map[string]ChannelType),
		pluginPaths:    make(map[string]bool),
		plugins:        make(map[PluginHandle]string),
		streams:        make(map[StreamHandle]*fakeStream),
		nextPlugin:     0x1000,
		nextStream:     0x80000001,
		bytesPerSecond: 48000 * 2 * 6, // 48kHz, 16-bit, 5.1
	}
}

func (e *fakeEngine) addFile(path string, length uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[path] = length
}

func (e *fakeEngine) addPlugin(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pluginPaths[path] = true
}

func (e *fakeEngine) fail(code ErrorCode) {
	e.lastErr = code
}

func (e *fakeEngine) ok() { e.lastErr = ErrorOK }

func (e *fakeEngine) Init(device int, freq uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		e.fail(ErrorAlready)
		return false
	}
	if device < -1 {
		e.fail(ErrorDevice)
		return false
	}
	e.initialized = true
	e.ok()
	return true
}

func (e *fakeEngine) Free() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		e.fail(ErrorInit)
		return false
	}
	e.initialized = false
	e.ok()
	return true
}

func (e *fakeEngine) Version() uint32 { return e.version }

func (e *fakeEngine) ErrorGetCode() ErrorCode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *fakeEngine) PluginLoad(file string) PluginHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadCalls++
	e.loadedPaths = append(e.loadedPaths, file)
	if !e.pluginPaths[file] {
		e.fail(ErrorFileOpen)
		return 0
	}
	for h, p := range e.plugins {
		if p == file {
			e.fail(ErrorAlready)
			return h
		}
	}
	e.nextPlugin++
	h := e.nextPlugin
	e.plugins[h] = file
	e.ok()
	return h
}

func (e *fakeEngine) PluginFree(handle PluginHandle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.freeCalls++
	if _, ok := e.plugins[handle]; !ok {
		e.fail(ErrorHandle)
		return false
	}
	if e.refuseFree {
		e.fail(ErrorBusy)
		return false
	}
	delete(e.plugins, handle)
	// Freeing a plugin frees its streams.
	for h, s := range e.streams {
		if s.plugin == handle {
			delete(e.streams, h)
		}
	}
	e.ok()
	return true
}

func (e *fakeEngine) PluginGetInfo(handle PluginHandle) (PluginInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.plugins[handle]; !ok {
		e.fail(ErrorHandle)
		return PluginInfo{}, false
	}
	e.ok()
	return PluginInfo{
		Version: PluginVersion,
		Formats: []PluginFormat{{Type: ChannelTypeDTS, Name: "DTS file", Exts: "*.dts"}},
	}, true
}

func (e *fakeEngine) open(plugin PluginHandle, length uint64, ctype ChannelType, offset, span uint64, flags Flags) StreamHandle {
	if _, ok := e.plugins[plugin]; !ok {
		e.fail(ErrorHandle)
		return 0
	}
	if !e.initialized && !flags.Has(FlagDecode) {
		e.fail(ErrorInit)
		return 0
	}
	if offset >= length {
		e.fail(ErrorFileForm)
		return 0
	}
	length -= offset
	if span > 0 && span < length {
		length = span
	}
	if flags.Has(FlagFloat) {
		length *= 2
	}
	e.nextStream++
	h := e.nextStream
	e.streams[h] = &fakeStream{plugin: plugin, flags: flags, ctype: ctype, length: length}
	e.ok()
	return h
}

func (e *fakeEngine) PluginStreamCreateFile(plugin PluginHandle, file string, offset, length uint64, flags Flags) StreamHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.createCalls++
	e.lastCreateFlags = flags
	e.lastOffset = offset
	e.lastLength = length
	size, ok := e.files[file]
	if !ok {
		e.fail(ErrorFileOpen)
		return 0
	}
	ctype, ok := e.types[file]
	if !ok {
		ctype = ChannelTypeDTS
	}
	return e.open(plugin, size, ctype, offset, length, flags)
}

func (e *fakeEngine) PluginStreamCreateMemory(plugin PluginHandle, data []byte, flags Flags) StreamHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.createCalls++
	e.lastCreateFlags = flags
	e.lastLength = uint64(len(data))
	if len(data) == 0 {
		e.fail(ErrorEmpty)
		return 0
	}
	// Memory files decode to 16 bytes per input byte.
	return e.open(plugin, uint64(len(data))*16, ChannelTypeDTS, 0, 0, flags)
}

func (e *fakeEngine) stream(handle StreamHandle) *fakeStream {
	s, ok := e.streams[handle]
	if !ok {
		e.fail(ErrorHandle)
		return nil
	}
	e.ok()
	return s
}

func (e *fakeEngine) ChannelGetInfo(handle StreamHandle) (ChannelInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stream(handle)
	if s == nil {
		return ChannelInfo{}, false
	}
	return ChannelInfo{
		Freq:    48000,
		Chans:   6,
		Flags:   s.flags,
		Type:    s.ctype,
		OrigRes: 24,
		Plugin:  s.plugin,
	}, true
}

func (e *fakeEngine) ChannelPlay(handle StreamHandle, restart bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stream(handle)
	if s == nil {
		return false
	}
	if s.flags.Has(FlagDecode) {
		e.fail(ErrorDecode)
		return false
	}
	if restart {
		s.pos = 0
	}
	s.state = PlaybackPlaying
	return true
}

func (e *fakeEngine) ChannelPause(handle StreamHandle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stream(handle)
	if s == nil {
		return false
	}
	if s.state != PlaybackPlaying {
		e.fail(ErrorNoPlay)
		return false
	}
	s.state = PlaybackPaused
	return true
}

func (e *fakeEngine) ChannelStop(handle StreamHandle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stream(handle)
	if s == nil {
		return false
	}
	s.state = PlaybackStopped
	return true
}

func (e *fakeEngine) ChannelIsActive(handle StreamHandle) PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stream(handle)
	if s == nil {
		return PlaybackStopped
	}
	if s.flags.Has(FlagDecode) {
		if s.pos >= s.length {
			return PlaybackStopped
		}
		return PlaybackPlaying
	}
	return s.state
}

func (e *fakeEngine) ChannelGetLength(handle StreamHandle, mode PositionMode) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stream(handle)
	if s == nil {
		return invalidPosition
	}
	if mode != PosByte {
		e.fail(ErrorNotAvail)
		return invalidPosition
	}
	return s.length
}

func (e *fakeEngine) ChannelGetPosition(handle StreamHandle, mode PositionMode) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stream(handle)
	if s == nil {
		return invalidPosition
	}
	if mode != PosByte {
		e.fail(ErrorNotAvail)
		return invalidPosition
	}
	return s.pos
}

func (e *fakeEngine) ChannelSetPosition(handle StreamHandle, pos uint64, mode PositionMode) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stream(handle)
	if s == nil {
		return false
	}
	if mode != PosByte {
		e.fail(ErrorNotAvail)
		return false
	}
	if pos > s.length {
		e.fail(ErrorPosition)
		return false
	}
	s.pos = min(pos+e.overshoot, s.length)
	return true
}

func (e *fakeEngine) bps(s *fakeStream) uint64 {
	if s.flags.Has(FlagFloat) {
		return e.bytesPerSecond * 2
	}
	return e.bytesPerSecond
}

func (e *fakeEngine) ChannelBytes2Seconds(handle StreamHandle, pos uint64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stream(handle)
	if s == nil {
		return -1
	}
	return float64(pos) / float64(e.bps(s))
}

func (e *fakeEngine) ChannelSeconds2Bytes(handle StreamHandle, seconds float64) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stream(handle)
	if s == nil {
		return invalidPosition
	}
	return uint64(seconds * float64(e.bps(s)))
}

func (e *fakeEngine) ChannelGetData(handle StreamHandle, buf []byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stream(handle)
	if s == nil {
		return -1
	}
	if !s.flags.Has(FlagDecode) {
		e.fail(ErrorDecode)
		return -1
	}
	if s.pos >= s.length {
		e.fail(ErrorEnded)
		return -1
	}
	n := min(uint64(len(buf)), s.length-s.pos)
	for i := uint64(0); i < n; i++ {
		buf[i] = byte(s.pos + i)
	}
	s.pos += n
	return int(n)
}

func (e *fakeEngine) StreamFree(handle StreamHandle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.streamFreeCalls++
	if _, ok := e.streams[handle]; !ok {
		e.fail(ErrorHandle)
		return false
	}
	if e.refuseStreamFree {
		e.fail(ErrorBusy)
		return false
	}
	delete(e.streams, handle)
	e.ok()
	return true
}

func (e *fakeEngine) openStreams() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.streams)
}

// advance moves every playing output stream forward by d of audio.
func (e *fakeEngine) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.streams {
		if s.flags.Has(FlagDecode) || s.state != PlaybackPlaying {
			continue
		}
		s.pos = min(s.pos+uint64(d.Seconds()*float64(e.bps(s))), s.length)
	}
}
