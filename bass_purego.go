//go:build darwin || linux

// NativeEngine implements Engine against libbass using purego.
//
// libbass is loaded dynamically at runtime; no cgo toolchain or headers are
// needed. The DTS plugin is registered with BASS_PluginLoad and additionally
// opened with dlopen so its own stream constructor can be called.

package bassdts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/purego"
)

var (
	bassOnce    sync.Once
	bassHandle  uintptr
	bassInitErr error
	bassLibPath string
)

// libbass function pointers
var (
	bassInit                 func(device int32, freq, flags uint32, win, clsid uintptr) int32
	bassFree                 func() int32
	bassGetVersion           func() uint32
	bassErrorGetCode         func() int32
	bassPluginLoad           func(file uintptr, flags uint32) uint32
	bassPluginFree           func(handle uint32) int32
	bassPluginGetInfo        func(handle uint32) uintptr
	bassChannelGetInfo       func(handle uint32, info uintptr) int32
	bassChannelPlay          func(handle uint32, restart int32) int32
	bassChannelPause         func(handle uint32) int32
	bassChannelStop          func(handle uint32) int32
	bassChannelIsActive      func(handle uint32) uint32
	bassChannelGetLength     func(handle, mode uint32) uint64
	bassChannelGetPosition   func(handle, mode uint32) uint64
	bassChannelSetPosition   func(handle uint32, pos uint64, mode uint32) int32
	bassChannelBytes2Seconds func(handle uint32, pos uint64) float64
	bassChannelSeconds2Bytes func(handle uint32, pos float64) uint64
	bassChannelGetData       func(handle uint32, buffer uintptr, length uint32) uint32
	bassStreamFree           func(handle uint32) int32
)

// streamCreateFileSymbol is the plugin export opening a file stream:
// HSTREAM BASS_DTS_StreamCreateFile(BOOL mem, const void *file, QWORD offset, QWORD length, DWORD flags)
const streamCreateFileSymbol = "BASS_DTS_StreamCreateFile"

type streamCreateFileFunc func(mem int32, file uintptr, offset, length uint64, flags uint32) uint32

// rawChannelInfo mirrors BASS_CHANNELINFO.
type rawChannelInfo struct {
	Freq     uint32
	Chans    uint32
	Flags    uint32
	CType    uint32
	OrigRes  uint32
	Plugin   uint32
	Sample   uint32
	Filename uintptr
}

// rawPluginInfo mirrors BASS_PLUGININFO.
type rawPluginInfo struct {
	Version uint32
	FormatC uint32
	Formats uintptr
}

// rawPluginForm mirrors BASS_PLUGINFORM.
type rawPluginForm struct {
	CType uint32
	Name  uintptr
	Exts  uintptr
}

const getDataError = 0xFFFFFFFF

// loadBass loads the libbass shared library once per process.
func loadBass(libPath string) error {
	bassOnce.Do(func() {
		bassInitErr = loadBassLib(libPath)
	})
	return bassInitErr
}

func loadBassLib(libPath string) error {
	paths := getBassLibPaths(libPath)

	var lastErr error
	for _, path := range paths {
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			bassHandle = handle
			bassLibPath = path
			loadBassSymbols()
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("%w: failed to load libbass: %v", ErrEngineUnavailable, lastErr)
	}
	return fmt.Errorf("%w: libbass not found in any standard location", ErrEngineUnavailable)
}

func getBassLibPaths(libPath string) []string {
	var paths []string

	libName := moduleFileName(runtime.GOOS, "bass")

	if libPath != "" {
		paths = append(paths, filepath.Join(libPath, libName))
	}
	if envPath := os.Getenv(EnvLibPath); envPath != "" {
		paths = append(paths, filepath.Join(envPath, libName))
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, libName),
			filepath.Join(exeDir, "..", "lib", libName),
		)
	}

	if root := findModuleRoot(); root != "" {
		paths = append(paths, filepath.Join(root, "lib", libName))
	}

	if wd, err := os.Getwd(); err == nil {
		paths = append(paths,
			filepath.Join(wd, libName),
			filepath.Join(wd, "lib", libName),
		)
	}

	// System paths
	switch runtime.GOOS {
	case "darwin":
		paths = append(paths,
			libName,
			"/usr/local/lib/"+libName,
			"/opt/homebrew/lib/"+libName,
		)
	case "linux":
		paths = append(paths,
			libName,
			"/usr/local/lib/"+libName,
			"/usr/lib/"+libName,
		)
	}

	return paths
}

func loadBassSymbols() {
	purego.RegisterLibFunc(&bassInit, bassHandle, "BASS_Init")
	purego.RegisterLibFunc(&bassFree, bassHandle, "BASS_Free")
	purego.RegisterLibFunc(&bassGetVersion, bassHandle, "BASS_GetVersion")
	purego.RegisterLibFunc(&bassErrorGetCode, bassHandle, "BASS_ErrorGetCode")

	purego.RegisterLibFunc(&bassPluginLoad, bassHandle, "BASS_PluginLoad")
	purego.RegisterLibFunc(&bassPluginFree, bassHandle, "BASS_PluginFree")
	purego.RegisterLibFunc(&bassPluginGetInfo, bassHandle, "BASS_PluginGetInfo")

	purego.RegisterLibFunc(&bassChannelGetInfo, bassHandle, "BASS_ChannelGetInfo")
	purego.RegisterLibFunc(&bassChannelPlay, bassHandle, "BASS_ChannelPlay")
	purego.RegisterLibFunc(&bassChannelPause, bassHandle, "BASS_ChannelPause")
	purego.RegisterLibFunc(&bassChannelStop, bassHandle, "BASS_ChannelStop")
	purego.RegisterLibFunc(&bassChannelIsActive, bassHandle, "BASS_ChannelIsActive")
	purego.RegisterLibFunc(&bassChannelGetLength, bassHandle, "BASS_ChannelGetLength")
	purego.RegisterLibFunc(&bassChannelGetPosition, bassHandle, "BASS_ChannelGetPosition")
	purego.RegisterLibFunc(&bassChannelSetPosition, bassHandle, "BASS_ChannelSetPosition")
	purego.RegisterLibFunc(&bassChannelBytes2Seconds, bassHandle, "BASS_ChannelBytes2Seconds")
	purego.RegisterLibFunc(&bassChannelSeconds2Bytes, bassHandle, "BASS_ChannelSeconds2Bytes")
	purego.RegisterLibFunc(&bassChannelGetData, bassHandle, "BASS_ChannelGetData")
	purego.RegisterLibFunc(&bassStreamFree, bassHandle, "BASS_StreamFree")
}

// IsEngineAvailable checks if libbass can be loaded.
func IsEngineAvailable() bool {
	return loadBass("") == nil
}

// pluginExports holds a dlopen'ed plugin module and its resolved exports.
type pluginExports struct {
	dl         uintptr
	createFile streamCreateFileFunc
}

// NativeEngine is the libbass-backed Engine.
type NativeEngine struct {
	mu      sync.Mutex
	plugins map[PluginHandle]*pluginExports

	// goErr holds a failure detected on the Go side of a call; it shadows
	// the native last-error slot until read or the next call.
	goErr atomic.Int32
}

var _ Engine = (*NativeEngine)(nil)

// NewNativeEngine loads libbass, searching libPath first.
func NewNativeEngine(libPath string) (*NativeEngine, error) {
	if err := loadBass(libPath); err != nil {
		return nil, err
	}
	return &NativeEngine{plugins: make(map[PluginHandle]*pluginExports)}, nil
}

// LibraryPath returns the path libbass was loaded from.
func (e *NativeEngine) LibraryPath() string { return bassLibPath }

func (e *NativeEngine) resetErr() { e.goErr.Store(int32(ErrorOK)) }

func (e *NativeEngine) fail(code ErrorCode) { e.goErr.Store(int32(code)) }

func (e *NativeEngine) Init(device int, freq uint32) bool {
	e.resetErr()
	return cBool(bassInit(int32(device), freq, 0, 0, 0))
}

func (e *NativeEngine) Free() bool {
	e.resetErr()
	return cBool(bassFree())
}

func (e *NativeEngine) Version() uint32 {
	return bassGetVersion()
}

func (e *NativeEngine) ErrorGetCode() ErrorCode {
	if code := ErrorCode(e.goErr.Swap(int32(ErrorOK))); code != ErrorOK {
		return code
	}
	return ErrorCode(bassErrorGetCode())
}

func (e *NativeEngine) PluginLoad(file string) PluginHandle {
	e.resetErr()

	name := cString(file)
	handle := PluginHandle(bassPluginLoad(uintptr(unsafe.Pointer(&name[0])), 0))
	runtime.KeepAlive(name)
	if handle == 0 {
		return 0
	}

	exports, err := openPluginExports(file)
	if err != nil {
		bassPluginFree(uint32(handle))
		e.fail(ErrorFileOpen)
		return 0
	}

	e.mu.Lock()
	e.plugins[handle] = exports
	e.mu.Unlock()
	return handle
}

func openPluginExports(file string) (*pluginExports, error) {
	dl, err := purego.Dlopen(file, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, err
	}
	sym, err := purego.Dlsym(dl, streamCreateFileSymbol)
	if err != nil {
		purego.Dlclose(dl)
		return nil, err
	}
	if sym == 0 {
		purego.Dlclose(dl)
		return nil, errors.New("missing " + streamCreateFileSymbol)
	}
	exports := &pluginExports{dl: dl}
	purego.RegisterFunc(&exports.createFile, sym)
	return exports, nil
}

func (e *NativeEngine) PluginFree(handle PluginHandle) bool {
	e.resetErr()
	if !cBool(bassPluginFree(uint32(handle))) {
		return false
	}

	e.mu.Lock()
	exports := e.plugins[handle]
	delete(e.plugins, handle)
	e.mu.Unlock()

	if exports != nil {
		purego.Dlclose(exports.dl)
	}
	return true
}

func (e *NativeEngine) PluginGetInfo(handle PluginHandle) (PluginInfo, bool) {
	e.resetErr()
	ptr := bassPluginGetInfo(uint32(handle))
	if ptr == 0 {
		return PluginInfo{}, false
	}

	raw := (*rawPluginInfo)(unsafe.Pointer(ptr))
	info := PluginInfo{Version: Version(raw.Version)}
	if raw.FormatC > 0 && raw.Formats != 0 {
		forms := unsafe.Slice((*rawPluginForm)(unsafe.Pointer(raw.Formats)), raw.FormatC)
		info.Formats = make([]PluginFormat, len(forms))
		for i, f := range forms {
			info.Formats[i] = PluginFormat{
				Type: ChannelType(f.CType),
				Name: goStringFromPtr(f.Name),
				Exts: goStringFromPtr(f.Exts),
			}
		}
	}
	return info, true
}

func (e *NativeEngine) exports(plugin PluginHandle) *pluginExports {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plugins[plugin]
}

func (e *NativeEngine) PluginStreamCreateFile(plugin PluginHandle, file string, offset, length uint64, flags Flags) StreamHandle {
	e.resetErr()
	exports := e.exports(plugin)
	if exports == nil {
		e.fail(ErrorHandle)
		return 0
	}

	name := cString(file)
	handle := exports.createFile(0, uintptr(unsafe.Pointer(&name[0])), offset, length, uint32(flags))
	runtime.KeepAlive(name)
	return StreamHandle(handle)
}

func (e *NativeEngine) PluginStreamCreateMemory(plugin PluginHandle, data []byte, flags Flags) StreamHandle {
	e.resetErr()
	exports := e.exports(plugin)
	if exports == nil {
		e.fail(ErrorHandle)
		return 0
	}
	if len(data) == 0 {
		e.fail(ErrorEmpty)
		return 0
	}

	return StreamHandle(exports.createFile(1, uintptr(unsafe.Pointer(&data[0])), 0, uint64(len(data)), uint32(flags)))
}

func (e *NativeEngine) ChannelGetInfo(handle StreamHandle) (ChannelInfo, bool) {
	e.resetErr()
	var raw rawChannelInfo
	if !cBool(bassChannelGetInfo(uint32(handle), uintptr(unsafe.Pointer(&raw)))) {
		return ChannelInfo{}, false
	}
	return ChannelInfo{
		Freq:     int(raw.Freq),
		Chans:    int(raw.Chans),
		Flags:    Flags(raw.Flags),
		Type:     ChannelType(raw.CType),
		OrigRes:  int(raw.OrigRes),
		Plugin:   PluginHandle(raw.Plugin),
		Sample:   raw.Sample,
		Filename: goStringFromPtr(raw.Filename),
	}, true
}

func (e *NativeEngine) ChannelPlay(handle StreamHandle, restart bool) bool {
	e.resetErr()
	return cBool(bassChannelPlay(uint32(handle), boolToC(restart)))
}

func (e *NativeEngine) ChannelPause(handle StreamHandle) bool {
	e.resetErr()
	return cBool(bassChannelPause(uint32(handle)))
}

func (e *NativeEngine) ChannelStop(handle StreamHandle) bool {
	e.resetErr()
	return cBool(bassChannelStop(uint32(handle)))
}

func (e *NativeEngine) ChannelIsActive(handle StreamHandle) PlaybackState {
	e.resetErr()
	return PlaybackState(bassChannelIsActive(uint32(handle)))
}

func (e *NativeEngine) ChannelGetLength(handle StreamHandle, mode PositionMode) uint64 {
	e.resetErr()
	return bassChannelGetLength(uint32(handle), uint32(mode))
}

func (e *NativeEngine) ChannelGetPosition(handle StreamHandle, mode PositionMode) uint64 {
	e.resetErr()
	return bassChannelGetPosition(uint32(handle), uint32(mode))
}

func (e *NativeEngine) ChannelSetPosition(handle StreamHandle, pos uint64, mode PositionMode) bool {
	e.resetErr()
	return cBool(bassChannelSetPosition(uint32(handle), pos, uint32(mode)))
}

func (e *NativeEngine) ChannelBytes2Seconds(handle StreamHandle, pos uint64) float64 {
	e.resetErr()
	return bassChannelBytes2Seconds(uint32(handle), pos)
}

func (e *NativeEngine) ChannelSeconds2Bytes(handle StreamHandle, seconds float64) uint64 {
	e.resetErr()
	return bassChannelSeconds2Bytes(uint32(handle), seconds)
}

func (e *NativeEngine) ChannelGetData(handle StreamHandle, buf []byte) int {
	e.resetErr()
	if len(buf) == 0 {
		return 0
	}
	n := bassChannelGetData(uint32(handle), uintptr(unsafe.Pointer(&buf[0])), uint32(len(buf)))
	if n == getDataError {
		return -1
	}
	return int(n)
}

func (e *NativeEngine) StreamFree(handle StreamHandle) bool {
	e.resetErr()
	return cBool(bassStreamFree(uint32(handle)))
}
