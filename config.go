package bassdts

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvLibPath    = "BASS_LIB_PATH"     // Directory containing libbass and, by default, the plugin
	EnvPluginPath = "BASS_DTS_LIB_PATH" // Directory containing the bass_dts plugin
	EnvDevice     = "BASS_DEVICE"       // Output device number (-1 = default, 0 = no sound)
	EnvFreq       = "BASS_FREQ"         // Output sample rate
)

// Config configures engine and plugin loading.
type Config struct {
	LibPath      string // Directory searched first for libbass ("" = search defaults)
	PluginFolder string // Directory of the bass_dts plugin ("" = default folder)
	Device       int    // Output device, -1 = default device, 0 = no sound
	Freq         uint32 // Output sample rate
}

// DefaultConfig returns a configuration for the default output device.
func DefaultConfig() Config {
	return Config{
		Device: -1,
		Freq:   44100,
	}
}

// ConfigFromEnv returns DefaultConfig overridden by the BASS_* environment
// variables. Malformed numeric values are ignored.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.LibPath = os.Getenv(EnvLibPath)
	cfg.PluginFolder = os.Getenv(EnvPluginPath)
	if v := os.Getenv(EnvDevice); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Device = n
		}
	}
	if v := os.Getenv(EnvFreq); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil && n > 0 {
			cfg.Freq = uint32(n)
		}
	}
	return cfg
}

// DefaultFolder returns the process-wide default plugin folder:
// BASS_DTS_LIB_PATH, then BASS_LIB_PATH, then the executable's directory.
func DefaultFolder() string {
	if dir := os.Getenv(EnvPluginPath); dir != "" {
		return dir
	}
	if dir := os.Getenv(EnvLibPath); dir != "" {
		return dir
	}
	if exe, err := os.Executable(); err == nil {
		return filepath.Dir(exe)
	}
	return "."
}

// DefaultExtension returns the platform's shared module extension, without
// the leading dot.
func DefaultExtension() string {
	return moduleExtension(runtime.GOOS)
}

func moduleExtension(goos string) string {
	switch goos {
	case "windows":
		return "dll"
	case "darwin", "ios":
		return "dylib"
	default:
		return "so"
	}
}

// moduleFileName returns the platform file name of a shared library, e.g.
// "libbass.so" or "bass.dll".
func moduleFileName(goos, name string) string {
	if goos == "windows" {
		return name + "." + moduleExtension(goos)
	}
	return "lib" + name + "." + moduleExtension(goos)
}
