package bassdts

import (
	"io"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// ModuleName is the base name of the DTS plugin module.
const ModuleName = "bass_dts"

// PathResolver builds the plugin file path from a base folder, a module
// base name and a platform extension (without the leading dot).
type PathResolver func(baseFolder, moduleName, extension string) string

// DefaultPathResolver joins folder and module name and appends the extension.
func DefaultPathResolver(baseFolder, moduleName, extension string) string {
	return filepath.Join(baseFolder, moduleName) + "." + extension
}

// defaultModuleName returns the plugin's file base name for goos; shared
// libraries carry a "lib" prefix outside Windows.
func defaultModuleName(goos string) string {
	if goos == "windows" {
		return ModuleName
	}
	return "lib" + ModuleName
}

// PluginOption configures a Plugin.
type PluginOption func(*pluginOptions)

type pluginOptions struct {
	defaultFolder string
	moduleName    string
	extension     string
	resolve       PathResolver
	logger        logrus.FieldLogger
}

func defaultPluginOptions() *pluginOptions {
	return &pluginOptions{
		moduleName: defaultModuleName(runtime.GOOS),
		extension:  DefaultExtension(),
		resolve:    DefaultPathResolver,
	}
}

// WithDefaultFolder sets the folder used when Load is called without one.
// The default is DefaultFolder(), evaluated at load time.
func WithDefaultFolder(dir string) PluginOption {
	return func(o *pluginOptions) { o.defaultFolder = dir }
}

// WithModuleName overrides the plugin's file base name.
func WithModuleName(name string) PluginOption {
	return func(o *pluginOptions) { o.moduleName = name }
}

// WithExtension overrides the platform module extension.
func WithExtension(ext string) PluginOption {
	return func(o *pluginOptions) { o.extension = ext }
}

// WithPathResolver replaces the plugin path construction strategy.
func WithPathResolver(resolve PathResolver) PluginOption {
	return func(o *pluginOptions) {
		if resolve != nil {
			o.resolve = resolve
		}
	}
}

// WithLogger sets the logger for load/unload events.
func WithLogger(logger logrus.FieldLogger) PluginOption {
	return func(o *pluginOptions) { o.logger = logger }
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Plugin manages the DTS plugin's registration with an engine.
//
// One Plugin tracks one plugin handle. Load and Unload are idempotent and
// serialized by a mutex; the engine's plugin registry is not safe for
// concurrent mutation.
type Plugin struct {
	engine Engine
	opts   pluginOptions
	log    logrus.FieldLogger

	mu      sync.Mutex
	handle  PluginHandle
	path    string
	streams int // open Streams created through OpenStream
}

// NewPlugin returns an unloaded Plugin bound to engine.
func NewPlugin(engine Engine, opts ...PluginOption) *Plugin {
	o := defaultPluginOptions()
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger
	if log == nil {
		log = discardLogger()
	}
	return &Plugin{
		engine: engine,
		opts:   *o,
		log:    log.WithField("module", o.moduleName),
	}
}

// Engine returns the engine the plugin is registered with.
func (p *Plugin) Engine() Engine { return p.engine }

// ResolvePath returns the file path Load would use for folder.
func (p *Plugin) ResolvePath(folder string) string {
	if folder == "" {
		folder = p.opts.defaultFolder
	}
	if folder == "" {
		folder = DefaultFolder()
	}
	return p.opts.resolve(folder, p.opts.moduleName, p.opts.extension)
}

// Load registers the plugin with the engine. If the plugin is already
// loaded it returns the current handle without calling the engine. An
// empty folder selects the default folder.
//
// On failure the returned *Error carries the engine's last-error code.
func (p *Plugin) Load(folder string) (PluginHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != 0 {
		return p.handle, nil
	}

	path := p.ResolvePath(folder)
	handle := p.engine.PluginLoad(path)
	if handle == 0 {
		err := engineError(p.engine, "plugin load")
		p.log.WithError(err).WithField("path", path).Debug("plugin load failed")
		return 0, err
	}

	p.handle = handle
	p.path = path
	p.log.WithFields(logrus.Fields{"path": path, "handle": handle}).Debug("plugin loaded")
	return handle, nil
}

// Unload frees the plugin. Unloading an unloaded plugin is a no-op. If
// streams opened with OpenStream are still open, Unload returns
// ErrStreamsOpen without calling the engine. If the engine refuses, the
// handle is kept so the call can be retried.
func (p *Plugin) Unload() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == 0 {
		return nil
	}
	if p.streams > 0 {
		return ErrStreamsOpen
	}

	if !p.engine.PluginFree(p.handle) {
		err := engineError(p.engine, "plugin free")
		p.log.WithError(err).WithField("handle", p.handle).Debug("plugin free failed")
		return err
	}

	p.log.WithField("handle", p.handle).Debug("plugin unloaded")
	p.handle = 0
	p.path = ""
	return nil
}

// Loaded reports whether the plugin is loaded.
func (p *Plugin) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != 0
}

// Handle returns the plugin handle, 0 when not loaded.
func (p *Plugin) Handle() PluginHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

// Path returns the file the plugin was loaded from, "" when not loaded.
func (p *Plugin) Path() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path
}

// OpenStreams returns the number of open Streams created with OpenStream.
func (p *Plugin) OpenStreams() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streams
}

// Info returns the formats the loaded plugin registers.
func (p *Plugin) Info() (PluginInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == 0 {
		return PluginInfo{}, &Error{Op: "plugin info", Code: ErrorHandle}
	}
	info, ok := p.engine.PluginGetInfo(p.handle)
	if !ok {
		return PluginInfo{}, engineError(p.engine, "plugin info")
	}
	return info, nil
}

func (p *Plugin) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streams > 0 {
		p.streams--
	}
}
