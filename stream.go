package bassdts

import (
	"errors"
	"fmt"
	"runtime"
)

// StreamOption configures stream creation.
type StreamOption func(*streamOptions)

type streamOptions struct {
	offset uint64
	length uint64
	flags  Flags
}

// WithOffset starts decoding at byte offset of the file.
func WithOffset(offset uint64) StreamOption {
	return func(o *streamOptions) { o.offset = offset }
}

// WithLength limits the stream to length bytes of the file. 0, the
// default, means to the end of the file.
func WithLength(length uint64) StreamOption {
	return func(o *streamOptions) { o.length = length }
}

// WithFlags sets the stream creation flags, e.g. FlagFloat or FlagDecode.
func WithFlags(flags Flags) StreamOption {
	return func(o *streamOptions) { o.flags = flags }
}

func newStreamOptions(opts []StreamOption) streamOptions {
	var o streamOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

const opCreateStream = "create stream"

// CreateStream opens file for decoding through the loaded plugin.
//
// It does not load the plugin: with the plugin unloaded it fails like any
// other open, returning 0 and an *Error with code ErrorHandle. On engine
// failure (missing file, offset past the end of the file, unsupported
// flags) it returns 0 and an *Error with the engine's last-error code.
//
// The returned handle is owned by the caller and must be freed with the
// engine's StreamFree before the plugin is unloaded.
func (p *Plugin) CreateStream(file string, opts ...StreamOption) (StreamHandle, error) {
	o := newStreamOptions(opts)

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.createFileLocked(file, o)
}

func (p *Plugin) createFileLocked(file string, o streamOptions) (StreamHandle, error) {
	if p.handle == 0 {
		return 0, &Error{Op: opCreateStream, Code: ErrorHandle}
	}
	handle := p.engine.PluginStreamCreateFile(p.handle, file, o.offset, o.length, o.flags)
	if handle == 0 {
		return 0, engineError(p.engine, opCreateStream)
	}
	return handle, nil
}

// OpenStream opens file like CreateStream and wraps the handle in a Stream.
// The opened channel must report ChannelTypeDTS; otherwise it is freed and
// ErrUnexpectedChannelType is returned. Unload fails with ErrStreamsOpen
// until the Stream is closed.
func (p *Plugin) OpenStream(file string, opts ...StreamOption) (*Stream, error) {
	o := newStreamOptions(opts)

	p.mu.Lock()
	handle, err := p.createFileLocked(file, o)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	p.streams++
	p.mu.Unlock()

	s := newStream(p, handle, o.flags)
	if err := s.verifyType(); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenStreamMemory opens an in-memory DTS file. The offset and length
// options select a window of data. data is pinned until the Stream is
// closed and must not be modified meanwhile.
func (p *Plugin) OpenStreamMemory(data []byte, opts ...StreamOption) (*Stream, error) {
	o := newStreamOptions(opts)

	if o.offset >= uint64(len(data)) {
		return nil, &Error{Op: opCreateStream, Code: ErrorPosition}
	}
	data = data[o.offset:]
	if o.length > 0 && o.length < uint64(len(data)) {
		data = data[:o.length]
	}

	pinner := &runtime.Pinner{}
	pinner.Pin(&data[0])

	p.mu.Lock()
	if p.handle == 0 {
		p.mu.Unlock()
		pinner.Unpin()
		return nil, &Error{Op: opCreateStream, Code: ErrorHandle}
	}
	handle := p.engine.PluginStreamCreateMemory(p.handle, data, o.flags)
	if handle == 0 {
		err := engineError(p.engine, opCreateStream)
		p.mu.Unlock()
		pinner.Unpin()
		return nil, err
	}
	p.streams++
	p.mu.Unlock()

	s := newStream(p, handle, o.flags)
	s.pinner = pinner
	if err := s.verifyType(); err != nil {
		return nil, err
	}
	return s, nil
}

// verifyType checks the channel was produced by the DTS plugin and not
// another registered format. On mismatch the stream is closed.
func (s *Stream) verifyType() error {
	info, err := s.Info()
	if err != nil {
		return s.discard(err)
	}
	if info.Type != ChannelTypeDTS {
		return s.discard(fmt.Errorf("%w: got %#x (%v), want %#x", ErrUnexpectedChannelType,
			uint32(info.Type), info.Type, uint32(ChannelTypeDTS)))
	}
	return nil
}

// discard closes a stream that is never handed to the caller. If the engine
// refuses to free it, the stream stops counting against the plugin anyway;
// unloading the plugin frees its remaining channels.
func (s *Stream) discard(err error) error {
	closeErr := s.Close()
	if closeErr == nil {
		return err
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		if s.pinner != nil {
			s.pinner.Unpin()
			s.pinner = nil
		}
		s.plugin.release()
	}
	s.mu.Unlock()
	return errors.Join(err, closeErr)
}
