package bassdts

import (
	"context"
	"errors"
	"io"
	"runtime"
	"sync"
	"time"
)

// Stream owns one open DTS stream and drives it through the engine's
// generic channel API. Methods return *Error values carrying the engine's
// last-error code; the raw handle stays available through Handle for
// direct engine calls.
type Stream struct {
	plugin *Plugin
	engine Engine
	handle StreamHandle
	flags  Flags
	pinner *runtime.Pinner

	mu     sync.Mutex
	closed bool
}

func newStream(p *Plugin, handle StreamHandle, flags Flags) *Stream {
	return &Stream{
		plugin: p,
		engine: p.engine,
		handle: handle,
		flags:  flags,
	}
}

// Handle returns the engine stream handle.
func (s *Stream) Handle() StreamHandle { return s.handle }

// Flags returns the flags the stream was created with.
func (s *Stream) Flags() Flags { return s.flags }

func (s *Stream) live() (StreamHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return s.handle, nil
}

// Info returns the channel descriptor.
func (s *Stream) Info() (ChannelInfo, error) {
	h, err := s.live()
	if err != nil {
		return ChannelInfo{}, err
	}
	info, ok := s.engine.ChannelGetInfo(h)
	if !ok {
		return ChannelInfo{}, engineError(s.engine, "channel info")
	}
	return info, nil
}

// Play starts or resumes playback; restart rewinds to the beginning.
func (s *Stream) Play(restart bool) error {
	h, err := s.live()
	if err != nil {
		return err
	}
	if !s.engine.ChannelPlay(h, restart) {
		return engineError(s.engine, "channel play")
	}
	return nil
}

// Pause pauses playback.
func (s *Stream) Pause() error {
	h, err := s.live()
	if err != nil {
		return err
	}
	if !s.engine.ChannelPause(h) {
		return engineError(s.engine, "channel pause")
	}
	return nil
}

// Stop stops playback.
func (s *Stream) Stop() error {
	h, err := s.live()
	if err != nil {
		return err
	}
	if !s.engine.ChannelStop(h) {
		return engineError(s.engine, "channel stop")
	}
	return nil
}

// IsActive returns the playback state. A closed stream is stopped.
func (s *Stream) IsActive() PlaybackState {
	h, err := s.live()
	if err != nil {
		return PlaybackStopped
	}
	return s.engine.ChannelIsActive(h)
}

// Length returns the decoded length in bytes.
func (s *Stream) Length() (uint64, error) {
	h, err := s.live()
	if err != nil {
		return 0, err
	}
	n := s.engine.ChannelGetLength(h, PosByte)
	if n == invalidPosition {
		return 0, engineError(s.engine, "channel length")
	}
	return n, nil
}

// Position returns the playback position in bytes.
func (s *Stream) Position() (uint64, error) {
	h, err := s.live()
	if err != nil {
		return 0, err
	}
	n := s.engine.ChannelGetPosition(h, PosByte)
	if n == invalidPosition {
		return 0, engineError(s.engine, "channel position")
	}
	return n, nil
}

// SetPosition seeks to a byte position. The engine may land slightly after
// pos but never before it.
func (s *Stream) SetPosition(pos uint64) error {
	h, err := s.live()
	if err != nil {
		return err
	}
	if !s.engine.ChannelSetPosition(h, pos, PosByte) {
		return engineError(s.engine, "channel seek")
	}
	return nil
}

// BytesToSeconds converts a byte position to seconds. Negative on error.
func (s *Stream) BytesToSeconds(pos uint64) float64 {
	return s.engine.ChannelBytes2Seconds(s.handle, pos)
}

// SecondsToBytes converts seconds to a byte position.
func (s *Stream) SecondsToBytes(seconds float64) uint64 {
	return s.engine.ChannelSeconds2Bytes(s.handle, seconds)
}

func (s *Stream) toDuration(pos uint64, op string) (time.Duration, error) {
	sec := s.engine.ChannelBytes2Seconds(s.handle, pos)
	if sec < 0 {
		return 0, engineError(s.engine, op)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// Duration returns the stream length as a duration.
func (s *Stream) Duration() (time.Duration, error) {
	n, err := s.Length()
	if err != nil {
		return 0, err
	}
	return s.toDuration(n, "channel duration")
}

// Elapsed returns the playback position as a duration.
func (s *Stream) Elapsed() (time.Duration, error) {
	n, err := s.Position()
	if err != nil {
		return 0, err
	}
	return s.toDuration(n, "channel elapsed")
}

// Seek moves the position to d from the start of the stream.
func (s *Stream) Seek(d time.Duration) error {
	if d < 0 {
		return &Error{Op: "channel seek", Code: ErrorPosition}
	}
	h, err := s.live()
	if err != nil {
		return err
	}
	pos := s.engine.ChannelSeconds2Bytes(h, d.Seconds())
	if pos == invalidPosition {
		return engineError(s.engine, "channel seek")
	}
	return s.SetPosition(pos)
}

// Read reads decoded sample data. Only streams created with FlagDecode can
// be read; the data is 16-bit PCM, or 32-bit float with FlagFloat,
// interleaved by channel.
func (s *Stream) Read(p []byte) (int, error) {
	if !s.flags.Has(FlagDecode) {
		return 0, ErrNotDecodeChannel
	}
	h, err := s.live()
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	n := s.engine.ChannelGetData(h, p)
	if n < 0 {
		err := engineError(s.engine, "channel read")
		if err.Code == ErrorEnded {
			return 0, io.EOF
		}
		return 0, err
	}
	if n == 0 && s.engine.ChannelIsActive(h) == PlaybackStopped {
		return 0, io.EOF
	}
	return n, nil
}

// WaitStopped polls the playback state every interval until the stream
// stops or ctx is done.
func (s *Stream) WaitStopped(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if s.IsActive() == PlaybackStopped {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close frees the stream. Closing twice returns ErrClosed without calling
// the engine. If the engine reports the handle already gone (e.g. freed by
// FlagAutoFree) the stream is still marked closed.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	var err error
	if !s.engine.StreamFree(s.handle) {
		e := engineError(s.engine, "stream free")
		if !errors.Is(e, ErrorHandle) {
			return e
		}
		err = e
	}

	s.closed = true
	if s.pinner != nil {
		s.pinner.Unpin()
		s.pinner = nil
	}
	s.plugin.release()
	return err
}
