package bassdts

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// Session sequences an engine device, the DTS plugin and the streams opened
// through it, so that teardown always frees streams before unloading the
// plugin and unloads the plugin before freeing the device.
type Session struct {
	id     uuid.UUID
	engine Engine
	plugin *Plugin
	log    logrus.FieldLogger

	// ownsDevice is false when the device was already initialized by the
	// caller; the session then never frees it.
	ownsDevice bool

	mu      sync.Mutex
	streams []*Stream
	closed  bool
}

// NewSession checks the engine version, initializes the output device from
// cfg and loads the plugin from cfg.PluginFolder. A device the caller has
// already initialized is reused and left to the caller to free.
func NewSession(engine Engine, cfg Config, opts ...PluginOption) (*Session, error) {
	if err := CheckEngineVersion(engine); err != nil {
		return nil, err
	}
	ownsDevice := engine.Init(cfg.Device, cfg.Freq)
	if !ownsDevice {
		if err := engineError(engine, "engine init"); err.Code != ErrorAlready {
			return nil, err
		}
	}

	plugin := NewPlugin(engine, opts...)
	if _, err := plugin.Load(cfg.PluginFolder); err != nil {
		if ownsDevice {
			engine.Free()
		}
		return nil, fmt.Errorf("load %s: %w", plugin.ResolvePath(cfg.PluginFolder), err)
	}

	id := uuid.New()
	log := plugin.log.WithField("session", id.String())
	log.WithFields(logrus.Fields{
		"engine": Version(engine.Version()).String(),
		"plugin": plugin.Path(),
		"device": cfg.Device,
		"owned":  ownsDevice,
	}).Info("session opened")

	return &Session{id: id, engine: engine, plugin: plugin, log: log, ownsDevice: ownsDevice}, nil
}

// ID returns the session's unique identifier, also attached to its log
// entries.
func (s *Session) ID() string { return s.id.String() }

// Plugin returns the session's plugin.
func (s *Session) Plugin() *Plugin { return s.plugin }

// Engine returns the session's engine.
func (s *Session) Engine() Engine { return s.engine }

// Open opens a DTS file stream tracked by the session.
func (s *Session) Open(file string, opts ...StreamOption) (*Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	stream, err := s.plugin.OpenStream(file, opts...)
	if err != nil {
		return nil, err
	}
	s.streams = append(s.streams, stream)
	s.log.WithFields(logrus.Fields{"file": file, "handle": stream.Handle()}).Debug("stream opened")
	return stream, nil
}

// OpenMemory opens an in-memory DTS file tracked by the session.
func (s *Session) OpenMemory(data []byte, opts ...StreamOption) (*Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	stream, err := s.plugin.OpenStreamMemory(data, opts...)
	if err != nil {
		return nil, err
	}
	s.streams = append(s.streams, stream)
	return stream, nil
}

// Close frees every stream still open, unloads the plugin and frees the
// engine device if the session initialized it. Each stage runs only once
// the previous one has fully succeeded; on failure the session stays open
// and Close can be retried. Stream failures are reported together.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	var result *multierror.Error
	var open []*Stream
	for _, stream := range s.streams {
		err := stream.Close()
		switch {
		case err == nil, err == ErrClosed:
		case errors.Is(err, ErrorHandle):
			// Already gone inside the engine; the stream is closed.
			result = multierror.Append(result, err)
		default:
			result = multierror.Append(result, err)
			open = append(open, stream)
		}
	}
	s.streams = open
	if len(open) > 0 {
		return s.closeFailed(result)
	}

	if err := s.plugin.Unload(); err != nil {
		return s.closeFailed(multierror.Append(result, err))
	}
	if s.ownsDevice && !s.engine.Free() {
		return s.closeFailed(multierror.Append(result, engineError(s.engine, "engine free")))
	}

	s.closed = true
	if err := result.ErrorOrNil(); err != nil {
		s.log.WithError(err).Warn("session closed with errors")
		return err
	}
	s.log.Info("session closed")
	return nil
}

func (s *Session) closeFailed(result *multierror.Error) error {
	err := result.ErrorOrNil()
	s.log.WithError(err).WithField("streams", len(s.streams)).Warn("session close failed")
	return err
}
