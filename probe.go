package bassdts

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProbeResult describes a DTS file as decoded by the plugin.
type ProbeResult struct {
	Path     string
	Info     ChannelInfo
	Length   uint64 // Decoded length in bytes
	Duration time.Duration
}

// Probe opens file as a decode-only stream, reads its channel descriptor
// and length, and frees it again. The engine device is not needed.
func (p *Plugin) Probe(file string, opts ...StreamOption) (ProbeResult, error) {
	o := newStreamOptions(opts)
	opts = append(opts[:len(opts):len(opts)], WithFlags(o.flags|FlagDecode))

	s, err := p.OpenStream(file, opts...)
	if err != nil {
		return ProbeResult{}, err
	}
	defer s.Close()

	info, err := s.Info()
	if err != nil {
		return ProbeResult{}, err
	}
	length, err := s.Length()
	if err != nil {
		return ProbeResult{}, err
	}
	d, err := s.Duration()
	if err != nil {
		return ProbeResult{}, err
	}
	info.Filename = file
	return ProbeResult{Path: file, Info: info, Length: length, Duration: d}, nil
}

// ProbeMany probes paths concurrently. Results are in path order. The
// first failure cancels the remaining probes and is returned.
func (p *Plugin) ProbeMany(ctx context.Context, paths ...string) ([]ProbeResult, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	results := make([]ProbeResult, len(paths))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			r, err := p.Probe(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
