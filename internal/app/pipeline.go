// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/relabs-tech/gnss_status/internal/aggregator"
	"github.com/relabs-tech/gnss_status/internal/gps"
	"github.com/relabs-tech/gnss_status/internal/logging"
	"github.com/relabs-tech/gnss_status/internal/metrics"
	"github.com/relabs-tech/gnss_status/internal/sentence"
)

// Pipeline feeds raw NMEA lines through the decoder into the aggregator.
type Pipeline struct {
	decoder *sentence.Decoder
	agg     *aggregator.Aggregator
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewPipeline(agg *aggregator.Aggregator, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		decoder: sentence.NewDecoder(),
		agg:     agg,
		metrics: m,
		logger:  logging.Module("pipeline"),
	}
}

// Process handles one line. Only errors that should stop the stream are
// returned; decode errors and rejected sentences are logged and counted.
func (p *Pipeline) Process(line string) error {
	line = strings.TrimSpace(line)
	// NMEA sentences start with '$' (or '!' for encapsulated ones)
	if line == "" || (line[0] != '$' && line[0] != '!') {
		return nil
	}

	s, err := p.decoder.Decode(line)
	if err != nil {
		p.metrics.DecodeError()
		p.logger.Debug().Err(err).Str("line", line).Msg("nmea decode error")
		return nil
	}
	if s == nil {
		return nil
	}
	p.metrics.Sentence(label(s))

	err = p.agg.Apply(s)
	var cerr *aggregator.ConfigurationError
	if errors.As(err, &cerr) {
		return err
	}
	return nil
}

// Run reads lines from r until EOF, ctx is done, or Process fails.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) error {
	type result struct {
		line string
		err  error
	}
	lines := make(chan result)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadString('\n')
			if line != "" || err != nil {
				select {
				case lines <- result{line: line, err: err}:
				case <-done:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-lines:
			if !ok {
				return nil
			}
			if res.line != "" {
				if err := p.Process(res.line); err != nil {
					return err
				}
			}
			if errors.Is(res.err, io.EOF) {
				return nil
			}
			if res.err != nil {
				return res.err
			}
		}
	}
}

func label(s gps.Sentence) string {
	if o, ok := s.(gps.Other); ok {
		return o.Type
	}
	return string(s.Kind())
}
