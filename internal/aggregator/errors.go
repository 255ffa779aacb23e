// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package aggregator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/relabs-tech/gnss_status/internal/gps"
)

// ErrProtocol marks a sentence that was rejected as a whole. Nothing from
// it was applied.
var ErrProtocol = errors.New("protocol violation")

// ProtocolError carries the context needed to trace a bad sentence back to
// the decoder.
type ProtocolError struct {
	Kind           gps.Kind
	Reason         string
	Constellations []gps.Constellation
	Err            error
}

func (e *ProtocolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s: %s", ErrProtocol, e.Kind, e.Reason)
	if len(e.Constellations) > 0 {
		parts := make([]string, len(e.Constellations))
		for i, c := range e.Constellations {
			parts[i] = string(c)
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, ","))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ProtocolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProtocol}
	}
	return []error{ErrProtocol, e.Err}
}

// ConfigurationError wraps a failure that leaves a component unable to work
// at all (today: the accuracy projection). Callers should stop the stream.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Err.Error() }

func (e *ConfigurationError) Unwrap() error { return e.Err }
