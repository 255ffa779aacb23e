// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sentence

import (
	nmea "github.com/adrianmo/go-nmea"
)

// TypeUBX is the go-nmea type of u-blox proprietary $PUBX sentences.
const TypeUBX = "UBX"

// PUBX field layout for message 00 (position data).
const (
	pubxMsgID     = 0
	pubxNavStatus = 7
	pubxHAcc      = 8
	pubxVAcc      = 9
)

// PUBX is a parsed $PUBX sentence. Only message 00 fills the accuracy fields.
type PUBX struct {
	nmea.BaseSentence
	MsgID     string
	NavStatus *string
	HAcc      *float64 // meters
	VAcc      *float64 // meters
}

func parsePUBX(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	m := PUBX{BaseSentence: s, MsgID: p.String(pubxMsgID, "message id")}
	if m.MsgID != "00" {
		return m, p.Err()
	}
	if present(s.Fields, pubxNavStatus) {
		ns := p.String(pubxNavStatus, "navigation status")
		m.NavStatus = &ns
	}
	if present(s.Fields, pubxHAcc) {
		v := p.Float64(pubxHAcc, "horizontal accuracy")
		m.HAcc = &v
	}
	if present(s.Fields, pubxVAcc) {
		v := p.Float64(pubxVAcc, "vertical accuracy")
		m.VAcc = &v
	}
	return m, p.Err()
}

// present reports whether raw field i was sent. go-nmea turns an empty field
// into a zero value, so absence has to be read from the raw fields.
func present(fields []string, i int) bool {
	return i < len(fields) && fields[i] != ""
}
