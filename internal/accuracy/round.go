// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package accuracy

import "github.com/shopspring/decimal"

// RoundMeters rounds to two decimal places, half up. The float is first read
// at its shortest decimal representation, so 12.345 becomes 12.35 rather
// than falling to 12.34 on its binary value.
func RoundMeters(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
