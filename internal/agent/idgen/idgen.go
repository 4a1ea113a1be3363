// Package idgen generates the two identifier kinds the engine hands out:
// retry transaction ids for timer expiries, and correlation ids for
// upstream notifications.
package idgen

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// TxIDMin and TxIDMax bound the transaction-id range a synthesized EXPIRE
// event is assigned, matching the original generator's range.
const (
	TxIDMin = 1001
	TxIDMax = 3000
)

// NewTxID returns a random transaction id in [TxIDMin, TxIDMax]. It uses
// crypto/rand rather than math/rand/v2 since the timer loop calls this
// rarely (once per expiry) and the package already avoids a global PRNG
// that would need seeding.
func NewTxID() uint16 {
	span := big.NewInt(int64(TxIDMax - TxIDMin + 1))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		// crypto/rand failing is not a condition the agent can recover
		// from meaningfully; fall back to the low end of the range
		// rather than propagating an error through every timer tick.
		return TxIDMin
	}
	return uint16(n.Int64() + TxIDMin)
}

// NewGlobalTxID returns a fresh correlation id for an upstream
// notification.
func NewGlobalTxID() string {
	return uuid.NewString()
}
