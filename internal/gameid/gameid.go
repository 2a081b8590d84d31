// Package gameid issues prefixed, time-sortable identifiers. An id is a short
// entity prefix joined by an underscore to a UUIDv7 encoded as 26 characters
// of Crockford base32, so ids for the same entity sort by creation time.
package gameid

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Crockford's base32 alphabet, lowercase.
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

const suffixLen = 26

// Entity prefixes.
const (
	PrefixHand        = "hand"
	PrefixPayout      = "payout"
	PrefixRoom        = "room"
	PrefixSession     = "sess"
	PrefixReservation = "rsv"
	PrefixWithdrawal  = "wd"
)

// New returns a fresh id for the given entity prefix.
func New(prefix string) string {
	u, err := uuid.NewV7()
	if err != nil {
		panic("gameid: uuid generation failed: " + err.Error())
	}
	return prefix + "_" + encode(u)
}

func NewHandID() string        { return New(PrefixHand) }
func NewPayoutID() string      { return New(PrefixPayout) }
func NewRoomID() string        { return New(PrefixRoom) }
func NewSessionID() string     { return New(PrefixSession) }
func NewReservationID() string { return New(PrefixReservation) }
func NewWithdrawalID() string  { return New(PrefixWithdrawal) }

// encode writes the 128-bit uuid as 26 base32 characters. Two zero bits pad
// the front so the 130-bit value decodes unambiguously and the first
// character never exceeds '7'.
func encode(u uuid.UUID) string {
	var out [suffixLen]byte
	for i := 0; i < suffixLen; i++ {
		start := i*5 - 2
		var v byte
		for bit := 0; bit < 5; bit++ {
			pos := start + bit
			if pos < 0 {
				continue
			}
			if u[pos/8]&(1<<(7-pos%8)) != 0 {
				v |= 1 << (4 - bit)
			}
		}
		out[i] = alphabet[v]
	}
	return string(out[:])
}

// Validate checks that id carries the expected prefix and a well-formed
// base32 suffix.
func Validate(id, prefix string) error {
	rest, ok := strings.CutPrefix(id, prefix+"_")
	if !ok {
		return fmt.Errorf("id %q does not have prefix %q", id, prefix)
	}
	if len(rest) != suffixLen {
		return fmt.Errorf("id suffix must be %d characters, got %d", suffixLen, len(rest))
	}
	if rest[0] > '7' {
		return fmt.Errorf("id suffix first character must be 0-7, got %c", rest[0])
	}
	for i := 0; i < len(rest); i++ {
		if !strings.ContainsRune(alphabet, rune(rest[i])) {
			return fmt.Errorf("invalid character %c at position %d", rest[i], i)
		}
	}
	return nil
}
