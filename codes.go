package main

import (
	"crypto/rand"
)

// Room codes are read aloud and typed on phones, so the alphabet drops I
// and O.
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ"

const roomCodeLength = 4

// Four-letter strings the alphabet can still spell. Matching codes are
// re-rolled.
var blockedCodes = map[string]struct{}{
	"ANAL": {},
	"ANUS": {},
	"ARSE": {},
	"BUTT": {},
	"CLIT": {},
	"CRAP": {},
	"CUNT": {},
	"DAMN": {},
	"DUMB": {},
	"FUCK": {},
	"HELL": {},
	"JERK": {},
	"KUNT": {},
	"MUFF": {},
	"NAZI": {},
	"PERV": {},
	"PHUK": {},
	"RAPE": {},
	"SCAT": {},
	"SLUT": {},
	"SMUT": {},
	"TWAT": {},
	"WANK": {},
}

// randIndex returns an unbiased index into [0, n) using rejection sampling
// over crypto/rand bytes.
func randIndex(n int) int {
	if n <= 1 {
		return 0
	}

	max := byte(255 - (256 % n))
	buf := make([]byte, 8)

	for {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		for _, b := range buf {
			if b <= max {
				return int(b) % n
			}
		}
	}
}

// newRoomCode generates a room code that is neither blocklisted nor already
// live in the store.
func newRoomCode(store RoomStore) string {
	for {
		out := make([]byte, roomCodeLength)
		for i := range out {
			out[i] = roomCodeAlphabet[randIndex(len(roomCodeAlphabet))]
		}
		code := string(out)

		if _, blocked := blockedCodes[code]; blocked {
			continue
		}
		if store.Has(code) {
			continue
		}

		return code
	}
}

// shuffleNames is a Fisher-Yates shuffle over a copy of the input.
func shuffleNames(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)

	for i := len(out) - 1; i > 0; i-- {
		j := randIndex(i + 1)
		out[i], out[j] = out[j], out[i]
	}

	return out
}
