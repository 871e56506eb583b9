package games

// One player creates a room and becomes the Judge; everyone else joins with a
// four-letter code and becomes a candidate
// Each candidate is dealt three dial cards: a spectrum between two anchors
// ("Homebody ↔ Never home") with a slider from 0 to 10
// Candidates privately place their own dials, then each one secretly sabotages
// the next candidate in a shuffled circle, nudging their target's dials with a
// shared budget of 8 points total
// Candidates pitch their (possibly sabotaged) profile to the Judge one at a time
// The Judge votes once; the winner is crowned and every saboteur is revealed
// alongside the before/after positions

// How to play
// - Judge creates a room, picks a category, shares the code or the QR link
// - At least two candidates must join before the game can start
// - A dropped connection can rejoin with the same name and resume mid-game
// - The Judge leaving dissolves the room for everyone

// Implementation details:
// - One websocket per client; the server is authoritative for all state
// - Every mutation pushes a per-player redacted snapshot (never diffs)
// - Hidden information (other hands, who sabotages whom) only leaves the
//   server in the phases where it is supposed to be visible
