package engine

// Rake splits a pot into the players' share and the house share. The house
// takes percent of the pot rounded down, limited by cap when cap is
// positive.
func Rake(pot int64, percent int, cap int64) (playerPot, rake int64) {
	if percent <= 0 || pot <= 0 {
		return pot, 0
	}
	rake = pot * int64(percent) / 100
	if cap > 0 && rake > cap {
		rake = cap
	}
	return pot - rake, rake
}
