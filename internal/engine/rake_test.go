package engine

import "testing"

func TestRake(t *testing.T) {
	t.Parallel()

	cases := []struct {
		pot     int64
		percent int
		cap     int64
		rake    int64
	}{
		{1000, 5, 0, 50},
		{1000, 5, 30, 30},
		{1000, 5, 50, 50},
		{333, 5, 0, 16},
		{19, 5, 0, 0},
		{0, 5, 50, 0},
		{1000, 0, 50, 0},
		{40, 100, 0, 40},
	}

	for _, tc := range cases {
		player, rake := Rake(tc.pot, tc.percent, tc.cap)
		if rake != tc.rake {
			t.Errorf("Rake(%d, %d%%, cap %d) rake = %d, want %d", tc.pot, tc.percent, tc.cap, rake, tc.rake)
		}
		if player+rake != tc.pot {
			t.Errorf("Rake(%d, %d%%, cap %d) splits %d + %d", tc.pot, tc.percent, tc.cap, player, rake)
		}
	}
}
