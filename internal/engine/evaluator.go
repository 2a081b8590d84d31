package engine

import (
	"fmt"
	"sort"
)

// HandRank enumerates the hand categories from weakest to strongest.
type HandRank int

const (
	HighCard HandRank = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns a human-readable hand description.
func (r HandRank) String() string {
	switch r {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// HandValue is the evaluation of a best five-card hand. Tiebreaks orders the
// rank-specific comparison values high to low, e.g. two pair compares
// [high pair, low pair, kicker].
type HandValue struct {
	Rank      HandRank
	Cards     []Card // the five cards, defining cards first
	Tiebreaks []int
}

// Name returns the display name of the hand category.
func (v HandValue) Name() string {
	return v.Rank.String()
}

// Evaluate finds the best five-card hand among 5 to 7 cards by checking
// every five-card subset.
func Evaluate(cards []Card) (HandValue, error) {
	n := len(cards)
	if n < 5 || n > 7 {
		return HandValue{}, fmt.Errorf("evaluate needs 5 to 7 cards, got %d", n)
	}

	var best HandValue
	first := true
	var five [5]Card
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						five[0], five[1], five[2], five[3], five[4] = cards[a], cards[b], cards[c], cards[d], cards[e]
						v := evaluateFive(five)
						if first || Compare(v, best) > 0 {
							best = v
							first = false
						}
					}
				}
			}
		}
	}
	return best, nil
}

// Compare returns the sign of a minus b: positive when a is the stronger
// hand, zero on an exact tie.
func Compare(a, b HandValue) int {
	if a.Rank != b.Rank {
		if a.Rank > b.Rank {
			return 1
		}
		return -1
	}
	for i := 0; i < len(a.Tiebreaks) && i < len(b.Tiebreaks); i++ {
		if a.Tiebreaks[i] != b.Tiebreaks[i] {
			if a.Tiebreaks[i] > b.Tiebreaks[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// evaluateFive categorizes exactly five cards.
func evaluateFive(five [5]Card) HandValue {
	cards := five[:]

	flush := true
	for i := 1; i < 5; i++ {
		if cards[i].Suit != cards[0].Suit {
			flush = false
			break
		}
	}

	values := make([]int, 5)
	for i, c := range cards {
		values[i] = int(c.Rank)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	straightHigh := straightHighCard(values)

	// counts by rank value, then groups ordered by count desc, value desc
	counts := make(map[int]int, 5)
	for _, v := range values {
		counts[v]++
	}
	type group struct{ value, count int }
	groups := make([]group, 0, len(counts))
	for v, c := range counts {
		groups = append(groups, group{v, c})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].value > groups[j].value
	})

	ordered := orderCards(cards, straightHigh)

	switch {
	case flush && straightHigh == int(Ace):
		return HandValue{Rank: RoyalFlush, Cards: ordered}
	case flush && straightHigh > 0:
		return HandValue{Rank: StraightFlush, Cards: ordered, Tiebreaks: []int{straightHigh}}
	case groups[0].count == 4:
		return HandValue{Rank: FourOfAKind, Cards: ordered, Tiebreaks: []int{groups[0].value, groups[1].value}}
	case groups[0].count == 3 && groups[1].count == 2:
		return HandValue{Rank: FullHouse, Cards: ordered, Tiebreaks: []int{groups[0].value, groups[1].value}}
	case flush:
		return HandValue{Rank: Flush, Cards: ordered, Tiebreaks: values}
	case straightHigh > 0:
		return HandValue{Rank: Straight, Cards: ordered, Tiebreaks: []int{straightHigh}}
	case groups[0].count == 3:
		return HandValue{Rank: ThreeOfAKind, Cards: ordered, Tiebreaks: []int{groups[0].value, groups[1].value, groups[2].value}}
	case groups[0].count == 2 && groups[1].count == 2:
		return HandValue{Rank: TwoPair, Cards: ordered, Tiebreaks: []int{groups[0].value, groups[1].value, groups[2].value}}
	case groups[0].count == 2:
		return HandValue{Rank: Pair, Cards: ordered, Tiebreaks: []int{groups[0].value, groups[1].value, groups[2].value, groups[3].value}}
	default:
		return HandValue{Rank: HighCard, Cards: ordered, Tiebreaks: values}
	}
}

// straightHighCard returns the high card of a straight formed by the five
// descending values, 0 if they do not form one. The wheel A-2-3-4-5 counts
// with high card 5.
func straightHighCard(desc []int) int {
	run := true
	for i := 1; i < 5; i++ {
		if desc[i] != desc[i-1]-1 {
			run = false
			break
		}
	}
	if run {
		return desc[0]
	}
	if desc[0] == int(Ace) && desc[1] == 5 && desc[2] == 4 && desc[3] == 3 && desc[4] == 2 {
		return 5
	}
	return 0
}

// orderCards arranges five cards for display: defining cards first, then
// kickers descending. A wheel straight shows as 5-4-3-2-A.
func orderCards(cards []Card, straightHigh int) []Card {
	out := make([]Card, 5)
	copy(out, cards)
	if straightHigh == 5 {
		sort.Slice(out, func(i, j int) bool {
			return wheelValue(out[i].Rank) > wheelValue(out[j].Rank)
		})
		return out
	}
	counts := make(map[Rank]int, 5)
	for _, c := range out {
		counts[c.Rank]++
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := counts[out[i].Rank], counts[out[j].Rank]
		if ci != cj {
			return ci > cj
		}
		return out[i].Rank > out[j].Rank
	})
	return out
}

func wheelValue(r Rank) int {
	if r == Ace {
		return 1
	}
	return int(r)
}
