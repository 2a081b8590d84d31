package engine

import "errors"

// ErrDeckExhausted is returned when a draw is attempted on an empty deck.
// The room treats it as a fatal hand fault and cancels the hand.
var ErrDeckExhausted = errors.New("deck exhausted")

// Deck is a 52-card deck permuted deterministically by a seed.
type Deck struct {
	cards [52]Card
	next  int
}

// NewDeck builds the canonical 52-card deck and shuffles it with the seed.
// The same seed always yields the same permutation.
func NewDeck(seed string) *Deck {
	d := &Deck{}
	i := 0
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}
	shuffleCards(d.cards[:], newMulberry32(seed))
	return d
}

// NewDeckFromCards builds a deck dealing the given cards in order. For tests.
func NewDeckFromCards(cards ...Card) *Deck {
	d := &Deck{}
	copy(d.cards[:], cards)
	return d
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (Card, error) {
	if d.next >= len(d.cards) {
		return Card{}, ErrDeckExhausted
	}
	c := d.cards[d.next]
	d.next++
	return c, nil
}

// Deal draws n cards.
func (d *Deck) Deal(n int) ([]Card, error) {
	if d.next+n > len(d.cards) {
		return nil, ErrDeckExhausted
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards, nil
}

// Burn discards the top card.
func (d *Deck) Burn() error {
	_, err := d.Draw()
	return err
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}

func (d *Deck) clone() *Deck {
	c := *d
	return &c
}
