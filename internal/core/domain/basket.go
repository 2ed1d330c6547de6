package domain

import "time"

type BasketStatus string

const (
	BasketStatusOpen      BasketStatus = "open"
	BasketStatusSubmitted BasketStatus = "submitted"
)

type Basket struct {
	ID        string
	UserID    string // empty for anonymous baskets
	Status    BasketStatus
	Lines     []BasketLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

type BasketLine struct {
	ID        string
	BasketID  string
	ProductID string
	Quantity  int
}

func (b Basket) IsAnonymous() bool {
	return b.UserID == ""
}

func (b Basket) IsOpen() bool {
	return b.Status == BasketStatusOpen
}

// Count returns the total number of units in the basket.
func (b Basket) Count() int {
	n := 0
	for _, l := range b.Lines {
		n += l.Quantity
	}
	return n
}

func (b Basket) LineFor(productID string) (BasketLine, bool) {
	for _, l := range b.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return BasketLine{}, false
}

// LineMove describes what happens to one line of an anonymous basket when
// it is folded into an existing basket.
type LineMove struct {
	Line BasketLine
	// Into is set when the target already holds the product; the moved
	// quantity is added to it and Line is dropped.
	Into *BasketLine
}

// PlanMerge pairs every line of from with its destination in into. Total
// quantity across both baskets is preserved by the plan.
func PlanMerge(from, into Basket) []LineMove {
	merged := make(map[string]*BasketLine, len(into.Lines))
	for _, l := range into.Lines {
		l := l
		merged[l.ProductID] = &l
	}

	moves := make([]LineMove, 0, len(from.Lines))
	for _, l := range from.Lines {
		move := LineMove{Line: l}
		if existing, ok := merged[l.ProductID]; ok {
			existing.Quantity += l.Quantity
			target := *existing
			move.Into = &target
		}
		moves = append(moves, move)
	}
	return moves
}
