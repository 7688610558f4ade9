package odds

import "fmt"

const Pockets = 37

var redPockets = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true, 14: true, 16: true, 18: true,
	19: true, 21: true, 23: true, 25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// Seleções aceitas; todas pagam 2 e perdem no zero
var RouletteSelections = []string{"red", "black", "odd", "even", "1-18", "19-36"}

type RouletteResult struct {
	Pocket     int    `json:"pocket"`
	Color      string `json:"color"`
	Selection  string `json:"selection"`
	Won        bool   `json:"won"`
	Multiplier int64  `json:"multiplier"`
}

func ValidSelection(sel string) bool {
	for _, s := range RouletteSelections {
		if s == sel {
			return true
		}
	}
	return false
}

func SpinRoulette(selection string, src Source) (RouletteResult, error) {
	if !ValidSelection(selection) {
		return RouletteResult{}, fmt.Errorf("%w: roulette selection %q", ErrInvalidAction, selection)
	}
	pocket := src.IntN(Pockets)
	r := RouletteResult{Pocket: pocket, Color: PocketColor(pocket), Selection: selection}
	r.Won = rouletteWins(selection, pocket)
	if r.Won {
		r.Multiplier = 2
	}
	return r, nil
}

func PocketColor(p int) string {
	switch {
	case p == 0:
		return "green"
	case redPockets[p]:
		return "red"
	}
	return "black"
}

func rouletteWins(sel string, p int) bool {
	if p == 0 {
		return false
	}
	switch sel {
	case "red":
		return redPockets[p]
	case "black":
		return !redPockets[p]
	case "odd":
		return p%2 == 1
	case "even":
		return p%2 == 0
	case "1-18":
		return p <= 18
	case "19-36":
		return p >= 19
	}
	return false
}
