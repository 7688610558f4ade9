package odds

// Símbolos em ordem de prioridade crescente; seven é o jackpot
var SlotSymbols = []string{"cherry", "lemon", "orange", "grape", "watermelon", "star", "diamond", "seven"}

var tripleMultiplier = map[string]int64{
	"seven":   100,
	"diamond": 50,
	"star":    30,
}

const (
	tripleDefault  = 20
	pairMultiplier = 5
)

type SlotsResult struct {
	Reels      [3]string `json:"reels"`
	Multiplier int64     `json:"multiplier"`
}

// SpinSlots sorteia três rolos independentes
func SpinSlots(src Source) SlotsResult {
	var r SlotsResult
	for i := range r.Reels {
		r.Reels[i] = SlotSymbols[src.IntN(len(SlotSymbols))]
	}
	r.Multiplier = slotsMultiplier(r.Reels)
	return r
}

func slotsMultiplier(reels [3]string) int64 {
	a, b, c := reels[0], reels[1], reels[2]
	switch {
	case a == b && b == c:
		if m, ok := tripleMultiplier[a]; ok {
			return m
		}
		return tripleDefault
	case a == b || b == c || a == c:
		return pairMultiplier
	}
	return 0
}
