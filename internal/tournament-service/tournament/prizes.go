package tournament

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	one              = decimal.NewFromInt(1)
	defaultFractions = []decimal.Decimal{
		decimal.RequireFromString("0.5"),
		decimal.RequireFromString("0.3"),
		decimal.RequireFromString("0.15"),
		decimal.RequireFromString("0.05"),
	}
)

// DefaultPrizeStructure corta a tabela padrão em min(4, max/2) faixas e
// renormaliza; a sobra do arredondamento vai para o 1º lugar.
func DefaultPrizeStructure(maxParticipants int) []PrizeTier {
	k := maxParticipants / 2
	if k > len(defaultFractions) {
		k = len(defaultFractions)
	}
	if k < 1 {
		k = 1
	}
	total := decimal.Sum(decimal.Zero, defaultFractions[:k]...)
	out := make([]PrizeTier, k)
	acc := decimal.Zero
	for i := 0; i < k; i++ {
		f := defaultFractions[i].DivRound(total, 12)
		out[i] = PrizeTier{Rank: i + 1, Fraction: f}
		acc = acc.Add(f)
	}
	out[0].Fraction = out[0].Fraction.Add(one.Sub(acc))
	return out
}

// ValidatePrizeStructure exige faixas 1..k sem repetição, frações positivas e soma exatamente 1
func ValidatePrizeStructure(tiers []PrizeTier, maxParticipants int) error {
	if len(tiers) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidPrizeStructure)
	}
	if len(tiers) > maxParticipants {
		return fmt.Errorf("%w: more tiers than seats", ErrInvalidPrizeStructure)
	}
	seen := make(map[int]bool, len(tiers))
	sum := decimal.Zero
	for _, t := range tiers {
		if t.Rank < 1 || t.Rank > len(tiers) || seen[t.Rank] {
			return fmt.Errorf("%w: ranks must be 1..%d without gaps", ErrInvalidPrizeStructure, len(tiers))
		}
		if !t.Fraction.IsPositive() {
			return fmt.Errorf("%w: rank %d fraction must be positive", ErrInvalidPrizeStructure, t.Rank)
		}
		seen[t.Rank] = true
		sum = sum.Add(t.Fraction)
	}
	if !sum.Equal(one) {
		return fmt.Errorf("%w: fractions sum to %s", ErrInvalidPrizeStructure, sum)
	}
	return nil
}

// Prizes calcula floor(pool × fração) por faixa. A sobra do arredondamento
// vai para o 1º lugar; faixas sem colocado não são pagas.
func Prizes(pool int64, tiers []PrizeTier, ranked int) map[int]int64 {
	sorted := append([]PrizeTier(nil), tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	p := decimal.NewFromInt(pool)
	out := make(map[int]int64, len(sorted))
	var distributed int64
	for _, t := range sorted {
		amount := p.Mul(t.Fraction).Floor().IntPart()
		distributed += amount
		if t.Rank <= ranked {
			out[t.Rank] = amount
		}
	}
	if _, ok := out[1]; ok {
		out[1] += pool - distributed
	}
	return out
}
