package odds

import "math/rand/v2"

// Source é a única fonte de aleatoriedade do motor de odds.
// *rand.Rand satisfaz a interface; testes podem injetar sequências fixas.
type Source interface {
	IntN(n int) int
	Uint64() uint64
}

// NewSeededSource devolve uma fonte determinística (PCG) para a semente.
// Mesma semente, mesma sequência: é o que permite refazer um resultado.
func NewSeededSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewSeed sorteia a semente de uma sessão nova
func NewSeed() uint64 { return rand.Uint64() }
