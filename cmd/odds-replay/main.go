// odds-replay recalcula o resultado de uma rodada a partir da semente revelada
// ao fim da sessão, para conferência do jogador ou do suporte.
//
//	odds-replay -game blackjack -seed 42 -bet 100 -moves hit,stand
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/radieske/casino-platform/internal/game-service/odds"
)

func main() {
	game := flag.String("game", "slots", "slots | roulette | blackjack | poker")
	seed := flag.Uint64("seed", 0, "semente da sessão")
	bet := flag.Int64("bet", 100, "aposta em centavos")
	selection := flag.String("selection", "", "aposta da roleta (red, black, odd, even, 0-36)")
	moves := flag.String("moves", "", "jogadas do blackjack separadas por vírgula")
	hands := flag.Int("hands", 2, "mãos no showdown de poker")
	evaluator := flag.String("evaluator", string(odds.EvaluatorCategory), "category | holdem")
	flag.Parse()

	a := odds.Action{Selection: *selection, Hands: *hands}
	if *moves != "" {
		a.Moves = strings.Split(*moves, ",")
	}
	out, err := odds.ResolveWith(odds.Options{PokerEvaluator: odds.Evaluator(*evaluator)},
		odds.GameType(*game), *bet, a, odds.NewSeededSource(*seed))
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	pterm.DefaultHeader.WithFullWidth().Println(fmt.Sprintf("%s  seed=%d", *game, *seed))
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows(out)).Render(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
	if out.Game != odds.Poker {
		pterm.Info.Printfln("multiplier %d, payout %d", out.Multiplier, out.Payout)
	}
}

// rows monta a tabela do resultado; a primeira linha é o cabeçalho
func rows(out odds.Outcome) [][]string {
	switch {
	case out.Slots != nil:
		r := out.Slots
		return [][]string{{"reel 1", "reel 2", "reel 3", "multiplier"}, {r.Reels[0], r.Reels[1], r.Reels[2], strconv.FormatInt(r.Multiplier, 10)}}
	case out.Roulette != nil:
		r := out.Roulette
		return [][]string{{"pocket", "color", "selection", "won"}, {strconv.Itoa(r.Pocket), r.Color, r.Selection, strconv.FormatBool(r.Won)}}
	case out.Blackjack != nil:
		r := out.Blackjack
		return [][]string{
			{"hand", "cards", "total"},
			{"player", cards(r.Player), strconv.Itoa(r.PlayerTotal)},
			{"dealer", cards(r.Dealer), strconv.Itoa(r.DealerTotal)},
			{"result", r.Result, ""},
		}
	case out.Poker != nil:
		r := out.Poker
		data := [][]string{{"hand", "hole", "score", "name", "winner"}}
		data = append(data, []string{"board", cards(r.Board[:]), "", "", ""})
		for i, h := range r.Hands {
			data = append(data, []string{strconv.Itoa(i), cards(h.Hole[:]), strconv.Itoa(h.Score), h.Name, strconv.FormatBool(contains(r.Winners, i))})
		}
		return data
	}
	return [][]string{{"game"}, {string(out.Game)}}
}

func cards(cs []odds.Card) string {
	s := make([]string, len(cs))
	for i, c := range cs {
		s[i] = c.String()
	}
	return strings.Join(s, " ")
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
