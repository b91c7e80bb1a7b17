// Package drawtest provides deterministic, valid draw results for tests.
package drawtest

import (
	"slices"
	"time"

	"loto6-archive/internal/draw"
)

var epoch = time.Date(2000, time.October, 2, 0, 0, 0, 0, time.UTC)

// Result returns a valid result for round. Numbers step by 7 modulo 43,
// which never repeats within 7 steps since 43 is prime.
func Result(round int) draw.Result {
	numbers := make([]int, draw.NumbersCount)
	for k := range numbers {
		numbers[k] = (round+k*7)%draw.MaxNumber + 1
	}
	slices.Sort(numbers)

	return draw.Result{
		Kind:    draw.Kind,
		Round:   round,
		Date:    epoch.AddDate(0, 0, round*3).Format(time.DateOnly),
		Numbers: numbers,
		Bonus:   (round+draw.NumbersCount*7)%draw.MaxNumber + 1,
	}
}

// Aggregate returns results for rounds from..to (inclusive) in descending order.
func Aggregate(from, to int) []draw.Result {
	var out []draw.Result
	for round := to; round >= from; round-- {
		out = append(out, Result(round))
	}
	return out
}

// Rounds extracts the round numbers of results in order.
func Rounds(results []draw.Result) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Round
	}
	return out
}
