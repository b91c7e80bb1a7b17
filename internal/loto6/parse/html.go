package parse

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"loto6-archive/internal/draw"
	"loto6-archive/lib/htmlutil"
	"loto6-archive/lib/wareki"

	"github.com/PuerkitoBio/goquery"
)

const sourceHTML = "html"

const (
	labelRound = "回別"
	labelDate  = "抽せん日"
)

// HTMLAll parses every result table on the drawing results page. A result
// table is any <table> with a 回別 row:
//
//	<tr><th>回別</th><td>第2062回</td></tr>
//	<tr><th>抽せん日</th><td>2025年12月22日</td></tr>
//	<tr><th>本数字</th><td>01</td><td>09</td>...</tr>
//	<tr><th>ボーナス数字</th><td>(08)</td></tr>
func HTMLAll(r io.Reader) ([]draw.Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, failure(sourceHTML, "malformed html", err)
	}

	var (
		results  []draw.Result
		firstErr error
	)
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := htmlutil.Rows(table)
		if !hasLabel(rows, labelRound) {
			return
		}
		result, err := resultFromRows(rows)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		results = append(results, result)
	})

	if len(results) == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, failure(sourceHTML, reasonTable, nil)
	}
	return results, nil
}

// HTML returns the most recent result on the drawing results page.
func HTML(r io.Reader) (draw.Result, error) {
	results, err := HTMLAll(r)
	if err != nil {
		return draw.Result{}, err
	}
	latest := results[0]
	for _, result := range results[1:] {
		if result.Round > latest.Round {
			latest = result
		}
	}
	return latest, nil
}

func hasLabel(rows []htmlutil.Row, label string) bool {
	for _, row := range rows {
		if row.Label == label {
			return true
		}
	}
	return false
}

func cellsOf(rows []htmlutil.Row, label string) []string {
	for _, row := range rows {
		if row.Label == label {
			return row.Cells
		}
	}
	return nil
}

func resultFromRows(rows []htmlutil.Row) (draw.Result, error) {
	roundText := strings.Join(cellsOf(rows, labelRound), " ")
	m := roundRe.FindStringSubmatch(roundText)
	if m == nil {
		return draw.Result{}, failure(sourceHTML, reasonRound, fmt.Errorf("%q", roundText))
	}
	round, err := strconv.Atoi(m[1])
	if err != nil {
		return draw.Result{}, failure(sourceHTML, reasonRound, err)
	}

	dateText := strings.Join(cellsOf(rows, labelDate), " ")
	date, err := wareki.Find(dateText, time.UTC)
	if err != nil {
		return draw.Result{}, failure(sourceHTML, reasonDate, err)
	}

	var numbers []int
	for _, cell := range cellsOf(rows, labelNumbers) {
		for _, digits := range digitsRe.FindAllString(cell, -1) {
			n, err := strconv.Atoi(digits)
			if err != nil {
				return draw.Result{}, failure(sourceHTML, reasonNumbers, err)
			}
			numbers = append(numbers, n)
		}
	}
	if len(numbers) != draw.NumbersCount {
		return draw.Result{}, failure(
			sourceHTML, reasonNumbers,
			fmt.Errorf("found %d of %d numbers", len(numbers), draw.NumbersCount),
		)
	}

	bonusText := strings.Join(cellsOf(rows, labelBonus), " ")
	if digitsRe.FindString(bonusText) == "" {
		return draw.Result{}, failure(sourceHTML, reasonBonus, nil)
	}
	bonus, err := parseNumber(bonusText)
	if err != nil {
		return draw.Result{}, failure(sourceHTML, reasonBonus, err)
	}

	return draw.New(round, date, numbers, bonus)
}
