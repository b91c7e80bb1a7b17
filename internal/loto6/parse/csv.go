package parse

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"loto6-archive/internal/draw"
	"loto6-archive/lib/textutil"
	"loto6-archive/lib/wareki"
)

const sourceCSV = "csv"

var (
	roundRe  = regexp.MustCompile(`第\s*(\d+)\s*回`)
	digitsRe = regexp.MustCompile(`\d+`)
)

const (
	labelNumbers = "本数字"
	labelBonus   = "ボーナス数字"
)

func readRecords(text string) ([][]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for i, field := range record {
			record[i] = textutil.Normalize(field)
		}
		records = append(records, record)
	}
	return records, nil
}

// CSV parses the per-round CSV published by Mizuho Bank. text must already
// be decoded to UTF-8.
//
//	A50,A51,A52,A53
//	第2062回ロト６,数字選択式全国自治宝くじ,令和7年12月22日,令和7年12月23日
//	B50,B51,B52,B53,B54,B55,B56,B57,B58
//	本数字,01,09,18,24,35,42,ボーナス数字,08
func CSV(text string) (draw.Result, error) {
	records, err := readRecords(strings.TrimPrefix(text, "\ufeff"))
	if err != nil {
		return draw.Result{}, failure(sourceCSV, "malformed csv", err)
	}

	var header, numbersRecord []string
	for _, record := range records {
		if len(record) == 0 {
			continue
		}
		if header == nil && roundRe.MatchString(record[0]) {
			header = record
			continue
		}
		if numbersRecord == nil && textutil.NormalizeLabel(record[0]) == labelNumbers {
			numbersRecord = record
		}
	}

	if header == nil {
		return draw.Result{}, failure(sourceCSV, reasonRound, nil)
	}
	headerText := strings.Join(header, ",")
	if strings.Contains(headerText, "ロト") && !strings.Contains(headerText, "ロト6") {
		return draw.Result{}, failure(sourceCSV, "not a loto6 result", fmt.Errorf("%q", header[0]))
	}
	round, err := strconv.Atoi(roundRe.FindStringSubmatch(header[0])[1])
	if err != nil {
		return draw.Result{}, failure(sourceCSV, reasonRound, err)
	}

	date, err := wareki.Find(strings.Join(header[1:], ","), time.UTC)
	if err != nil {
		return draw.Result{}, failure(sourceCSV, reasonDate, err)
	}

	if numbersRecord == nil {
		return draw.Result{}, failure(sourceCSV, reasonNumbers, nil)
	}
	numbers, bonus, err := numbersFromFields(numbersRecord[1:])
	if err != nil {
		return draw.Result{}, err
	}

	return draw.New(round, date, numbers, bonus)
}

// numbersFromFields reads the main numbers up to the bonus label and the
// bonus number right after it.
func numbersFromFields(fields []string) (numbers []int, bonus int, err error) {
	for i := 0; i < len(fields); i++ {
		field := fields[i]
		if textutil.NormalizeLabel(field) == labelBonus {
			if i+1 >= len(fields) {
				return nil, 0, failure(sourceCSV, reasonBonus, nil)
			}
			bonus, err = parseNumber(fields[i+1])
			if err != nil {
				return nil, 0, failure(sourceCSV, reasonBonus, err)
			}
			break
		}
		if field == "" {
			continue
		}
		n, err := parseNumber(field)
		if err != nil {
			return nil, 0, failure(sourceCSV, reasonNumbers, err)
		}
		numbers = append(numbers, n)
	}

	if len(numbers) != draw.NumbersCount {
		return nil, 0, failure(
			sourceCSV, reasonNumbers,
			fmt.Errorf("found %d of %d numbers", len(numbers), draw.NumbersCount),
		)
	}
	if bonus == 0 {
		return nil, 0, failure(sourceCSV, reasonBonus, nil)
	}
	return numbers, bonus, nil
}

// parseNumber accepts "08" as well as decorated forms like "(08)".
func parseNumber(field string) (int, error) {
	digits := digitsRe.FindString(field)
	if digits == "" {
		return 0, fmt.Errorf("%q is not a number", field)
	}
	return strconv.Atoi(digits)
}
