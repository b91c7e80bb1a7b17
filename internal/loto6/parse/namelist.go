package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"loto6-archive/lib/textutil"
)

const sourceIndex = "index"

// MaxRound is the highest round a published file name can carry, the name
// has room for four digits.
const MaxRound = 9999

var fileNameRe = regexp.MustCompile(`(?i)^A102(\d{4})\.CSV$`)

// NameList parses the name.txt index which lists the published CSV files,
// most recent first:
//
//	NAME	A1022062.CSV
//	NAME	A1022061.CSV
func NameList(text string) ([]string, error) {
	var names []string
	for _, line := range textutil.Lines(text) {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "NAME" {
			continue
		}
		names = append(names, fields[1])
	}
	if len(names) == 0 {
		return nil, failure(sourceIndex, reasonIndex, nil)
	}
	return names, nil
}

// RoundFromFileName extracts the round from a file name like A1022062.CSV.
func RoundFromFileName(name string) (int, error) {
	m := fileNameRe.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return 0, failure(sourceIndex, reasonRound, fmt.Errorf("unexpected file name %q", name))
	}
	round, err := strconv.Atoi(m[1])
	if err != nil || round <= 0 {
		return 0, failure(sourceIndex, reasonRound, fmt.Errorf("unexpected file name %q", name))
	}
	return round, nil
}

// FileName is the inverse of RoundFromFileName, round must be within 1 and
// MaxRound.
func FileName(round int) string {
	return fmt.Sprintf("A102%04d.CSV", round)
}

// LatestRound returns the round of the first file listed in the index.
func LatestRound(text string) (int, error) {
	names, err := NameList(text)
	if err != nil {
		return 0, err
	}
	return RoundFromFileName(names[0])
}
