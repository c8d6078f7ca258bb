package lql

import (
	"strconv"
	"strings"
)

// ToNumber extracts the first numeric run from s. Leading non-digits are
// skipped; the run is the longest sequence of digits, dots and commas that
// follows. When the run holds a dot, commas are thousands separators and a
// second dot ends the number; otherwise a single comma is the decimal
// separator. Anything unparseable yields 0.
func ToNumber(s string) float64 {
	start := strings.IndexFunc(s, isDigit)
	if start < 0 {
		return 0
	}
	end := start
	for end < len(s) && (isDigit(rune(s[end])) || s[end] == '.' || s[end] == ',') {
		end++
	}
	run := strings.TrimRight(s[start:end], ".,")

	if strings.Contains(run, ".") {
		run = strings.ReplaceAll(run, ",", "")
		if first := strings.IndexByte(run, '.'); first >= 0 {
			if second := strings.IndexByte(run[first+1:], '.'); second >= 0 {
				run = run[:first+1+second]
			}
		}
	} else {
		switch strings.Count(run, ",") {
		case 0:
		case 1:
			run = strings.Replace(run, ",", ".", 1)
		default:
			run = strings.ReplaceAll(run, ",", "")
		}
	}

	f, err := strconv.ParseFloat(run, 64)
	if err != nil {
		return 0
	}
	return f
}

// FormatNumber renders f with at least one decimal place.
func FormatNumber(f float64) string {
	out := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(out, ".eE") && out != "NaN" && !strings.Contains(out, "Inf") {
		out += ".0"
	}
	return out
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
