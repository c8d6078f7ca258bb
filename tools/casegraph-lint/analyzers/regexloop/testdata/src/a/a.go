package a

import "regexp"

func bad(values []string) {
	for _, v := range values {
		re := regexp.MustCompile(`@example\.com$`) // want "regexp.MustCompile called inside loop"
		_ = re.MatchString(v)
	}
}

func badCompile(values []string) {
	for _, v := range values {
		re, _ := regexp.Compile(`^\+\d+`) // want "regexp.Compile called inside loop"
		_ = re.MatchString(v)
	}
}

func badMatchString(pattern string, values []string) int {
	n := 0
	for i := 0; i < len(values); i++ {
		if ok, _ := regexp.MatchString(pattern, values[i]); ok { // want "regexp.MatchString called inside loop"
			n++
		}
	}
	return n
}

func badNested(rows [][]string) {
	for _, row := range rows {
		for _, v := range row {
			_, _ = regexp.MatchString(`\d`, v) // want "regexp.MatchString called inside loop"
		}
	}
}

func good(values []string) {
	re := regexp.MustCompile(`@example\.com$`)
	for _, v := range values {
		_ = re.MatchString(v)
	}
}

var emailRe = regexp.MustCompile(`@`)

func goodGlobal(values []string) {
	for _, v := range values {
		_ = emailRe.MatchString(v)
	}
}
