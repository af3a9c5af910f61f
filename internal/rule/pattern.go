package rule

import (
	"regexp"
	"strings"
	"time"
)

var macroRe = regexp.MustCompile(`\$\{[^}]+\}`)

// WildcardPattern rewrites every ${...} macro in a pattern to '*', producing
// the wildcard the event stores understand. A trailing '*' is appended the
// same way the collectors do, so date-suffixed names still match.
func WildcardPattern(pattern string) string {
	if pattern == "" {
		return ""
	}
	return macroRe.ReplaceAllString(pattern, "*") + "*"
}

// TranslatePattern expands date macros in a rule's pattern against the given
// local time, applying the rule's delay code. Macros look like ${YYYYMMDD} or
// ${B1_YYYYMMDD}, where the optional prefix overrides the rule-level delay.
func TranslatePattern(r *Rule, local time.Time) string {
	if r.Pattern == "" {
		return ""
	}
	return macroRe.ReplaceAllStringFunc(r.Pattern, func(m string) string {
		body := m[2 : len(m)-1]
		code, value := r.DelayCode, r.DelayValue
		format := body
		if idx := strings.LastIndex(body, "_"); idx > 0 {
			prefix := body[:idx]
			if c, v, ok := parseDelay(prefix); ok {
				code, value = c, v
				format = body[idx+1:]
			}
		}
		day := applyDelay(local, code, value)
		return formatDateMacro(day, format)
	})
}

func parseDelay(s string) (code string, value int, ok bool) {
	if s == "T" {
		return "T", 0, true
	}
	if len(s) < 2 {
		return "", 0, false
	}
	switch s[0] {
	case 'B', 'b', 'C', 'c':
	default:
		return "", 0, false
	}
	v := 0
	for _, ch := range s[1:] {
		if ch < '0' || ch > '9' {
			return "", 0, false
		}
		v = v*10 + int(ch-'0')
	}
	return string(s[0]), v, true
}

// applyDelay shifts the local date by the delay code: B/C move back by
// business/calendar days, b/c move forward, T keeps the current date.
func applyDelay(local time.Time, code string, value int) time.Time {
	switch code {
	case "B":
		return addBusinessDays(local, -value)
	case "b":
		return addBusinessDays(local, value)
	case "C":
		return local.AddDate(0, 0, -value)
	case "c":
		return local.AddDate(0, 0, value)
	default:
		return local
	}
}

func addBusinessDays(t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	for n > 0 {
		t = t.AddDate(0, 0, step)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			n--
		}
	}
	return t
}

func formatDateMacro(day time.Time, format string) string {
	switch format {
	case "YYYYMMDD":
		return day.Format("20060102")
	case "YYYYMM":
		return day.Format("200601")
	case "YYYY":
		return day.Format("2006")
	case "MMDD":
		return day.Format("0102")
	case "MM":
		return day.Format("01")
	case "DD":
		return day.Format("02")
	default:
		return day.Format("20060102")
	}
}
