package openinghours

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const allDayMarker = "calodobowo"

var (
	timeRangePattern = regexp.MustCompile(`(\d{1,2}[:.]\d{2})\s*-\s*(\d{1,2}[:.]\d{2})`)
	labelPattern     = regexp.MustCompile(`Dzień i godzina odbioru: (.*?)(?:\n|$)`)
)

// Day names after folding. "piatek" also covers the unaccented spelling that
// shows up in the source data.
var dayTable = map[string]Weekday{
	"poniedzialek": Monday,
	"wtorek":       Tuesday,
	"sroda":        Wednesday,
	"czwartek":     Thursday,
	"piatek":       Friday,
	"sobota":       Saturday,
	"niedziela":    Sunday,
}

// Parse extracts a weekly schedule from a raw fragment such as
// "poniedziałek - piątek 7:00 - 20:00; sobota 9:00 - 17:00". It returns nil
// when no day could be assigned.
func Parse(raw string) Schedule {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if strings.Contains(fold(raw), allDayMarker) {
		s := make(Schedule, 7)
		for d := Monday; d <= Sunday; d++ {
			s[d] = TimeRange{"00:00", "24:00"}
		}
		return s
	}

	s := make(Schedule)
	for _, clause := range strings.Split(raw, ";") {
		loc := timeRangePattern.FindStringSubmatchIndex(clause)
		if loc == nil {
			continue
		}
		open, ok := normalizeTime(clause[loc[2]:loc[3]])
		if !ok {
			continue
		}
		closing, ok := normalizeTime(clause[loc[4]:loc[5]])
		if !ok {
			continue
		}
		r := TimeRange{open, closing}

		days := strings.TrimSpace(clause[:loc[0]])
		if strings.Contains(days, "-") {
			parts := strings.Split(days, "-")
			start, ok1 := lookupDay(parts[0])
			end, ok2 := lookupDay(parts[1])
			if !ok1 || !ok2 {
				continue
			}
			// start > end would wrap past Sunday; nothing is assigned.
			for d := start; d <= end; d++ {
				s[d] = r
			}
			continue
		}
		if d, ok := lookupDay(days); ok {
			s[d] = r
		}
	}

	if len(s) == 0 {
		return nil
	}
	return s
}

// ExtractFromLabel returns the schedule fragment following the
// "Dzień i godzina odbioru:" heading of a disposal point label.
func ExtractFromLabel(label string) (string, bool) {
	m := labelPattern.FindStringSubmatch(label)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// ParseLabel is ExtractFromLabel followed by Parse.
func ParseLabel(label string) Schedule {
	raw, ok := ExtractFromLabel(label)
	if !ok {
		return nil
	}
	return Parse(raw)
}

func lookupDay(name string) (Weekday, bool) {
	d, ok := dayTable[fold(strings.TrimSpace(name))]
	return d, ok
}

func normalizeTime(token string) (string, bool) {
	token = strings.ReplaceAll(token, ".", ":")
	m, err := minutes(token)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60), true
}

// fold lower-cases s and strips Polish diacritics.
func fold(s string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		runes.Map(func(r rune) rune {
			switch r {
			case 'ł':
				return 'l'
			case 'Ł':
				return 'L'
			}
			return r
		}),
		norm.NFC,
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}
