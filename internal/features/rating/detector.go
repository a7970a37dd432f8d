// Package rating (detector.go) находит в тексте сумму (+N / -N) и смех.
package rating

import (
	"regexp"
	"strconv"
	"strings"
)

var amountRe = regexp.MustCompile(`[+-]\d+`)

// ParseAmount ищет первую сумму вида +N или -N в любом месте текста.
// Если суммы нет или она не влезает в int64: ok=false.
func ParseAmount(text string) (int64, bool) {
	m := amountRe.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var laughWords = map[string]struct{}{
	"лол":  {},
	"ору":  {},
	"кек":  {},
	"ржу":  {},
	"lol":  {},
	"lmao": {},
	"rofl": {},
}

var laughFragments = []string{"ахах", "хаха", "😂", "🤣"}

// IsLaughter проверяет, смеётся ли автор сообщения.
func IsLaughter(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}
	for _, f := range laughFragments {
		if strings.Contains(t, f) {
			return true
		}
	}
	for _, w := range strings.Fields(t) {
		w = strings.Trim(w, "!?.,;:)(")
		if _, ok := laughWords[w]; ok {
			return true
		}
	}
	return false
}
