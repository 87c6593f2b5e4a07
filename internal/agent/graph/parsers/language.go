package parsers

import "unicode"

// DetectLanguage guesses the reply language from the dominant script of
// the user's message. It only needs to separate the scripts partner
// teams actually write in; Latin text defaults to English.
func DetectLanguage(text string) string {
	counts := map[string]int{}
	letters := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		switch {
		case unicode.Is(unicode.Thai, r):
			counts["Thai"]++
		case unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
			counts["Japanese"]++
		case unicode.Is(unicode.Hangul, r):
			counts["Korean"]++
		case unicode.Is(unicode.Han, r):
			counts["Chinese"]++
		case unicode.Is(unicode.Cyrillic, r):
			counts["Russian"]++
		case unicode.Is(unicode.Arabic, r):
			counts["Arabic"]++
		}
	}
	if letters == 0 {
		return "English"
	}

	best, bestCount := "English", 0
	for lang, n := range counts {
		if n > bestCount {
			best, bestCount = lang, n
		}
	}
	// Hiragana or Katakana next to Han means Japanese, not Chinese.
	if best == "Chinese" && counts["Japanese"] > 0 {
		best = "Japanese"
	}
	// Mostly Latin text with a few foreign characters stays English.
	if bestCount*5 < letters {
		return "English"
	}
	return best
}
