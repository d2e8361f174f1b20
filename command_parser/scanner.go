package command_parser

import (
	"strings"
	"unicode"
)

type pair struct {
	key   string
	value string
}

// scanPairs walks the message and extracts Key:<Value> pairs. The key is the
// longest run of non-space characters before the colon, the colon may be
// ASCII or full-width, and the value ends at the first '>' that is followed
// (after optional whitespace) by either the end of input or another pair
// opener. Values may therefore span lines and contain '>' themselves. Text
// that belongs to no pair is skipped.
func scanPairs(content string) []pair {
	runes := []rune(content)
	var pairs []pair

	pos := 0
	for pos < len(runes) {
		if unicode.IsSpace(runes[pos]) {
			pos++
			continue
		}
		key, valueStart, ok := matchOpener(runes, pos)
		if !ok {
			pos++
			continue
		}
		value, next, ok := scanValue(runes, valueStart)
		if !ok {
			pos++
			continue
		}
		pairs = append(pairs, pair{
			key:   strings.TrimSpace(key),
			value: strings.TrimSpace(value),
		})
		pos = next
	}

	return pairs
}

// matchOpener matches `Key:<` or `Key: <` starting exactly at start, which
// must not be a space. The key is greedy: when the non-space run holds
// several colons the rightmost usable one wins.
func matchOpener(runes []rune, start int) (key string, valueStart int, ok bool) {
	runEnd := start
	for runEnd < len(runes) && !unicode.IsSpace(runes[runEnd]) {
		runEnd++
	}

	for i := runEnd - 1; i > start; i-- {
		if runes[i] != ':' && runes[i] != '：' {
			continue
		}
		if i+1 < runEnd {
			if runes[i+1] == '<' {
				return string(runes[start:i]), i + 2, true
			}
			continue
		}
		// Colon ends the run; the '<' may sit after whitespace.
		j := runEnd
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j < len(runes) && runes[j] == '<' {
			return string(runes[start:i]), j + 1, true
		}
	}

	return "", 0, false
}

// scanValue returns the value text beginning at start, delimited by the
// first '>' whose lookahead is end of input or a new pair opener.
func scanValue(runes []rune, start int) (value string, next int, ok bool) {
	for i := start; i < len(runes); i++ {
		if runes[i] != '>' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j >= len(runes) {
			return string(runes[start:i]), j, true
		}
		if _, _, opens := matchOpener(runes, j); opens {
			return string(runes[start:i]), i + 1, true
		}
	}
	return "", 0, false
}
