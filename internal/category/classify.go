package category

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Hashtags are an explicit author signal and outweigh prose keywords, so a
// hashtag hit scores double and the hashtag pass wins outright over the
// keyword pass.
const hashtagWeight = 2

// \w in RE2 is ASCII-only; the rule table is mostly Cyrillic, so word
// characters are spelled out as Unicode classes.
var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

// Classify assigns a category key to a post's text and title. It is a pure
// function and never fails: absence of signal resolves to the fallback.
func (t *Table) Classify(text, title string) string {
	if text == "" && title == "" {
		return FallbackKey
	}

	corpus := strings.ToLower(title + " " + text)

	if key, ok := t.classifyByHashtags(corpus); ok {
		return key
	}
	if key, ok := t.classifyByKeywords(corpus); ok {
		return key
	}
	return FallbackKey
}

// classifyByHashtags scores categories by the registered hashtags found in
// the corpus. Ties go to the first-declared category.
func (t *Table) classifyByHashtags(corpus string) (string, bool) {
	tags := hashtagPattern.FindAllString(corpus, -1)
	if len(tags) == 0 {
		return "", false
	}

	best, bestScore := -1, 0
	for i, registered := range t.hashtags {
		score := 0
		for _, tag := range tags {
			if _, ok := registered[tag]; ok {
				score += hashtagWeight
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return "", false
	}
	return t.categories[best].Key, true
}

// classifyByKeywords scores categories by whole-word keyword occurrences; a
// keyword appearing twice counts twice.
func (t *Table) classifyByKeywords(corpus string) (string, bool) {
	best, bestScore := -1, 0
	for i, kws := range t.keywords {
		score := 0
		for _, kw := range kws {
			score += wholeWordCount(corpus, kw)
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return "", false
	}
	return t.categories[best].Key, true
}

// wholeWordCount counts non-overlapping occurrences of keyword in corpus
// that are not embedded in a longer word. Both inputs must already be
// lowercased.
func wholeWordCount(corpus, keyword string) int {
	if keyword == "" {
		return 0
	}

	count := 0
	for start := 0; start < len(corpus); {
		i := strings.Index(corpus[start:], keyword)
		if i < 0 {
			break
		}
		pos := start + i
		end := pos + len(keyword)

		if boundaryBefore(corpus, pos) && boundaryAfter(corpus, end) {
			count++
			start = end
		} else {
			start = pos + 1
		}
	}
	return count
}

func boundaryBefore(s string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:pos])
	return !isWordRune(r)
}

func boundaryAfter(s string, pos int) bool {
	if pos >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[pos:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
