package analysis

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
)

var wordPunct = regexp.MustCompile(`\w+|[^\w\s]+`)

// DefaultStopwords are common English words skipped by Tokenize.
var DefaultStopwords = makeSet(strings.Fields(`
	i me my myself we our ours ourselves you your yours yourself yourselves
	he him his himself she her hers herself it its itself they them their
	theirs themselves what which who whom this that these those am is are was
	were be been being have has had having do does did doing a an the and but
	if or because as until while of at by for with about against between into
	through during before after above below to from up down in out on off
	over under again further then once here there when where why how all any
	both each few more most other some such no nor not only own same so than
	too very s t can will just don should now
`))

func makeSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// Tokenize splits text into word and punctuation tokens, dropping
// stopwords. Stemmed tokens are lowercased.
func Tokenize(text string, stemming bool, stopwords map[string]bool) []string {
	var tokens []string
	for _, w := range wordPunct.FindAllString(text, -1) {
		if stopwords[w] {
			continue
		}
		if stemming {
			w = english.Stem(w, false)
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// matcher finds keywords in texts the same way Tokenize splits them.
type matcher struct {
	stemming bool
}

func (m matcher) normalize(word string) string {
	if m.stemming {
		return english.Stem(word, false)
	}
	return word
}

// match returns the keywords found in text. Keywords of several words
// match as a phrase.
func (m matcher) match(text string, keywords []string) []string {
	tokens := makeSet(Tokenize(text, m.stemming, DefaultStopwords))
	lower := strings.ToLower(text)

	var matched []string
	for _, k := range keywords {
		if strings.Contains(strings.TrimSpace(k), " ") {
			if strings.Contains(lower, strings.ToLower(k)) {
				matched = append(matched, k)
			}
			continue
		}
		if tokens[m.normalize(k)] {
			matched = append(matched, k)
		}
	}
	return matched
}
