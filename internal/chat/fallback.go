package chat

import (
	"math/rand/v2"
	"strings"
)

// Intn is a source of uniformly distributed ints in [0, n).
// *rand.Rand from math/rand/v2 satisfies it.
type Intn interface {
	IntN(n int) int
}

// globalRand draws from the math/rand/v2 top-level generator, which is safe
// for concurrent use.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Fallback picks canned replies when no model output is available.
type Fallback struct {
	keywords []KeywordReply
	generic  []string
	rnd      Intn
}

// NewFallback creates a chooser over the built-in tables. A nil source uses
// the process-wide random generator.
func NewFallback(rnd Intn) *Fallback {
	return NewFallbackWithTables(keywordReplies, genericReplies, rnd)
}

// NewFallbackWithTables creates a chooser over custom tables. The keyword
// slice order is the match order.
func NewFallbackWithTables(keywords []KeywordReply, generic []string, rnd Intn) *Fallback {
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Fallback{keywords: keywords, generic: generic, rnd: rnd}
}

// Choose returns the reply of the first keyword contained in text, or a
// random generic reply when none matches.
func (f *Fallback) Choose(text string) string {
	if reply, ok := f.Match(text); ok {
		return reply
	}
	return f.Generic()
}

// Match reports the reply for the first keyword contained in text.
func (f *Fallback) Match(text string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, kr := range f.keywords {
		if strings.Contains(lower, kr.Keyword) {
			return kr.Reply, true
		}
	}
	return "", false
}

// Generic returns a uniformly random generic reply.
func (f *Fallback) Generic() string {
	if len(f.generic) == 0 {
		return ""
	}
	return f.generic[f.rnd.IntN(len(f.generic))]
}
