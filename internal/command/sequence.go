// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// MaxChainSegments bounds how many segments a single alias body may
// dispatch.
const MaxChainSegments = 8

// Chain operators. A segment's Op is the separator that FOLLOWS it, or
// OpEnd for the last segment.
const (
	OpEnd = ""
	OpSeq = ";"  // always continue
	OpAnd = "&&" // continue only on success
	OpOr  = "||" // continue only on failure
)

// Segment is one command of a chained body together with the operator
// joining it to the next segment.
type Segment struct {
	Text string
	Op   string
}

// chainLexer tokenizes command chains. Quoted spans keep separators
// inert so `say "a && b"` stays one segment.
var chainLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Sep", Pattern: `&&|\|\||;`},
	{Name: "Quoted", Pattern: `"[^"]*"|'[^']*'`},
	{Name: "Text", Pattern: `[^;&|"']+`},
	{Name: "Stray", Pattern: `[&|]`},
})

type chainPart struct {
	Value string `parser:"@Quoted | @Text | @Stray"`
}

type chainSegment struct {
	Parts []chainPart `parser:"@@+"`
}

type chainTail struct {
	Op   string        `parser:"@Sep"`
	Next *chainSegment `parser:"@@?"`
}

type commandChain struct {
	Head *chainSegment `parser:"@@?"`
	Tail []chainTail   `parser:"@@*"`
}

var chainParser = participle.MustBuild[commandChain](
	participle.Lexer(chainLexer),
)

// SplitChain splits a command body on the `;`, `&&`, and `||` separators,
// honoring single and double quotes. Empty segments (doubled separators,
// trailing separators) are dropped. Exceeding MaxChainSegments is a
// BAD_ARGUMENTS error.
func SplitChain(body string) ([]Segment, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, nil
	}

	chain, err := chainParser.ParseString("", trimmed)
	if err != nil {
		// Inputs the grammar cannot shape (lone quote, etc.) are treated
		// as a single opaque segment; the parser proper rejects them.
		return []Segment{{Text: trimmed, Op: OpEnd}}, nil
	}

	var segments []Segment
	appendSegment := func(seg *chainSegment, op string) {
		if seg == nil {
			return
		}
		var b strings.Builder
		for _, p := range seg.Parts {
			b.WriteString(p.Value)
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			return
		}
		segments = append(segments, Segment{Text: text, Op: op})
	}

	op := OpEnd
	if len(chain.Tail) > 0 {
		op = chain.Tail[0].Op
	}
	appendSegment(chain.Head, op)
	for i, tail := range chain.Tail {
		next := OpEnd
		if i+1 < len(chain.Tail) {
			next = chain.Tail[i+1].Op
		}
		appendSegment(tail.Next, next)
	}

	if len(segments) > MaxChainSegments {
		return nil, ErrBadArguments("command chain",
			"too many chained commands")
	}
	return segments, nil
}

// ChainHeads returns the first token of every segment of body. Used by the
// alias graph to find expansion targets.
func ChainHeads(body string) []string {
	segments, err := SplitChain(body)
	if err != nil || len(segments) == 0 {
		return nil
	}
	heads := make([]string, 0, len(segments))
	for _, seg := range segments {
		head, _ := splitFirstWord(seg.Text)
		if head != "" {
			heads = append(heads, strings.ToLower(head))
		}
	}
	return heads
}

// splitFirstWord splits input into the first word and remaining args.
func splitFirstWord(input string) (first, rest string) {
	input = strings.TrimLeft(input, " \t")
	if input == "" {
		return "", ""
	}
	idx := strings.IndexAny(input, " \t")
	if idx == -1 {
		return input, ""
	}
	return input[:idx], strings.TrimLeft(input[idx+1:], " \t")
}
