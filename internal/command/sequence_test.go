// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MythosMUD Contributors

package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Segment
	}{
		{"single", "say hello", []Segment{{Text: "say hello", Op: OpEnd}}},
		{
			"semicolons",
			"say one; say two; say three",
			[]Segment{
				{Text: "say one", Op: OpSeq},
				{Text: "say two", Op: OpSeq},
				{Text: "say three", Op: OpEnd},
			},
		},
		{
			"and then or",
			"go north && say made it || say blocked",
			[]Segment{
				{Text: "go north", Op: OpAnd},
				{Text: "say made it", Op: OpOr},
				{Text: "say blocked", Op: OpEnd},
			},
		},
		{
			"drops empty segments",
			"say one;; say two",
			[]Segment{
				{Text: "say one", Op: OpSeq},
				{Text: "say two", Op: OpEnd},
			},
		},
		{
			"quoted separator stays in segment",
			`say "one; two"`,
			[]Segment{{Text: `say "one; two"`, Op: OpEnd}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitChain(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitChainEmpty(t *testing.T) {
	got, err := SplitChain("   ")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSplitChainSegmentCap(t *testing.T) {
	parts := make([]string, MaxChainSegments+1)
	for i := range parts {
		parts[i] = "say hi"
	}
	_, err := SplitChain(strings.Join(parts, "; "))
	assert.Equal(t, CodeBadArguments, parseErrCode(t, err))
}

func TestChainHeads(t *testing.T) {
	assert.Equal(t, []string{"go", "say"}, ChainHeads("go north && Say hello"))
	assert.Nil(t, ChainHeads(""))
}
