// Package matching merges independently generated candidate lists into one consensus list.
package matching

import "strings"

const (
	// MinSharedTokens is the number of distinct shared words needed for two items to match.
	MinSharedTokens = 2
	// MaxResults caps every list returned by this package.
	MaxResults = 5
	// BlendPrimaryCount is how many items Blend takes from the first list.
	BlendPrimaryCount = 3
	// BlendSecondaryCount is how many items Blend takes from the second list.
	BlendSecondaryCount = 2
)

// Source reports which rule produced a merged list.
type Source string

const (
	// SourceCommon means the result came from FindCommon.
	SourceCommon Source = "common"
	// SourceBlend means FindCommon was empty and Blend was used.
	SourceBlend Source = "blend"
)

// FindCommon returns the items of listA that share at least MinSharedTokens words
// with some item of listB. Each listA item is added at most once (first match wins)
// and the result keeps listA order, truncated to MaxResults.
func FindCommon(listA, listB []string) []string {
	common := make([]string, 0, MaxResults)

	// Tokenize the lookup side once
	lookup := make([]map[string]struct{}, len(listB))
	for i, b := range listB {
		lookup[i] = tokenSet(b)
	}

	for _, a := range listA {
		tokensA := tokenSet(a)
		for _, tokensB := range lookup {
			if sharedTokens(tokensA, tokensB) >= MinSharedTokens {
				common = append(common, a)
				break
			}
		}
		if len(common) == MaxResults {
			break
		}
	}

	return common
}

// Blend takes the first BlendPrimaryCount items of listA followed by the first
// BlendSecondaryCount items of listB, truncated to MaxResults.
func Blend(listA, listB []string) []string {
	combined := make([]string, 0, MaxResults)
	combined = append(combined, head(listA, BlendPrimaryCount)...)
	combined = append(combined, head(listB, BlendSecondaryCount)...)
	return head(combined, MaxResults)
}

// Merge returns FindCommon(listA, listB) when it is non-empty and Blend(listA, listB) otherwise.
func Merge(listA, listB []string) []string {
	result, _ := MergeWithSource(listA, listB)
	return result
}

// MergeWithSource is Merge that also reports which rule produced the result.
func MergeWithSource(listA, listB []string) ([]string, Source) {
	if common := FindCommon(listA, listB); len(common) > 0 {
		return common, SourceCommon
	}
	return Blend(listA, listB), SourceBlend
}

// tokenSet lowercases s and splits it on whitespace into a set of words.
// Punctuation is kept as part of the word.
func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// sharedTokens counts the words present in both sets.
func sharedTokens(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			n++
		}
	}
	return n
}

// head returns at most n leading items of list as a fresh slice.
func head(list []string, n int) []string {
	if len(list) < n {
		n = len(list)
	}
	out := make([]string, n)
	copy(out, list[:n])
	return out
}
