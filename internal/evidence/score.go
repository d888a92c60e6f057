package evidence

// Score sums, over every requirement term (repeats included), the number of
// times that term occurs in content.
func Score(requirementTerms []string, content string) int {
	if len(requirementTerms) == 0 {
		return 0
	}
	freq := termFrequencies(content)
	score := 0
	for _, t := range requirementTerms {
		score += freq[t]
	}
	return score
}
