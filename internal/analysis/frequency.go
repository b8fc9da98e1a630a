package analysis

// Frequencies counts occurrences per topic.
func Frequencies(occurrences []TopicOccurrence) map[string]int {
	freq := make(map[string]int)
	for _, o := range occurrences {
		freq[o.Topic]++
	}
	return freq
}

func totalFrequency(freq map[string]int) int {
	total := 0
	for _, n := range freq {
		total += n
	}
	return total
}
