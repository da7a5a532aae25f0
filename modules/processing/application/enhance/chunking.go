package enhance

import "strings"

const (
	maxChunkChars  = 4000
	overlapChars   = 200
	minDedupWords  = 3
	maxDedupWords  = 15
)

// splitWithOverlap splits text into chunks of at most maxChars bytes,
// each chunk overlapping the previous one by roughly overlap bytes of
// context, on word boundaries. The overlap exists so an LLM sub-call sees a
// little of the preceding context; joinDedup removes the duplicated words
// again once responses are reassembled.
func splitWithOverlap(text string, maxChars, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(words) {
		end := start
		length := 0
		for end < len(words) {
			wordLen := len(words[end]) + 1
			if length+wordLen > maxChars && end > start {
				break
			}
			length += wordLen
			end++
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end >= len(words) {
			break
		}

		// Step back by roughly `overlap` characters worth of words so the
		// next chunk repeats a little of this one's tail.
		back := 0
		newStart := end
		for newStart > start && back < overlap {
			newStart--
			back += len(words[newStart]) + 1
		}
		if newStart <= start {
			newStart = end
		}
		start = newStart
	}
	return chunks
}

// joinDedup concatenates prev and next, trimming the longest run of
// duplicated words (3..15 words) where prev's tail repeats as next's head —
// the boundary artifact splitWithOverlap's overlap produces.
func joinDedup(prev, next string) string {
	if prev == "" {
		return next
	}
	if next == "" {
		return prev
	}

	prevWords := strings.Fields(prev)
	nextWords := strings.Fields(next)

	best := 0
	maxN := maxDedupWords
	if maxN > len(prevWords) {
		maxN = len(prevWords)
	}
	if maxN > len(nextWords) {
		maxN = len(nextWords)
	}
	for n := maxN; n >= minDedupWords; n-- {
		if wordsEqual(prevWords[len(prevWords)-n:], nextWords[:n]) {
			best = n
			break
		}
	}

	if best == 0 {
		return prev + " " + next
	}
	return prev + " " + strings.Join(nextWords[best:], " ")
}

func wordsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
