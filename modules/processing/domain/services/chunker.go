package services

import (
	"math"
	"sort"
	"strings"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
)

// ChunkBoundary is one computed chunk slot's time range, before object keys
// are allocated for it.
type ChunkBoundary struct {
	Index    int
	StartSec float64
	EndSec   float64
}

// PlanBoundaries computes chunk boundaries for a source of durationSec,
// split into chunks of chunkDurationSec with overlapDurationSec trailing
// overlap. It satisfies invariant I1 (length = ceil(dur/chunkDur)) and I2
// (dense, unique indices [0,N)). The final chunk is trimmed to durationSec;
// the exact trimming of non-final chunks is left to the Transcoder per
// spec, so EndSec here is the nominal (untrimmed-by-transcoder) boundary.
func PlanBoundaries(durationSec float64, chunkDurationSec, overlapDurationSec int) []ChunkBoundary {
	if durationSec <= 0 || chunkDurationSec <= 0 {
		return nil
	}
	n := int(math.Ceil(durationSec / float64(chunkDurationSec)))
	boundaries := make([]ChunkBoundary, n)
	for i := 0; i < n; i++ {
		start := float64(i * chunkDurationSec)
		end := math.Min(float64((i+1)*chunkDurationSec+overlapDurationSec), durationSec)
		boundaries[i] = ChunkBoundary{Index: i, StartSec: start, EndSec: end}
	}
	return boundaries
}

// wordGapTolerance is the 100ms tolerance invariant I3 allows when dedup'ing
// the word-level merge.
const wordGapTolerance = 0.1

// MergeChunks reassembles one transcript from a set of per-chunk
// transcription results, restoring chunk order by Index first (§5
// "ordering... within step 4, chunk ordering is restored by index before
// merge"). It picks word-level merge when every chunk carries Words, and
// falls back to text-level merge otherwise.
func MergeChunks(chunks []entities.TranscribedChunk, overlapDurationSec int) entities.TranscriptBundle {
	ordered := make([]entities.TranscribedChunk, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	if allHaveWords(ordered) {
		return mergeWordLevel(ordered)
	}
	return mergeTextLevel(ordered, overlapDurationSec)
}

func allHaveWords(chunks []entities.TranscribedChunk) bool {
	if len(chunks) == 0 {
		return false
	}
	for _, c := range chunks {
		if len(c.Words) == 0 {
			return false
		}
	}
	return true
}

// mergeWordLevel concatenates all words, sorts by start, and retains w iff
// w.start >= prev.end - 0.1s (invariants I3, P2, P3).
func mergeWordLevel(chunks []entities.TranscribedChunk) entities.TranscriptBundle {
	var all []entities.Word
	for _, c := range chunks {
		all = append(all, c.Words...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Start < all[j].Start })

	retained := make([]entities.Word, 0, len(all))
	for _, w := range all {
		if len(retained) == 0 || w.Start >= retained[len(retained)-1].End-wordGapTolerance {
			retained = append(retained, w)
		}
	}

	words := make([]string, len(retained))
	for i, w := range retained {
		words[i] = w.Word
	}
	text := strings.Join(words, " ")

	return entities.TranscriptBundle{
		Text:       text,
		TotalWords: wordCount(text),
		Words:      retained,
	}
}

// mergeTextLevel trims the overlapping prefix of each chunk's text against
// the previous chunk's trailing overlap window, per §4.6's text-level merge.
func mergeTextLevel(chunks []entities.TranscribedChunk, overlapDurationSec int) entities.TranscriptBundle {
	var b strings.Builder
	for i, cur := range chunks {
		if i == 0 {
			b.WriteString(cur.Text)
			continue
		}
		prev := chunks[i-1]
		chunkSpan := cur.EndTimeSec - cur.StartTimeSec
		var r float64
		if chunkSpan > 0 {
			r = math.Min(prev.EndTimeSec-cur.StartTimeSec, float64(overlapDurationSec)) / chunkSpan
		}
		if r <= 0 {
			b.WriteString(" ")
			b.WriteString(cur.Text)
			continue
		}
		curWords := strings.Fields(cur.Text)
		dropN := int(math.Floor(r * float64(len(curWords))))
		if dropN > len(curWords) {
			dropN = len(curWords)
		}
		b.WriteString(" ")
		b.WriteString(strings.Join(curWords[dropN:], " "))
	}

	text := strings.TrimSpace(b.String())
	return entities.TranscriptBundle{
		Text:       text,
		TotalWords: wordCount(text),
	}
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
