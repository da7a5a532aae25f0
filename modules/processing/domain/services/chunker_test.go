package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
)

func TestPlanBoundaries_Length(t *testing.T) {
	// P1: for all dur>0, chunk>0, |plan| = ceil(dur/chunk).
	cases := []struct {
		dur, chunkDur float64
		overlap       int
	}{
		{75, 30, 2},
		{600, 600, 30},
		{1, 60, 2},
		{3600, 60, 2},
		{59.9, 60, 2},
	}
	for _, c := range cases {
		plan := PlanBoundaries(c.dur, int(c.chunkDur), c.overlap)
		want := int(math.Ceil(c.dur / c.chunkDur))
		assert.Len(t, plan, want, "dur=%v chunkDur=%v", c.dur, c.chunkDur)
	}
}

func TestPlanBoundaries_DenseUniqueIndices(t *testing.T) {
	plan := PlanBoundaries(200, 30, 2)
	for i, b := range plan {
		assert.Equal(t, i, b.Index)
	}
}

func TestPlanBoundaries_ZeroOrNegativeInputs(t *testing.T) {
	assert.Nil(t, PlanBoundaries(0, 30, 2))
	assert.Nil(t, PlanBoundaries(-5, 30, 2))
	assert.Nil(t, PlanBoundaries(30, 0, 2))
}

func TestMergeChunks_WordLevel_SortsAndDedups(t *testing.T) {
	chunks := []entities.TranscribedChunk{
		{
			Index: 1,
			Words: []entities.Word{
				{Word: "c", Start: 1.0, End: 1.2},
				{Word: "d", Start: 1.3, End: 1.5},
			},
		},
		{
			Index: 0,
			Words: []entities.Word{
				{Word: "a", Start: 0.0, End: 0.2},
				{Word: "b", Start: 0.3, End: 0.5},
				// overlaps with chunk 1's "c" within 100ms tolerance -> dropped
				{Word: "c-dup", Start: 1.05, End: 1.25},
			},
		},
	}

	bundle := MergeChunks(chunks, 2)
	assert.Equal(t, "a b c d", bundle.Text)
	assert.Equal(t, 4, bundle.TotalWords)
}

func TestMergeChunks_WordLevel_MonotonicAndDeduped(t *testing.T) {
	// P2/P3 property-style check over a small generated set.
	chunks := []entities.TranscribedChunk{
		{Index: 0, Words: []entities.Word{
			{Word: "w0", Start: 0.0, End: 0.5},
			{Word: "w1", Start: 0.6, End: 1.1},
			{Word: "w2", Start: 1.2, End: 1.7},
		}},
		{Index: 1, Words: []entities.Word{
			{Word: "w1dup", Start: 1.15, End: 1.65}, // within tolerance of w2's end window start
			{Word: "w3", Start: 1.8, End: 2.3},
		}},
	}

	bundle := MergeChunks(chunks, 2)
	require.NotEmpty(t, bundle.Words)
	for i := 1; i < len(bundle.Words); i++ {
		assert.GreaterOrEqual(t, bundle.Words[i].Start, bundle.Words[i-1].Start)
		assert.GreaterOrEqual(t, bundle.Words[i].Start, bundle.Words[i-1].End-wordGapTolerance)
	}
}

func TestMergeChunks_TextLevel_OverlapTrim(t *testing.T) {
	// r = min(prev.end-cur.start, overlap) / (cur.end-cur.start) = min(2,2)/4 = 0.5
	// dropN = floor(0.5 * 4) = 2 leading words of chunk 1 dropped.
	chunks := []entities.TranscribedChunk{
		{Index: 0, StartTimeSec: 0, EndTimeSec: 10, Text: "hello world foo"},
		{Index: 1, StartTimeSec: 8, EndTimeSec: 12, Text: "foo bar baz qux"},
	}

	bundle := MergeChunks(chunks, 2)
	assert.Equal(t, "hello world foo baz qux", bundle.Text)
	assert.Equal(t, 5, bundle.TotalWords)
}

func TestMergeChunks_TextLevel_NoOverlapConcatenatesVerbatim(t *testing.T) {
	chunks := []entities.TranscribedChunk{
		{Index: 0, StartTimeSec: 0, EndTimeSec: 10, Text: "hello"},
		{Index: 1, StartTimeSec: 20, EndTimeSec: 30, Text: "world"},
	}
	bundle := MergeChunks(chunks, 2)
	assert.Equal(t, "hello world", bundle.Text)
}

func TestMergeChunks_PartialFailure_SkipsMissingChunk(t *testing.T) {
	// Scenario 6: 4 chunks, chunk 2 fails and is simply absent from input.
	chunks := []entities.TranscribedChunk{
		{Index: 0, Words: []entities.Word{{Word: "a", Start: 0, End: 0.2}}},
		{Index: 1, Words: []entities.Word{{Word: "b", Start: 1, End: 1.2}}},
		{Index: 3, Words: []entities.Word{{Word: "d", Start: 3, End: 3.2}}},
	}
	bundle := MergeChunks(chunks, 2)
	assert.Equal(t, "a b d", bundle.Text)
}
