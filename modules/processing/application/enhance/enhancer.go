// Package enhance is the C10 Enhancer: it derives chapters, keywords,
// summary, and a cleaned-up transcript from a merged TranscriptBundle.
// When the source STT backend was structured (paragraphs/speakers already
// present), the Enhancer prefers that metadata over an LLM call. Otherwise
// it drives an LLM in bounded-size chunks. A failure anywhere degrades
// gracefully — the Enhancer never fails the pipeline, it only logs a
// warning and returns whatever it produced.
package enhance

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/sesamyab/audiopipeline/modules/processing/domain/entities"
	"github.com/sesamyab/audiopipeline/modules/processing/domain/perrors"
)

const maxConcurrentGenerations = 6

// Generator is the text-completion dependency; satisfied by
// infrastructure/llm.Client.
type Generator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Enhancer derives enhanced transcript metadata.
type Enhancer struct {
	llm Generator
	sem *semaphore.Weighted
}

// NewEnhancer creates an Enhancer bounded to maxConcurrentGenerations
// in-flight LLM calls.
func NewEnhancer(llm Generator) *Enhancer {
	return &Enhancer{llm: llm, sem: semaphore.NewWeighted(maxConcurrentGenerations)}
}

// Enhance derives chapters/keywords/summary and a corrected transcript for
// bundle. chunkMeta carries each source chunk's STT metadata, in chunk
// order, some entries possibly nil; mergeStructuredMetadata reports whether
// at least one entry carries usable structured fields. On the text path the
// persons/places sub-tasks also run, but TranscriptBundle has no field for
// them, so their results are not returned.
func (e *Enhancer) Enhance(ctx context.Context, bundle entities.TranscriptBundle, chunkMeta []*entities.ChunkMetadata) entities.TranscriptBundle {
	if structured, meta := mergeStructuredMetadata(chunkMeta); structured {
		bundle.Chapters = meta.Chapters
		bundle.Keywords = meta.Keywords
		bundle.Summary = meta.Summary
		return bundle
	}

	result := e.enhanceFromText(ctx, bundle.Text)
	bundle.Keywords = result.keywords
	bundle.Chapters = result.chapters
	bundle.Summary = result.summary
	if result.correctedText != "" {
		bundle.Text = result.correctedText
	}
	return bundle
}

type llmEnhancement struct {
	keywords      []string
	chapters      []string
	summary       string
	persons       []string
	places        []string
	correctedText string
}

// enhanceFromText runs the six named generation sub-tasks (§4.10: keywords,
// chapters, summary, persons, places, word-corrections) concurrently and
// bounded by the Enhancer's semaphore. Per §4.10 the source text is never
// sent whole: it is split into ≤4000-char chunks with 200-char overlap
// (splitWithOverlap), each chunk is completed independently, and the
// per-chunk responses are rejoined (line tasks are merged and deduped;
// word-corrections is rejoined with joinDedup via CorrectText, which shares
// this method's chunking). Any sub-call that fails logs an
// EnhancementWarning and leaves its field degraded; it never aborts the
// others.
func (e *Enhancer) enhanceFromText(ctx context.Context, text string) llmEnhancement {
	chunks := splitWithOverlap(text, maxChunkChars, overlapChars)
	if len(chunks) == 0 {
		return llmEnhancement{}
	}

	var out llmEnhancement
	var mu sync.Mutex
	var wg sync.WaitGroup

	lineTasks := []struct {
		name   string
		system string
		apply  func(lines []string)
	}{
		{"keywords", "Extract up to 10 topical keywords from this podcast transcript excerpt, one per line.", func(lines []string) {
			mu.Lock()
			out.keywords = dedupLines(append(out.keywords, lines...))
			mu.Unlock()
		}},
		{"chapters", "Propose chapter titles for this podcast transcript excerpt, one per line, in order.", func(lines []string) {
			mu.Lock()
			out.chapters = append(out.chapters, lines...)
			mu.Unlock()
		}},
		{"persons", "List the full names of every person mentioned in this transcript excerpt, one per line.", func(lines []string) {
			mu.Lock()
			out.persons = dedupLines(append(out.persons, lines...))
			mu.Unlock()
		}},
		{"places", "List every place name mentioned in this transcript excerpt, one per line.", func(lines []string) {
			mu.Lock()
			out.places = dedupLines(append(out.places, lines...))
			mu.Unlock()
		}},
	}

	for _, task := range lineTasks {
		for _, chunk := range chunks {
			wg.Add(1)
			go func(name, system, chunk string, apply func([]string)) {
				defer wg.Done()
				resp, ok := e.completeBounded(ctx, name, system, chunk)
				if !ok {
					return
				}
				apply(splitNonEmptyLines(resp))
			}(task.name, task.system, chunk, task.apply)
		}
	}

	summaries := make([]string, len(chunks))
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk string) {
			defer wg.Done()
			resp, ok := e.completeBounded(ctx, "summary", "Write a two-sentence summary of this podcast transcript excerpt.", chunk)
			if ok {
				summaries[i] = strings.TrimSpace(resp)
			}
		}(i, chunk)
	}

	var correctedText string
	wg.Add(1)
	go func() {
		defer wg.Done()
		correctedText = e.CorrectText(ctx, text)
	}()

	wg.Wait()
	out.summary = strings.Join(nonEmptyStrings(summaries), " ")
	out.correctedText = correctedText
	return out
}

// completeBounded acquires the Enhancer's semaphore, runs one LLM sub-call,
// and logs+reports failure as an EnhancementWarning rather than returning an
// error, matching the Enhancer's never-fail-the-pipeline contract.
func (e *Enhancer) completeBounded(ctx context.Context, name, system, userPrompt string) (string, bool) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		log.Printf("enhance: %s skipped: %v", name, perrors.NewEnhancementWarning(err))
		return "", false
	}
	defer e.sem.Release(1)

	resp, err := e.llm.Complete(ctx, system, userPrompt)
	if err != nil {
		log.Printf("enhance: %s failed: %v", name, perrors.NewEnhancementWarning(err))
		return "", false
	}
	return resp, true
}

// dedupLines drops every line that already appeared earlier in lines
// (case-sensitive, order-preserving, in place) — keywords/persons/places are
// frequently repeated across overlapping chunks.
func dedupLines(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	out := lines[:0]
	for _, l := range lines {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// nonEmptyStrings filters out blank entries, e.g. chunks whose summary
// sub-call failed.
func nonEmptyStrings(strs []string) []string {
	out := make([]string, 0, len(strs))
	for _, s := range strs {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// CorrectText runs the word-correction generation task over text split into
// ≤4000-character chunks with 200-character overlap, rejoining the
// corrected chunks with joinDedup to remove the duplicated boundary words.
// On any sub-call failure it returns the original, uncorrected text.
func (e *Enhancer) CorrectText(ctx context.Context, text string) string {
	chunks := splitWithOverlap(text, maxChunkChars, overlapChars)
	if len(chunks) == 0 {
		return text
	}

	corrected := make([]string, len(chunks))
	var wg sync.WaitGroup
	var firstErr error
	var mu sync.Mutex

	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk string) {
			defer wg.Done()
			if err := e.sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			defer e.sem.Release(1)

			resp, err := e.llm.Complete(ctx,
				"Fix obvious transcription errors in this podcast transcript excerpt. Return only the corrected text.",
				chunk)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			corrected[i] = resp
		}(i, chunk)
	}
	wg.Wait()

	if firstErr != nil {
		log.Printf("enhance: word-correction failed: %v", perrors.NewEnhancementWarning(firstErr))
		return text
	}

	joined := corrected[0]
	for i := 1; i < len(corrected); i++ {
		joined = joinDedup(joined, corrected[i])
	}
	return joined
}

func splitNonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// mergeStructuredMetadata reports whether any chunk carries structured STT
// metadata and, if so, derives chapters (from speaker change-points),
// keywords, and a summary directly from it instead of calling an LLM.
func mergeStructuredMetadata(chunkMeta []*entities.ChunkMetadata) (bool, entities.ChunkMetadata) {
	var merged entities.ChunkMetadata
	found := false
	lastSpeaker := ""

	for _, m := range chunkMeta {
		if m == nil {
			continue
		}
		if len(m.Speakers) == 0 && len(m.Paragraphs) == 0 && m.Summary == "" && len(m.Keywords) == 0 {
			continue
		}
		found = true

		for _, s := range m.Speakers {
			if s != lastSpeaker {
				merged.Chapters = append(merged.Chapters, fmt.Sprintf("Speaker %s", s))
				lastSpeaker = s
			}
		}
		merged.Paragraphs = append(merged.Paragraphs, m.Paragraphs...)
		merged.Keywords = append(merged.Keywords, m.Keywords...)
		if m.Summary != "" {
			merged.Summary = m.Summary
		}
		if merged.Language == "" {
			merged.Language = m.Language
		}
	}

	return found, merged
}
