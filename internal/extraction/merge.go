package extraction

import (
	"fmt"
	"sort"
	"strings"

	"shipcerts/pkg/models"
)

// mergeStrategy selects how a field is reconciled across chunks.
type mergeStrategy int

const (
	firstValue mergeStrategy = iota
	mostFrequent
	unionValues
	concatenate
)

const notesSeparator = "\n---\n"

func strategyFor(field string, docType models.DocumentType) mergeStrategy {
	if field == personField(docType) {
		return unionValues
	}
	switch field {
	case "cert_no", "issued_by":
		return mostFrequent
	case "notes":
		return concatenate
	}
	// name, date and remaining fields come from the lowest-numbered chunk with a value
	return firstValue
}

// MergedExtraction is the reconciled field set of a split document.
type MergedExtraction struct {
	Fields models.ExtractedFields `json:"fields"`
	Info   models.MergeInfo       `json:"merge_info"`
}

// MergeChunks reconciles per-chunk extractions into one field set. Results
// are ordered by chunk number first, whatever order they arrive in. With no
// successful chunk it returns an *AllChunksFailedError.
func MergeChunks(results []models.ChunkExtractionResult, docType models.DocumentType) (*MergedExtraction, error) {
	ordered := make([]models.ChunkExtractionResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ChunkNum < ordered[j].ChunkNum })

	info := models.MergeInfo{
		TotalChunks:  len(ordered),
		FieldSources: make(map[string]int),
	}

	var ok []models.ChunkExtractionResult
	var failures []string
	retryable := false
	for _, r := range ordered {
		if r.Success {
			ok = append(ok, r)
			continue
		}
		info.FailedChunks++
		failures = append(failures, fmt.Sprintf("chunk %d (pages %s): %s", r.ChunkNum, r.PageRange, r.Error))
		retryable = retryable || r.Retryable
	}
	info.SuccessfulChunks = len(ok)

	if len(ok) == 0 {
		return nil, &AllChunksFailedError{TotalChunks: len(ordered), Failures: failures, Retryable: retryable}
	}

	var fieldOrder []string
	seen := make(map[string]bool)
	for _, r := range ok {
		keys := make([]string, 0, len(r.Fields))
		for k := range r.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if r.Fields[k] == "" {
				continue
			}
			info.FieldSources[k]++
			if !seen[k] {
				seen[k] = true
				fieldOrder = append(fieldOrder, k)
			}
		}
	}

	merged := make(models.ExtractedFields, len(fieldOrder))
	for _, field := range fieldOrder {
		var value string
		switch strategyFor(field, docType) {
		case mostFrequent:
			value = mergeMostFrequent(ok, field)
		case unionValues:
			value = mergeUnion(ok, field)
		case concatenate:
			value = mergeNotes(ok, field)
		default:
			value = mergeFirst(ok, field)
		}
		if value != "" {
			merged[field] = value
		}
	}

	return &MergedExtraction{Fields: merged, Info: info}, nil
}

func mergeFirst(results []models.ChunkExtractionResult, field string) string {
	for _, r := range results {
		if v := r.Fields[field]; v != "" {
			return v
		}
	}
	return ""
}

// mergeMostFrequent picks the majority value; ties go to the earliest chunk.
func mergeMostFrequent(results []models.ChunkExtractionResult, field string) string {
	counts := make(map[string]int)
	var order []string
	for _, r := range results {
		v := strings.TrimSpace(r.Fields[field])
		if v == "" {
			continue
		}
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}

	best, bestCount := "", 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

func mergeUnion(results []models.ChunkExtractionResult, field string) string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range results {
		for _, part := range strings.Split(r.Fields[field], ",") {
			name := strings.TrimSpace(part)
			key := strings.ToUpper(name)
			if name == "" || seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

func mergeNotes(results []models.ChunkExtractionResult, field string) string {
	var parts []string
	for _, r := range results {
		if v := strings.TrimSpace(r.Fields[field]); v != "" {
			parts = append(parts, fmt.Sprintf("[Pages %s] %s", r.PageRange, v))
		}
	}
	return strings.Join(parts, notesSeparator)
}
