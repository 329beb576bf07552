package ops

import "github.com/hpungsan/tango/internal/vocab"

// Deduplicate collapses records sharing a DedupKey. The record with the
// strictly higher confidence wins; ties keep the first seen. The survivor
// takes the position of the first occurrence.
func Deduplicate(records []vocab.TranslatedVocabulary) []vocab.TranslatedVocabulary {
	index := make(map[string]int, len(records))
	out := make([]vocab.TranslatedVocabulary, 0, len(records))
	for _, v := range records {
		key := vocab.DedupKey(v)
		if i, ok := index[key]; ok {
			if v.Confidence > out[i].Confidence {
				out[i] = v
			}
			continue
		}
		index[key] = len(out)
		out = append(out, v)
	}
	return out
}
