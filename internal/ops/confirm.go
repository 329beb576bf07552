package ops

import (
	"context"
	"time"

	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/translate"
	"github.com/hpungsan/tango/internal/vocab"
)

// ConfirmInput contains the reviewed vocabulary and the user's decisions.
type ConfirmInput struct {
	Vocabulary []vocab.TranslatedVocabulary `json:"vocabulary"`
	// ClarificationResolutions is keyed by originalTerm, or english when
	// the record has no original term.
	ClarificationResolutions map[string]vocab.TranslationOption `json:"clarificationResolutions,omitempty"`
	// DuplicateActions is keyed by English term, compared case-insensitively.
	DuplicateActions map[string]vocab.DuplicateAction `json:"duplicateActions,omitempty"`
}

// ConfirmOutput reports what the commit wrote.
type ConfirmOutput struct {
	Saved      int `json:"saved"`
	Replaced   int `json:"replaced"`
	Skipped    int `json:"skipped"`
	Total      int `json:"total"`
	Unresolved int `json:"unresolved"`
}

// Confirm applies clarification choices and duplicate actions, then
// commits flashcards one at a time. Records still needing clarification
// are never written. A store failure part way through is not rolled back;
// the error details carry the counts written so far.
func (p *Pipeline) Confirm(ctx context.Context, input ConfirmInput) (*ConfirmOutput, error) {
	start := time.Now()

	cards, unresolved := Resolve(input.Vocabulary, input.ClarificationResolutions)
	if len(cards) == 0 {
		if unresolved > 0 {
			return nil, errors.NewUnresolvedClarification(unresolved)
		}
		return nil, errors.NewInvalidRequest("no complete vocabulary records to commit")
	}

	actions := make(map[string]vocab.DuplicateAction, len(input.DuplicateActions))
	for term, action := range input.DuplicateActions {
		actions[vocab.NormalizeEnglish(term)] = action
	}

	out := &ConfirmOutput{Unresolved: unresolved}
	defer func() {
		p.metrics.Committed("saved", out.Saved)
		p.metrics.Committed("replaced", out.Replaced)
		p.metrics.Committed("skipped", out.Skipped)
	}()

	for _, card := range cards {
		if err := ctx.Err(); err != nil {
			return nil, partialError(errors.NewInternal(err), out)
		}

		switch actions[vocab.NormalizeEnglish(card.Front)] {
		case vocab.ActionSkip:
			out.Skipped++
			continue
		case vocab.ActionReplace:
			replaced, err := p.replace(ctx, card)
			if err != nil {
				return nil, partialError(err, out)
			}
			if replaced {
				out.Replaced++
				continue
			}
		}

		if _, err := p.store.Create(ctx, card); err != nil {
			return nil, partialError(err, out)
		}
		out.Saved++
	}

	out.Total = out.Saved + out.Replaced
	p.log.Info("pipeline.confirm.ok",
		"saved", out.Saved, "replaced", out.Replaced, "skipped", out.Skipped,
		"unresolved", out.Unresolved, "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// replace overwrites the stored card with the same front. It reports false
// when no such card exists.
func (p *Pipeline) replace(ctx context.Context, card vocab.FormattedFlashcard) (bool, error) {
	existing, err := p.store.FindByFront(ctx, card.Front)
	if errors.Is(err, errors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, err = p.store.Update(ctx, existing.ID, vocab.FlashcardUpdate{
		Front:    &card.Front,
		Back:     &card.Back,
		Category: &card.Category,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Resolve applies clarification resolutions and formats the committable
// records. unresolved counts records dropped for still needing
// clarification; records missing a side are dropped silently.
func Resolve(records []vocab.TranslatedVocabulary, resolutions map[string]vocab.TranslationOption) (cards []vocab.FormattedFlashcard, unresolved int) {
	cards = make([]vocab.FormattedFlashcard, 0, len(records))
	for _, v := range records {
		if v.NeedsClarification {
			option, ok := resolutions[vocab.ClarificationKey(v)]
			if !ok {
				unresolved++
				continue
			}
			v = translate.ResolveClarification(v, option)
		}
		if card, ok := vocab.ToFlashcard(v); ok {
			cards = append(cards, card)
		}
	}
	return cards, unresolved
}

// partialError attaches the counts written so far to err.
func partialError(err error, out *ConfirmOutput) error {
	tErr := errors.As(err)
	if tErr == nil {
		tErr = errors.NewInternal(err)
	}
	return tErr.WithDetails(map[string]any{
		"saved":    out.Saved,
		"replaced": out.Replaced,
		"skipped":  out.Skipped,
	})
}
