package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/vocab"
)

const selectColumns = `SELECT id, front, back, category, created_at, updated_at FROM flashcards`

// Store is the SQLite-backed flashcard store.
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// List returns every flashcard, newest first.
func (s *Store) List(ctx context.Context) ([]vocab.Flashcard, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	cards := []vocab.Flashcard{}
	for rows.Next() {
		card, err := scanFlashcard(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return cards, nil
}

// Create inserts one flashcard and returns it with its assigned id.
func (s *Store) Create(ctx context.Context, card vocab.FormattedFlashcard) (*vocab.Flashcard, error) {
	fc := newFlashcard(card, time.Now().Unix())
	if err := insert(ctx, s.db, fc); err != nil {
		return nil, err
	}
	return fc, nil
}

// CreateMany inserts cards in one transaction. With skipDuplicates, cards
// whose front (case-insensitive) and back already exist are skipped.
// Returns the number inserted.
func (s *Store) CreateMany(ctx context.Context, cards []vocab.FormattedFlashcard, skipDuplicates bool) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().Unix()
	seen := make(map[string]bool, len(cards))
	inserted := 0
	for _, card := range cards {
		if skipDuplicates {
			key := vocab.NormalizeEnglish(card.Front) + "\x00" + card.Back
			if seen[key] {
				continue
			}
			seen[key] = true

			var exists int
			err := tx.QueryRowContext(ctx,
				`SELECT 1 FROM flashcards WHERE front_norm = ? AND back = ? LIMIT 1`,
				vocab.NormalizeEnglish(card.Front), card.Back,
			).Scan(&exists)
			if err == nil {
				continue
			}
			if err != sql.ErrNoRows {
				return 0, errors.NewInternal(err)
			}
		}
		if err := insert(ctx, tx, newFlashcard(card, now)); err != nil {
			return 0, err
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return inserted, nil
}

// FindByFront returns the oldest flashcard whose front matches
// case-insensitively, or NOT_FOUND.
func (s *Store) FindByFront(ctx context.Context, front string) (*vocab.Flashcard, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE front_norm = ? ORDER BY created_at ASC, id ASC LIMIT 1`,
		vocab.NormalizeEnglish(front))
	card, err := scanFlashcard(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(front)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return card, nil
}

// Update overwrites the non-nil fields of a flashcard and bumps updated_at.
func (s *Store) Update(ctx context.Context, id string, upd vocab.FlashcardUpdate) (*vocab.Flashcard, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback() }()

	card, err := scanFlashcard(tx.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if upd.Front != nil {
		card.Front = *upd.Front
	}
	if upd.Back != nil {
		card.Back = *upd.Back
	}
	if upd.Category != nil {
		card.Category = *upd.Category
	}
	card.UpdatedAt = time.Now().Unix()

	_, err = tx.ExecContext(ctx,
		`UPDATE flashcards SET front = ?, front_norm = ?, back = ?, category = ?, updated_at = ? WHERE id = ?`,
		card.Front, vocab.NormalizeEnglish(card.Front), card.Back, toNullString(card.Category), card.UpdatedAt, id)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return card, nil
}

// Count returns the number of stored flashcards.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM flashcards`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// DeleteAll removes every flashcard and returns how many were deleted.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM flashcards`)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insert(ctx context.Context, ex execer, fc *vocab.Flashcard) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO flashcards (id, front, front_norm, back, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		fc.ID, fc.Front, vocab.NormalizeEnglish(fc.Front), fc.Back, toNullString(fc.Category),
		fc.CreatedAt, fc.UpdatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func newFlashcard(card vocab.FormattedFlashcard, now int64) *vocab.Flashcard {
	return &vocab.Flashcard{
		ID:        vocab.NewID(),
		Front:     card.Front,
		Back:      card.Back,
		Category:  card.Category,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFlashcard(row scanner) (*vocab.Flashcard, error) {
	var (
		card     vocab.Flashcard
		category sql.NullString
	)
	if err := row.Scan(&card.ID, &card.Front, &card.Back, &category, &card.CreatedAt, &card.UpdatedAt); err != nil {
		return nil, err
	}
	card.Category = category.String
	return &card, nil
}

// toNullString maps an empty string to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
