package postgres

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hpungsan/tango/internal/errors"
	"github.com/hpungsan/tango/internal/vocab"
)

const table = "flashcards"

var columns = []string{"id", "front", "back", "category", "created_at", "updated_at"}

// builder is the squirrel statement builder with Postgres placeholders.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store provides flashcard persistence backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a store over pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// List returns every flashcard, newest first.
func (s *Store) List(ctx context.Context) ([]vocab.Flashcard, error) {
	query, args, err := builder.Select(columns...).From(table).
		OrderBy("created_at DESC", "id DESC").ToSql()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	cards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (vocab.Flashcard, error) {
		card, err := scanFlashcard(row)
		if err != nil {
			return vocab.Flashcard{}, err
		}
		return *card, nil
	})
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if cards == nil {
		cards = []vocab.Flashcard{}
	}
	return cards, nil
}

// Create inserts one flashcard.
func (s *Store) Create(ctx context.Context, card vocab.FormattedFlashcard) (*vocab.Flashcard, error) {
	fc := newFlashcard(card, time.Now().Unix())
	if err := insert(ctx, s.pool, fc); err != nil {
		return nil, err
	}
	return fc, nil
}

// CreateMany inserts cards in one transaction. With skipDuplicates, cards
// whose front (case-insensitive) and back already exist are skipped.
func (s *Store) CreateMany(ctx context.Context, cards []vocab.FormattedFlashcard, skipDuplicates bool) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().Unix()
	seen := make(map[string]bool, len(cards))
	inserted := 0
	for _, card := range cards {
		if skipDuplicates {
			norm := vocab.NormalizeEnglish(card.Front)
			key := norm + "\x00" + card.Back
			if seen[key] {
				continue
			}
			seen[key] = true

			query, args, err := builder.Select("1").From(table).
				Where(sq.Eq{"front_norm": norm, "back": card.Back}).Limit(1).ToSql()
			if err != nil {
				return 0, errors.NewInternal(err)
			}
			var exists int
			err = tx.QueryRow(ctx, query, args...).Scan(&exists)
			if err == nil {
				continue
			}
			if !stderrors.Is(err, pgx.ErrNoRows) {
				return 0, errors.NewInternal(err)
			}
		}
		if err := insert(ctx, tx, newFlashcard(card, now)); err != nil {
			return 0, err
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.NewInternal(err)
	}
	return inserted, nil
}

// FindByFront returns the oldest case-insensitive front match, or NOT_FOUND.
func (s *Store) FindByFront(ctx context.Context, front string) (*vocab.Flashcard, error) {
	query, args, err := builder.Select(columns...).From(table).
		Where(sq.Eq{"front_norm": vocab.NormalizeEnglish(front)}).
		OrderBy("created_at ASC", "id ASC").Limit(1).ToSql()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	card, err := scanFlashcard(s.pool.QueryRow(ctx, query, args...))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NewNotFound(front)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return card, nil
}

// Update overwrites the non-nil fields and bumps updated_at.
func (s *Store) Update(ctx context.Context, id string, upd vocab.FlashcardUpdate) (*vocab.Flashcard, error) {
	q := builder.Update(table).Set("updated_at", time.Now().Unix())
	if upd.Front != nil {
		q = q.Set("front", *upd.Front).Set("front_norm", vocab.NormalizeEnglish(*upd.Front))
	}
	if upd.Back != nil {
		q = q.Set("back", *upd.Back)
	}
	if upd.Category != nil {
		q = q.Set("category", nullable(*upd.Category))
	}
	query, args, err := q.Where(sq.Eq{"id": id}).Suffix("RETURNING " + strings.Join(columns, ", ")).ToSql()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	card, err := scanFlashcard(s.pool.QueryRow(ctx, query, args...))
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return card, nil
}

// Count returns the number of stored flashcards.
func (s *Store) Count(ctx context.Context) (int, error) {
	query, args, err := builder.Select("count(*)").From(table).ToSql()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// DeleteAll removes every flashcard.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	query, args, err := builder.Delete(table).ToSql()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(tag.RowsAffected()), nil
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insert(ctx context.Context, q querier, fc *vocab.Flashcard) error {
	query, args, err := builder.Insert(table).
		Columns("id", "front", "front_norm", "back", "category", "created_at", "updated_at").
		Values(fc.ID, fc.Front, vocab.NormalizeEnglish(fc.Front), fc.Back, nullable(fc.Category), fc.CreatedAt, fc.UpdatedAt).
		Suffix("RETURNING id").ToSql()
	if err != nil {
		return errors.NewInternal(err)
	}
	var id string
	if err := q.QueryRow(ctx, query, args...).Scan(&id); err != nil {
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

func scanFlashcard(row pgx.Row) (*vocab.Flashcard, error) {
	var (
		card     vocab.Flashcard
		category *string
	)
	if err := row.Scan(&card.ID, &card.Front, &card.Back, &category, &card.CreatedAt, &card.UpdatedAt); err != nil {
		return nil, err
	}
	if category != nil {
		card.Category = *category
	}
	return &card, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
