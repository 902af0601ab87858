package titlerepo

import (
	"database/sql"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/ObviusOwl/amc2cached/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS titles (
	aid   TEXT NOT NULL,
	type  TEXT NOT NULL,
	lang  TEXT NOT NULL,
	value TEXT NOT NULL,
	age   TEXT NOT NULL,
	PRIMARY KEY (aid, type, lang, value) ON CONFLICT REPLACE
)`

// SqliteRepo is the relational title repository backend. A dsn of
// ":memory:" is valid and is how the XML index keeps its parsed rows.
type SqliteRepo struct {
	mu       sync.RWMutex
	db       *sql.DB
	squirrel sq.StatementBuilderType
	log      zerolog.Logger
}

var _ Repo = (*SqliteRepo)(nil)

// NewSqliteRepo opens (and migrates) the title repository database at dsn.
func NewSqliteRepo(dsn string, log zerolog.Logger) (*SqliteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open titles db %q", dsn)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create titles schema")
	}
	return &SqliteRepo{
		db:       db,
		squirrel: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		log:      log.With().Str("module", "titlerepo.sqlite").Logger(),
	}, nil
}

func (r *SqliteRepo) Close() error { return r.db.Close() }

func (r *SqliteRepo) Find(title domain.Title) ([]domain.TitleEntry, error) {
	if !queryHasAnyField(title) {
		return nil, nil
	}

	q := r.squirrel.Select("aid", "type", "lang", "value", "age").From("titles")
	if title.Value != "" {
		q = q.Where(sq.Eq{"value": title.Value})
	}
	if title.Lang != "" {
		q = q.Where(sq.Eq{"lang": title.Lang})
	}
	if title.Type != "" {
		q = q.Where(sq.Eq{"type": title.Type})
	}
	if title.Aid != "" {
		q = q.Where(sq.Eq{"aid": title.Aid})
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := q.RunWith(r.db).Query()
	if err != nil {
		return nil, errors.Wrap(err, "query titles")
	}
	defer rows.Close()

	var out []domain.TitleEntry
	for rows.Next() {
		var aid, typ, lang, value, age string
		if err := rows.Scan(&aid, &typ, &lang, &value, &age); err != nil {
			return nil, errors.Wrap(err, "scan title row")
		}
		ts, err := time.Parse(time.RFC3339Nano, age)
		if err != nil {
			return nil, errors.Wrapf(err, "parse age %q", age)
		}
		out = append(out, domain.TitleEntry{
			Title: domain.Title{Value: value, Aid: aid, Lang: lang, Type: typ},
			Age:   ts,
		})
	}
	return out, rows.Err()
}

func (r *SqliteRepo) Store(entry domain.TitleEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.squirrel.Insert("titles").
		Columns("aid", "type", "lang", "value", "age").
		Values(entry.Aid, entry.Type, entry.Lang, entry.Value, entry.Age.Format(time.RFC3339Nano)).
		RunWith(r.db).Exec()
	if err != nil {
		return errors.Wrap(err, "insert title")
	}
	return nil
}

func (r *SqliteRepo) Purge() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.Exec("DELETE FROM titles"); err != nil {
		return errors.Wrap(err, "purge titles")
	}
	return nil
}

func (r *SqliteRepo) Remove(title domain.Title) error {
	if title.Value == "" {
		return errors.New("remove requires a title value")
	}

	q := r.squirrel.Delete("titles").Where(sq.Eq{"value": title.Value})
	if title.Aid != "" {
		q = q.Where(sq.Eq{"aid": title.Aid})
	}
	if title.Lang != "" {
		q = q.Where(sq.Eq{"lang": title.Lang})
	}
	if title.Type != "" {
		q = q.Where(sq.Eq{"type": title.Type})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := q.RunWith(r.db).Exec(); err != nil {
		return errors.Wrap(err, "remove title")
	}
	return nil
}
