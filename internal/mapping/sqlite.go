package mapping

import (
	"database/sql"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/ObviusOwl/amc2cached/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS anime_mapping (
	anidb_id TEXT NOT NULL,
	tmdb_id  TEXT NOT NULL,
	PRIMARY KEY (anidb_id, tmdb_id) ON CONFLICT REPLACE
)`

// SqliteRepo is the relational mapping repository backend.
type SqliteRepo struct {
	mu       sync.Mutex
	db       *sql.DB
	squirrel sq.StatementBuilderType
	log      zerolog.Logger
}

var _ Repo = (*SqliteRepo)(nil)

// NewSqliteRepo opens (and migrates) the mapping database at dsn.
func NewSqliteRepo(dsn string, log zerolog.Logger) (*SqliteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "open mapping db %q", dsn)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create mapping schema")
	}
	return &SqliteRepo{
		db:       db,
		squirrel: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		log:      log.With().Str("module", "mapping.sqlite").Logger(),
	}, nil
}

func (r *SqliteRepo) Close() error { return r.db.Close() }

func (r *SqliteRepo) queryField(field, value string) ([]domain.AnimeMapping, error) {
	q := r.squirrel.Select("anidb_id", "tmdb_id").From("anime_mapping")
	if field != "" {
		q = q.Where(sq.Eq{field: value})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := q.RunWith(r.db).Query()
	if err != nil {
		return nil, errors.Wrap(err, "query anime_mapping")
	}
	defer rows.Close()

	var out []domain.AnimeMapping
	for rows.Next() {
		var anidb, tmdb string
		if err := rows.Scan(&anidb, &tmdb); err != nil {
			return nil, errors.Wrap(err, "scan anime_mapping row")
		}
		out = append(out, domain.AnimeMapping{Anidb: anidb, Tmdb: tmdb})
	}
	return out, rows.Err()
}

func (r *SqliteRepo) ResolveTmdb(query domain.AnimeMapping) ([]domain.AnimeMapping, error) {
	if query.Anidb == "" {
		return nil, errors.New("resolve_tmdb requires an anidb id")
	}
	return r.queryField("anidb_id", query.Anidb)
}

func (r *SqliteRepo) ResolveAnidb(query domain.AnimeMapping) ([]domain.AnimeMapping, error) {
	if query.Tmdb == "" {
		return nil, errors.New("resolve_anidb requires a tmdb id")
	}
	return r.queryField("tmdb_id", query.Tmdb)
}

func (r *SqliteRepo) Load(query domain.AnimeMapping) (*domain.AnimeMapping, error) {
	if query.Anidb == "" || query.Tmdb == "" {
		return nil, errors.New("load requires both anidb and tmdb ids")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.squirrel.Select("anidb_id", "tmdb_id").From("anime_mapping").
		Where(sq.Eq{"anidb_id": query.Anidb, "tmdb_id": query.Tmdb}).
		RunWith(r.db).QueryRow()

	var m domain.AnimeMapping
	if err := row.Scan(&m.Anidb, &m.Tmdb); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "load anime_mapping")
	}
	return &m, nil
}

func (r *SqliteRepo) Store(values []domain.AnimeMapping, replace bool) error {
	for _, v := range values {
		if v.Anidb == "" || v.Tmdb == "" {
			return errors.New("store requires both anidb and tmdb ids on every value")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin mapping store tx")
	}
	defer tx.Rollback()

	if replace {
		for _, v := range values {
			if _, err := tx.Exec("DELETE FROM anime_mapping WHERE anidb_id = ? OR tmdb_id = ?", v.Anidb, v.Tmdb); err != nil {
				return errors.Wrap(err, "delete conflicting mapping rows")
			}
		}
	}
	for _, v := range values {
		if _, err := tx.Exec("INSERT INTO anime_mapping (anidb_id, tmdb_id) VALUES (?, ?)", v.Anidb, v.Tmdb); err != nil {
			return errors.Wrap(err, "insert mapping row")
		}
	}
	return tx.Commit()
}

func (r *SqliteRepo) Remove(value domain.AnimeMapping) error {
	if value.Anidb == "" && value.Tmdb == "" {
		return nil
	}

	q := r.squirrel.Delete("anime_mapping")
	if value.Tmdb != "" {
		q = q.Where(sq.Eq{"tmdb_id": value.Tmdb})
	}
	if value.Anidb != "" {
		q = q.Where(sq.Eq{"anidb_id": value.Anidb})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := q.RunWith(r.db).Exec(); err != nil {
		return errors.Wrap(err, "remove mapping")
	}
	return nil
}

func (r *SqliteRepo) Dump() ([]domain.AnimeMapping, error) {
	return r.queryField("", "")
}

func (r *SqliteRepo) Purge() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.Exec("DELETE FROM anime_mapping"); err != nil {
		return errors.Wrap(err, "purge anime_mapping")
	}
	return nil
}
