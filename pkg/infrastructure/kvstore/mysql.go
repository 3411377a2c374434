package kvstore

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
)

const (
	selectValueQuery = `SELECT value FROM kv_entry WHERE entry_key = ?`
	upsertValueQuery = `INSERT INTO kv_entry (entry_key, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)`
)

type MySQLStore struct {
	db *sqlx.DB
}

func OpenMySQL(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect to mysql")
	}
	return db, nil
}

func NewMySQLStore(db *sqlx.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, selectValueQuery, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrKeyNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "select %s", key)
	}
	return value, nil
}

func (s *MySQLStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, upsertValueQuery, key, value)
	return errors.Wrapf(err, "upsert %s", key)
}
