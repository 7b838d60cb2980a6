package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// DB - общий интерфейс *sqlx.DB и *sqlx.Tx, чтобы репозитории работали
// одинаково внутри и вне транзакции.
type DB interface {
	sqlx.ExtContext
}

// GetByID - универсальная функция для получения сущности по ID
func GetByID[T any](ctx context.Context, db DB, table string, id interface{}, notFoundErr error) (*T, error) {
	return getOne[T](ctx, db, fmt.Sprintf("SELECT * FROM %s WHERE id = $1", table), id, notFoundErr, "get by id from "+table)
}

// GetByIDForUpdate - то же, что GetByID, но с блокировкой строки до конца транзакции
func GetByIDForUpdate[T any](ctx context.Context, db DB, table string, id interface{}, notFoundErr error) (*T, error) {
	return getOne[T](ctx, db, fmt.Sprintf("SELECT * FROM %s WHERE id = $1 FOR UPDATE", table), id, notFoundErr, "get for update from "+table)
}

// GetByField - универсальная функция для получения сущности по любому полю
func GetByField[T any](ctx context.Context, db DB, table, field string, value interface{}, notFoundErr error) (*T, error) {
	return getOne[T](ctx, db, fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", table, field), value, notFoundErr, fmt.Sprintf("get by %s from %s", field, table))
}

func getOne[T any](ctx context.Context, db DB, query string, arg interface{}, notFoundErr error, op string) (*T, error) {
	var entity T
	if err := sqlx.GetContext(ctx, db, &entity, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &entity, nil
}

// Affected возвращает true, если запрос изменил хотя бы одну строку.
// Условные UPDATE используют это как признак выигранной гонки.
func Affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// WithTransaction выполняет функцию внутри транзакции с правильной обработкой ошибок
func WithTransaction(ctx context.Context, db *sqlx.DB, opts *sql.TxOptions, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
