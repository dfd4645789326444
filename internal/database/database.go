// Package database stores parsed replays, identity names, pastes and the
// import queue as PocketBase records owned by a users record.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// Collection names created by the migrations package.
const (
	ReplaysCollection    = "replays"
	IdentitiesCollection = "identities"
	PastesCollection     = "pastes"
	ImportJobsCollection = "import_jobs"
	UsersCollection      = "users"
)

// ErrNotFound is returned when no record matches the lookup.
var ErrNotFound = errors.New("record not found")

// notFound maps PocketBase's sql.ErrNoRows to ErrNotFound and wraps anything else.
func notFound(err error, what string) error {
	if isNoRows(err) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to find %s: %w", what, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// findOne returns the first record of collection matching where.
// A missing record comes back as sql.ErrNoRows.
func findOne(ctx context.Context, pbApp core.App, collection string, where dbx.Expression) (*core.Record, error) {
	record := &core.Record{}
	err := pbApp.RecordQuery(collection).
		WithContext(ctx).
		AndWhere(where).
		Limit(1).
		One(record)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// findAll returns every record of collection matching where, ordered by orderBy.
func findAll(ctx context.Context, pbApp core.App, collection string, where dbx.Expression, orderBy ...string) ([]*core.Record, error) {
	records := []*core.Record{}
	query := pbApp.RecordQuery(collection).WithContext(ctx)
	if where != nil {
		query = query.AndWhere(where)
	}
	if len(orderBy) > 0 {
		query = query.OrderBy(orderBy...)
	}
	if err := query.All(&records); err != nil {
		return nil, err
	}
	return records, nil
}

// count returns how many records of collection match where.
func count(ctx context.Context, pbApp core.App, collection string, where dbx.Expression) (int, error) {
	var n int
	err := pbApp.RecordQuery(collection).
		WithContext(ctx).
		Select("count(*)").
		AndWhere(where).
		Row(&n)
	return n, err
}

// FindUserByEmail returns the id of the users record with the given email.
func FindUserByEmail(pbApp core.App, email string) (string, error) {
	record, err := pbApp.FindAuthRecordByEmail(UsersCollection, email)
	if err != nil {
		return "", notFound(err, "user "+email)
	}
	return record.Id, nil
}
