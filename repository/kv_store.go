package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// StorageModel is the Bun model for persisted session values.
type StorageModel struct {
	bun.BaseModel `bun:"table:auth_storage"`

	Namespace string    `bun:"namespace,pk,notnull"`
	Key       string    `bun:"storage_key,pk,notnull"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// KVStore implements authclient.Backend on top of Bun. Every origin gets
// its own namespace so two sites sharing a database never see each
// other's session.
type KVStore struct {
	db        *bun.DB
	namespace string
	now       func() time.Time
}

// KVStoreOption customizes a KVStore
type KVStoreOption func(*KVStore)

// WithKVClock injects a custom clock (useful for tests).
func WithKVClock(clock func() time.Time) KVStoreOption {
	return func(s *KVStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewKVStore creates a store scoped to origin.
func NewKVStore(db *bun.DB, origin string, opts ...KVStoreOption) (*KVStore, error) {
	namespace, err := Namespace(origin)
	if err != nil {
		return nil, err
	}
	s := &KVStore{
		db:        db,
		namespace: namespace,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Namespace derives the stable namespace id of an origin.
func Namespace(origin string) (string, error) {
	if origin == "" {
		return "", errors.New("repository: origin is required to derive a storage namespace")
	}
	id, err := hashid.NewUUID(origin)
	if err != nil {
		return "", fmt.Errorf("repository: namespace for %q: %w", origin, err)
	}
	return id.String(), nil
}

// Open connects to a SQLite database through bun's driver shim.
func Open(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// EnsureSchema creates the storage table when it does not exist.
func EnsureSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*StorageModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (s *KVStore) Namespace() string {
	return s.namespace
}

// Get implements authclient.Backend.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var model StorageModel
	err := s.db.NewSelect().
		Model(&model).
		Where("namespace = ? AND storage_key = ?", s.namespace, key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(model.Value), true, nil
}

// Set implements authclient.Backend.
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	model := &StorageModel{
		Namespace: s.namespace,
		Key:       key,
		Value:     string(value),
		UpdatedAt: s.now().UTC(),
	}
	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (namespace, storage_key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// Delete implements authclient.Backend. All keys go in one transaction.
func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*StorageModel)(nil)).
			Where("namespace = ?", s.namespace).
			Where("storage_key IN (?)", bun.In(keys)).
			Exec(ctx)
		return err
	})
}

// Keys lists the keys stored in this namespace, sorted.
func (s *KVStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.db.NewSelect().
		Model((*StorageModel)(nil)).
		Column("storage_key").
		Where("namespace = ?", s.namespace).
		Order("storage_key ASC").
		Scan(ctx, &keys)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *KVStore) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return s.db.RunInTx(ctx, opts, f)
	}
}
