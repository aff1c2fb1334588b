package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
)

// KV is the string key/value backend behind Service.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// BadgerKV stores settings in an embedded badger database.
type BadgerKV struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a badger database in dir. An empty dir
// keeps everything in memory.
func OpenBadger(dir string, logger *slog.Logger) (*BadgerKV, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{logger.With("component", "badger")})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	return &BadgerKV{db: db}, nil
}

func (k *BadgerKV) Get(_ context.Context, key string) (string, bool, error) {
	var value []byte
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(value), true, nil
}

func (k *BadgerKV) Set(_ context.Context, key, value string) error {
	err := k.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (k *BadgerKV) Close() error {
	return k.db.Close()
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// RedisKV stores settings as plain redis strings under a key prefix, so a
// profile can be shared between machines.
type RedisKV struct {
	client *redis.Client
	prefix string
}

func NewRedisKV(client *redis.Client, prefix string) *RedisKV {
	if prefix == "" {
		prefix = "brainwave:"
	}
	return &RedisKV{client: client, prefix: prefix}
}

func (k *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := k.client.Get(ctx, k.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return value, true, nil
}

func (k *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := k.client.Set(ctx, k.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (k *RedisKV) Close() error {
	return k.client.Close()
}
