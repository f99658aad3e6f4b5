package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ipcheck-tools/internal/domain/ipdistance"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const defaultMaxRetries = 8

// SessionStore keeps ipdistance sessions in Redis. Each session is one JSON
// value whose key TTL matches ExpiresAt; updates run under WATCH so two
// concurrent writers on the same session cannot both commit.
type SessionStore struct {
	client     *goredis.Client
	prefix     string
	maxRetries int
	now        func() time.Time
	newID      func() string
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client *goredis.Client) *SessionStore {
	return &SessionStore{
		client:     client,
		prefix:     "ipdistance:session:",
		maxRetries: defaultMaxRetries,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (r *SessionStore) key(id string) string {
	return r.prefix + id
}

func (r *SessionStore) Create(ctx context.Context) (ipdistance.Session, error) {
	sess := ipdistance.NewSession(r.newID(), r.now())
	data, err := json.Marshal(sess)
	if err != nil {
		return ipdistance.Session{}, fmt.Errorf("session: failed to marshal: %w", err)
	}
	ok, err := r.client.SetNX(ctx, r.key(sess.ID), data, ipdistance.SessionTTL).Result()
	if err != nil {
		return ipdistance.Session{}, fmt.Errorf("session: create: %w", err)
	}
	if !ok {
		return ipdistance.Session{}, fmt.Errorf("session: id collision for %s", sess.ID)
	}
	return sess, nil
}

func (r *SessionStore) Get(ctx context.Context, id string) (ipdistance.Session, error) {
	val, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return ipdistance.Session{}, ipdistance.ErrSessionNotFound
	}
	if err != nil {
		return ipdistance.Session{}, fmt.Errorf("session: get: %w", err)
	}
	sess, err := decode(val)
	if err != nil {
		return ipdistance.Session{}, err
	}
	if !sess.Active(r.now()) {
		if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
			return ipdistance.Session{}, fmt.Errorf("session: purge expired: %w", err)
		}
		return ipdistance.Session{}, ipdistance.ErrSessionNotFound
	}
	return sess, nil
}

func (r *SessionStore) Update(ctx context.Context, id string, apply func(*ipdistance.Session) error) (ipdistance.Session, error) {
	key := r.key(id)
	var out ipdistance.Session

	txf := func(tx *goredis.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return ipdistance.ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("session: get: %w", err)
		}
		sess, err := decode(val)
		if err != nil {
			return err
		}
		ttl := sess.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			_ = tx.Del(ctx, key).Err()
			return ipdistance.ErrSessionNotFound
		}
		if err := apply(&sess); err != nil {
			return err
		}
		sess.ID = id
		data, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("session: failed to marshal: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = sess
		return nil
	}

	for i := 0; i < r.maxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil {
			return ipdistance.Session{}, err
		}
		return out, nil
	}
	return ipdistance.Session{}, fmt.Errorf("session: update %s: too much contention", id)
}

func decode(val []byte) (ipdistance.Session, error) {
	var s ipdistance.Session
	if err := json.Unmarshal(val, &s); err != nil {
		return ipdistance.Session{}, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	return s, nil
}
