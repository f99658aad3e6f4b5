package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"ipcheck-tools/internal/domain/ipdistance"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"k8s.io/klog/v2"
)

const lockStripes = 64

// Store 為記憶體版的 IP 距離 session 儲存，併發安全。
//
// 過期由兩層把關：go-cache 依 TTL 由 janitor 定期清除，
// Get/Update 另以 ExpiresAt 再檢查一次，計時器延遲或遺失都不會讓過期 session 復活。
type Store struct {
	items *cache.Cache
	locks [lockStripes]sync.Mutex
	now   func() time.Time
	newID func() string
}

// Option 調整 Store 行為，主要供測試注入時鐘。
type Option func(*Store)

// WithClock 替換時間來源。
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator 替換 session id 產生方式。
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// NewStore 建立新的記憶體 Store；cleanupInterval 為背景清除週期，0 表示只做存取時檢查。
func NewStore(cleanupInterval time.Duration, opts ...Option) *Store {
	s := &Store{
		items: cache.New(ipdistance.SessionTTL, cleanupInterval),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.items.OnEvicted(func(id string, _ interface{}) {
		klog.V(2).InfoS("ipdistance session evicted", "sessionID", id)
	})
	return s
}

func (s *Store) lockFor(id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &s.locks[h.Sum32()%lockStripes]
}

// Create 產生新 session 並排定 60 分鐘後移除。
func (s *Store) Create(ctx context.Context) (ipdistance.Session, error) {
	sess := ipdistance.NewSession(s.newID(), s.now())
	if err := s.items.Add(sess.ID, sess, ipdistance.SessionTTL); err != nil {
		return ipdistance.Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Get 回傳仍有效的 session；已過期者會順便刪除。
func (s *Store) Get(ctx context.Context, id string) (ipdistance.Session, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()
	return s.load(id)
}

// Update 在該 id 的鎖內讀取、套用 apply 並寫回。
func (s *Store) Update(ctx context.Context, id string, apply func(*ipdistance.Session) error) (ipdistance.Session, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.load(id)
	if err != nil {
		return ipdistance.Session{}, err
	}
	if err := apply(&sess); err != nil {
		return ipdistance.Session{}, err
	}
	sess.ID = id
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		s.items.Delete(id)
		return ipdistance.Session{}, ipdistance.ErrSessionNotFound
	}
	s.items.Set(id, sess, ttl)
	return sess, nil
}

// Len 回傳目前保存的 session 數（含尚未清除的過期紀錄）。
func (s *Store) Len() int {
	return s.items.ItemCount()
}

func (s *Store) load(id string) (ipdistance.Session, error) {
	v, ok := s.items.Get(id)
	if !ok {
		return ipdistance.Session{}, ipdistance.ErrSessionNotFound
	}
	sess, ok := v.(ipdistance.Session)
	if !ok {
		return ipdistance.Session{}, fmt.Errorf("unexpected session type %T", v)
	}
	if !sess.Active(s.now()) {
		s.items.Delete(id)
		return ipdistance.Session{}, ipdistance.ErrSessionNotFound
	}
	return sess, nil
}
