package ipdistance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ipcheck-tools/internal"
	domain "ipcheck-tools/internal/domain/ipdistance"

	"k8s.io/klog/v2"
)

// 併發登記時，guard 失敗最多重新判斷的次數。
const maxRounds = 3

var errStaleSession = errors.New("session changed during visit")

// Outcome 表示呼叫者在該 session 中的角色判定結果。
type Outcome string

const (
	OutcomeFirstRegistered Outcome = "first_registered"
	OutcomeFirstWaiting    Outcome = "first_waiting"
	OutcomeComplete        Outcome = "complete"
	OutcomeAlreadyUsed     Outcome = "already_used"
)

// ResultArchive 保存完成的比對結果（選用）。
type ResultArchive interface {
	SaveResult(ctx context.Context, res domain.ComparisonResult) error
}

// Options 為 Service 的可選設定。
type Options struct {
	// PublicResults 為 true 時，已完成的結果對任何持有連結者公開；
	// 否則僅兩位參與者可見，其他人會收到 AlreadyUsed。
	PublicResults bool
	// PublicHost 為請求未帶 Host 時分享連結使用的主機名。
	PublicHost string
	// SecureLinks 控制分享連結使用 https。
	SecureLinks bool
	Archive     ResultArchive
}

// Service 實作 IP 距離 session 的建立與訪客判定。
type Service struct {
	store    domain.SessionStore
	resolver domain.Resolver
	opts     Options
	now      func() time.Time
}

// NewService 建立 Service。
func NewService(store domain.SessionStore, resolver domain.Resolver, opts Options) *Service {
	if internal.IsNil(opts.Archive) {
		opts.Archive = nil
	}
	if opts.PublicHost == "" {
		opts.PublicHost = "ipcheck.tools"
	}
	return &Service{
		store:    store,
		resolver: resolver,
		opts:     opts,
		now:      time.Now,
	}
}

// CreateSessionOutput 為建立 session 的回應。
type CreateSessionOutput struct {
	SessionID string    `json:"sessionId"`
	ShareURL  string    `json:"shareUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CreateSession 建立新的 session 並組出分享連結。
func (s *Service) CreateSession(ctx context.Context, host string) (CreateSessionOutput, error) {
	sess, err := s.store.Create(ctx)
	if err != nil {
		return CreateSessionOutput{}, fmt.Errorf("create session: %w", err)
	}
	host = strings.TrimSpace(host)
	if host == "" {
		host = s.opts.PublicHost
	}
	scheme := "http"
	if s.opts.SecureLinks {
		scheme = "https"
	}
	klog.V(1).InfoS("Created ipdistance session", "sessionID", sess.ID, "expiresAt", sess.ExpiresAt)
	return CreateSessionOutput{
		SessionID: sess.ID,
		ShareURL:  fmt.Sprintf("%s://%s/ipdistance/%s", scheme, host, sess.ID),
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// VisitResult 為一次訪問的判定結果與當下 session 快照。
type VisitResult struct {
	Outcome        Outcome
	Session        domain.Session
	IsFirstVisitor bool
	IsComplete     bool
}

// Message 回傳顯示給使用者的訊息。
func (r VisitResult) Message() string {
	switch r.Outcome {
	case OutcomeFirstRegistered:
		return "You are the first visitor. Share this link with someone else to see the IP distance."
	case OutcomeFirstWaiting:
		return "You have already visited this link. Share it with someone else."
	case OutcomeAlreadyUsed:
		return "This link has already been used by two different IPs."
	default:
		return "IP distance calculation complete!"
	}
}

// Visit 依 session 狀態與呼叫者 IP 判定角色，必要時解析定位並寫回 session。
//
// 回傳 domain.ErrSessionNotFound（不存在或過期）或 domain.ErrResolutionFailed
// （定位失敗，session 保持不變，可重試）。
func (s *Service) Visit(ctx context.Context, sessionID, ip string) (VisitResult, error) {
	v := &visit{svc: s, id: sessionID, ip: ip}
	for round := 0; round < maxRounds; round++ {
		sess, err := s.store.Get(ctx, sessionID)
		if err != nil {
			return VisitResult{}, err
		}
		res, err := v.step(ctx, sess)
		if errors.Is(err, errStaleSession) {
			klog.V(1).InfoS("Session changed concurrently, re-evaluating", "sessionID", sessionID, "ip", ip, "round", round+1)
			continue
		}
		return res, err
	}
	return VisitResult{}, fmt.Errorf("session %s: concurrent updates did not settle", sessionID)
}

// visit 保存單次請求內已解析的定位，重新判斷時不再重查。
type visit struct {
	svc  *Service
	id   string
	ip   string
	info *domain.GeoRecord
}

func (v *visit) step(ctx context.Context, sess domain.Session) (VisitResult, error) {
	switch {
	case sess.FirstIP == "":
		return v.registerFirst(ctx)
	case sess.Complete() && (v.svc.opts.PublicResults || sess.IsParticipant(v.ip)):
		return completed(sess, v.ip), nil
	case v.ip == sess.FirstIP:
		return VisitResult{Outcome: OutcomeFirstWaiting, Session: sess, IsFirstVisitor: true}, nil
	case sess.SecondIP == "":
		return v.registerSecond(ctx, sess)
	case v.ip != sess.SecondIP:
		klog.V(1).InfoS("Rejected third visitor", "sessionID", v.id, "ip", v.ip)
		return VisitResult{Outcome: OutcomeAlreadyUsed, Session: sess, IsComplete: true}, nil
	default:
		return completed(sess, v.ip), nil
	}
}

func (v *visit) resolve(ctx context.Context) (domain.GeoRecord, error) {
	if v.info != nil {
		return *v.info, nil
	}
	info, err := v.svc.resolver.Resolve(ctx, v.ip)
	if err != nil {
		klog.ErrorS(err, "Failed to get IP information", "sessionID", v.id, "ip", v.ip)
		if !errors.Is(err, domain.ErrResolutionFailed) {
			err = fmt.Errorf("%w: %v", domain.ErrResolutionFailed, err)
		}
		return domain.GeoRecord{}, err
	}
	v.info = &info
	return info, nil
}

func (v *visit) registerFirst(ctx context.Context) (VisitResult, error) {
	klog.InfoS("Recording first visitor", "sessionID", v.id, "ip", v.ip)
	info, err := v.resolve(ctx)
	if err != nil {
		return VisitResult{}, err
	}

	updated, err := v.svc.store.Update(ctx, v.id, func(cur *domain.Session) error {
		if cur.FirstIP != "" {
			return errStaleSession
		}
		cur.FirstIP = v.ip
		cur.FirstIPInfo = &info
		return nil
	})
	if err != nil {
		return VisitResult{}, err
	}
	klog.InfoS("First visitor recorded", "sessionID", v.id, "city", info.City, "country", info.Country)
	return VisitResult{Outcome: OutcomeFirstRegistered, Session: updated, IsFirstVisitor: true}, nil
}

func (v *visit) registerSecond(ctx context.Context, sess domain.Session) (VisitResult, error) {
	if sess.FirstIPInfo == nil {
		return VisitResult{}, fmt.Errorf("session %s: first participant has no geolocation", v.id)
	}
	klog.InfoS("Recording second visitor", "sessionID", v.id, "ip", v.ip)
	info, err := v.resolve(ctx)
	if err != nil {
		return VisitResult{}, err
	}
	first := *sess.FirstIPInfo
	distance := domain.DistanceBetween(first, info)

	updated, err := v.svc.store.Update(ctx, v.id, func(cur *domain.Session) error {
		if cur.SecondIP != "" || cur.FirstIP != sess.FirstIP {
			return errStaleSession
		}
		cur.SecondIP = v.ip
		cur.SecondIPInfo = &info
		cur.Distance = &distance
		return nil
	})
	if err != nil {
		return VisitResult{}, err
	}
	klog.InfoS("Distance calculated", "sessionID", v.id, "distanceKm", distance)

	v.svc.archive(ctx, updated)
	return VisitResult{Outcome: OutcomeComplete, Session: updated, IsComplete: true}, nil
}

func (s *Service) archive(ctx context.Context, sess domain.Session) {
	if s.opts.Archive == nil {
		return
	}
	res, ok := domain.ResultFromSession(sess, s.now())
	if !ok {
		return
	}
	if err := s.opts.Archive.SaveResult(ctx, res); err != nil {
		klog.ErrorS(err, "Failed to archive comparison result", "sessionID", sess.ID)
	}
}

func completed(sess domain.Session, ip string) VisitResult {
	return VisitResult{
		Outcome:        OutcomeComplete,
		Session:        sess,
		IsFirstVisitor: ip == sess.FirstIP,
		IsComplete:     true,
	}
}
