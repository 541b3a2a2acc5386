// Package auth はデモ用のログインセッションを管理する。
// 資格情報の検証は行わず、メールアドレスとパスワードが入力されていればログインを受け付ける。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/taskmaster/internal/kvstore"
	"github.com/hitoshi/taskmaster/internal/model"
	"github.com/hitoshi/taskmaster/internal/validation"
)

// StorageKey はログインユーザーを保存する永続化キー。
const StorageKey = "user"

// DemoUserID はログイン時に発行されるユーザーID。デモのため常に固定値。
const DemoUserID = "1"

// avatarBaseURL はアバター画像の生成サービス。
const avatarBaseURL = "https://ui-avatars.com/api/"

// Recorder は認証ストアが記録するメトリクスのインターフェース。
type Recorder interface {
	RecordLogin(success bool)
	RecordPersistenceFailure(key string)
	RecordCorruptState(key string)
}

// Options はStoreの生成オプション。
type Options struct {
	// RequireValidEmail がtrueの場合、メールアドレス形式でない入力のログインを拒否する。
	RequireValidEmail bool
	Now               func() time.Time
	Recorder          Recorder
	Logger            *slog.Logger
}

// Store は現在のログインユーザーを高々1人保持するセッションストア。
type Store struct {
	mu      sync.RWMutex
	user    *model.User
	adapter *kvstore.Adapter

	requireValidEmail bool
	now               func() time.Time
	recorder          Recorder
	logger            *slog.Logger
}

// NewStore は未ログイン状態のStoreを生成する。保存済みセッションの復元は CheckAuth で行う。
func NewStore(adapter *kvstore.Adapter, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		adapter:           adapter,
		requireValidEmail: opts.RequireValidEmail,
		now:               opts.Now,
		recorder:          opts.Recorder,
		logger:            opts.Logger,
	}
}

// Login はemailとpasswordが空でなければセッションを作成して永続化し、trueを返す。
// いずれかが空の場合はfalseを返し、状態は変更しない。
func (s *Store) Login(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		s.recordLogin(false)
		return false, nil
	}
	if s.requireValidEmail && !validation.Email(email) {
		s.recordLogin(false)
		return false, nil
	}

	user := newDemoUser(email, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.adapter.Save(ctx, StorageKey, user); err != nil {
		if s.recorder != nil {
			s.recorder.RecordPersistenceFailure(StorageKey)
		}
		return false, fmt.Errorf("failed to persist session: %w", err)
	}
	s.user = &user

	s.recordLogin(true)
	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("name", user.Name),
	)
	return true, nil
}

// Logout はセッションを破棄する。保存済みレコードの削除に失敗してもメモリ上のセッションは破棄する。
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	if err := s.adapter.Remove(ctx, StorageKey); err != nil {
		if s.recorder != nil {
			s.recorder.RecordPersistenceFailure(StorageKey)
		}
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// CheckAuth は保存済みのセッションがあればメモリ上に復元する。
// 保存データが破損している場合はレコードを削除し、CORRUPT_STATE の *model.APIError を返す。
func (s *Store) CheckAuth(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var user model.User
	found, err := s.adapter.Load(ctx, StorageKey, &user)
	if err != nil {
		if !errors.Is(err, kvstore.ErrCorrupt) {
			return fmt.Errorf("failed to restore session: %w", err)
		}
		if s.recorder != nil {
			s.recorder.RecordCorruptState(StorageKey)
		}
		s.user = nil
		s.logger.Warn("saved session is corrupt, discarding",
			slog.String("error", err.Error()),
		)
		corruptErr := model.NewCorruptStateError(StorageKey, model.CorruptActionRelogin, err)
		if rmErr := s.adapter.Remove(ctx, StorageKey); rmErr != nil {
			return errors.Join(corruptErr, rmErr)
		}
		return corruptErr
	}
	if !found {
		return nil
	}

	s.user = &user
	return nil
}

// User は現在のログインユーザーを返す。未ログインの場合はok=falseを返す。
func (s *Store) User() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// IsAuthenticated はログイン中かどうかを返す。
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Store) recordLogin(success bool) {
	if s.recorder != nil {
		s.recorder.RecordLogin(success)
	}
}

// newDemoUser はemailからデモ用のユーザーを組み立てる。
// 名前はメールアドレスの@より前の部分を使う。
func newDemoUser(email string, now time.Time) model.User {
	name, _, _ := strings.Cut(email, "@")
	return model.User{
		ID:        DemoUserID,
		Email:     email,
		Name:      name,
		Avatar:    AvatarURL(name),
		CreatedAt: now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// AvatarURL は名前からアバター画像のURLを生成する。
func AvatarURL(name string) string {
	return avatarBaseURL + "?name=" + url.QueryEscape(name) + "&background=random"
}
