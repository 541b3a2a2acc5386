// Package workspace はクライアントごとのタスクストアと認証ストアを管理する。
// クライアントはclient_id Cookieで識別され、保存データはクライアントIDで名前空間を分ける。
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/taskmaster/internal/auth"
	"github.com/hitoshi/taskmaster/internal/kvstore"
	"github.com/hitoshi/taskmaster/internal/metrics"
	"github.com/hitoshi/taskmaster/internal/task"
)

// DefaultIdleTTL はOptions.IdleTTL未指定時のアイドル期限。
const DefaultIdleTTL = 30 * time.Minute

// DefaultTouchInterval はOptions.TouchInterval未指定時の最終アクセス記録の間隔。
const DefaultTouchInterval = time.Hour

// LastSeenKey は最終アクセス時刻を保存するキー。
// 読み取りだけのクライアントでも名前空間のupdated_atが進み、保存データの掃除対象にならない。
const LastSeenKey = "last_seen"

// Workspace は1クライアント分のストア一式。
type Workspace struct {
	ClientID string
	Tasks    *task.Store
	Auth     *auth.Store
}

// Options はRegistryの生成オプション。
type Options struct {
	// Store はnilの場合、永続化なし（保存は常に無視される）で動作する。
	Store             kvstore.Store
	ReseedOnCorrupt   bool
	RequireValidEmail bool
	IdleTTL           time.Duration
	TouchInterval     time.Duration
	Now               func() time.Time
	Metrics           metrics.MetricsCollector
	Logger            *slog.Logger
}

type entry struct {
	ws       *Workspace
	mu       sync.Mutex // 初期化の直列化
	loaded   bool
	touched  time.Time // entry.muで保護
	lastUsed time.Time // Registry.muで保護
}

// Registry はクライアントIDからWorkspaceを引くレジストリ。
// メモリ上のWorkspaceは一定時間アクセスがなければ Sweep で破棄される。保存データは残る。
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	store             kvstore.Store
	reseedOnCorrupt   bool
	requireValidEmail bool
	idleTTL           time.Duration
	touchInterval     time.Duration
	now               func() time.Time
	metrics           metrics.MetricsCollector
	logger            *slog.Logger
}

// NewRegistry は空のRegistryを生成する。
func NewRegistry(opts Options) *Registry {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.TouchInterval <= 0 {
		opts.TouchInterval = DefaultTouchInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Registry{
		entries:           make(map[string]*entry),
		store:             opts.Store,
		reseedOnCorrupt:   opts.ReseedOnCorrupt,
		requireValidEmail: opts.RequireValidEmail,
		idleTTL:           opts.IdleTTL,
		touchInterval:     opts.TouchInterval,
		now:               opts.Now,
		metrics:           opts.Metrics,
		logger:            opts.Logger,
	}
}

// Get はclientIDのWorkspaceを返す。初回アクセス時は生成して保存データを復元する。
// 保存データの破損はログに記録して続行し、それ以外の読み込みエラーは返す。
// エラー時は次回のGetで再度復元を試みる。
// 最終アクセス時刻はTouchIntervalごとに保存する。
func (r *Registry) Get(ctx context.Context, clientID string) (*Workspace, error) {
	if clientID == "" {
		return nil, errors.New("client id is required")
	}

	e := r.acquire(clientID)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		if err := r.restore(ctx, e.ws); err != nil {
			return nil, err
		}
		e.loaded = true
	}
	r.touch(ctx, e)
	return e.ws, nil
}

// touch は最終アクセス時刻を保存する。失敗はログに記録するだけでリクエストは続行する。
func (r *Registry) touch(ctx context.Context, e *entry) {
	if r.store == nil {
		return
	}
	now := r.now()
	if !e.touched.IsZero() && now.Sub(e.touched) < r.touchInterval {
		return
	}

	ns := kvstore.Namespaced(r.store, e.ws.ClientID)
	if err := ns.Set(ctx, LastSeenKey, []byte(now.UTC().Format(time.RFC3339))); err != nil {
		r.logger.Warn("failed to record last access",
			slog.String("client_id", e.ws.ClientID),
			slog.String("error", err.Error()),
		)
		return
	}
	e.touched = now
}

func (r *Registry) acquire(clientID string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[clientID]
	if !ok {
		e = &entry{ws: r.newWorkspace(clientID)}
		r.entries[clientID] = e
		r.metrics.SetActiveWorkspaces(len(r.entries))
	}
	e.lastUsed = r.now()
	return e
}

func (r *Registry) newWorkspace(clientID string) *Workspace {
	logger := r.logger.With(slog.String("client_id", clientID))

	adapter := kvstore.NewAdapter(kvstore.Namespaced(r.store, clientID))

	return &Workspace{
		ClientID: clientID,
		Tasks: task.NewStore(adapter, task.Options{
			ReseedOnCorrupt: r.reseedOnCorrupt,
			Now:             r.now,
			Recorder:        r.metrics,
			Logger:          logger,
		}),
		Auth: auth.NewStore(adapter, auth.Options{
			RequireValidEmail: r.requireValidEmail,
			Now:               r.now,
			Recorder:          r.metrics,
			Logger:            logger,
		}),
	}
}

func (r *Registry) restore(ctx context.Context, ws *Workspace) error {
	if err := ws.Auth.CheckAuth(ctx); err != nil && !errors.Is(err, kvstore.ErrCorrupt) {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	if err := ws.Tasks.Load(ctx); err != nil && !errors.Is(err, kvstore.ErrCorrupt) {
		return fmt.Errorf("failed to restore tasks: %w", err)
	}
	return nil
}

// Len はメモリ上のWorkspace数を返す。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep はアイドル期限を過ぎたWorkspaceをメモリから破棄し、破棄した数を返す。
func (r *Registry) Sweep(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTTL)
	evicted := 0
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			delete(r.entries, id)
			evicted++
		}
	}
	r.metrics.SetActiveWorkspaces(len(r.entries))
	return evicted, nil
}
