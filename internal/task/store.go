// Package task はタスク一覧のインメモリストアを提供する。
// すべての更新操作は直後に一覧全体を永続化層へ書き込む（write-through）。
package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/taskmaster/internal/format"
	"github.com/hitoshi/taskmaster/internal/kvstore"
	"github.com/hitoshi/taskmaster/internal/model"
)

// StorageKey はタスク一覧を保存する永続化キー。
const StorageKey = "tasks"

// 操作種別（メトリクスのラベル）
const (
	opAdd    = "add"
	opUpdate = "update"
	opDelete = "delete"
)

// Recorder はタスクストアが記録するメトリクスのインターフェース。
// metrics.MetricsCollector の部分集合として定義する。
type Recorder interface {
	RecordTaskMutation(op string)
	RecordPersistenceFailure(key string)
	RecordCorruptState(key string)
}

// Options はStoreの生成オプション。
type Options struct {
	// ReseedOnCorrupt がtrueの場合、保存データが破損していればデモタスクで再初期化する。
	// falseの場合は一覧を空のままにし、保存データには手を触れない。
	ReseedOnCorrupt bool
	Now             func() time.Time
	Recorder        Recorder
	Logger          *slog.Logger
}

// Store はタスク一覧を保持するストア。
// 一覧はこのストアだけが所有し、永続化層は書き込みを受けるだけで読み戻しは Load のみで行う。
type Store struct {
	mu      sync.RWMutex
	tasks   []model.Task
	lastID  int64
	adapter *kvstore.Adapter
	// corrupt は再初期化せずに破損を検出した場合のエラー。nil以外の間は更新操作を拒否する。
	corrupt error

	reseedOnCorrupt bool
	now             func() time.Time
	recorder        Recorder
	logger          *slog.Logger
}

// NewStore は空のStoreを生成する。保存データの読み込みは Load で行う。
func NewStore(adapter *kvstore.Adapter, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		adapter:         adapter,
		reseedOnCorrupt: opts.ReseedOnCorrupt,
		now:             opts.Now,
		recorder:        opts.Recorder,
		logger:          opts.Logger,
	}
}

// Load は保存データから一覧を復元する。
// 保存データがない場合はデモタスクを投入して永続化する。
// 保存データが破損している場合は CORRUPT_STATE の *model.APIError を返す。
// ReseedOnCorrupt 有効時はこの時点でデモタスクへの再初期化と永続化が済んでいる。
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loaded []model.Task
	found, err := s.adapter.Load(ctx, StorageKey, &loaded)
	if err != nil {
		if !errors.Is(err, kvstore.ErrCorrupt) {
			return fmt.Errorf("failed to load tasks: %w", err)
		}
		return s.recoverCorrupt(ctx, err)
	}

	s.corrupt = nil
	if !found {
		s.tasks = SeedTasks()
		s.logger.Info("no saved tasks, seeding demo tasks",
			slog.Int("count", len(s.tasks)),
		)
		return s.persist(ctx)
	}

	s.tasks = loaded
	return nil
}

// recoverCorrupt は破損した保存データへの対処を行う。呼び出し側でロックを保持すること。
func (s *Store) recoverCorrupt(ctx context.Context, cause error) error {
	if s.recorder != nil {
		s.recorder.RecordCorruptState(StorageKey)
	}
	if !s.reseedOnCorrupt {
		corruptErr := model.NewCorruptStateError(StorageKey, model.CorruptActionReset, cause)
		s.tasks = nil
		s.corrupt = corruptErr
		s.logger.Error("saved tasks are corrupt, mutations are blocked until reseed",
			slog.String("error", cause.Error()),
		)
		return corruptErr
	}

	corruptErr := model.NewCorruptStateError(StorageKey, model.CorruptActionReseeded, cause)
	s.corrupt = nil
	s.tasks = SeedTasks()
	s.logger.Warn("saved tasks are corrupt, reseeding demo tasks",
		slog.String("error", cause.Error()),
	)
	if err := s.persist(ctx); err != nil {
		return errors.Join(corruptErr, err)
	}
	return corruptErr
}

// Add は新しいタスクを採番して末尾に追加し、永続化する。
func (s *Store) Add(ctx context.Context, in model.TaskCreate) (model.Task, error) {
	if err := validateCreate(in); err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.corrupt != nil {
		return model.Task{}, s.corrupt
	}

	now := s.now()
	task := model.Task{
		ID:          s.nextID(now),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		CreatedAt:   format.Today(now),
		UserID:      in.UserID,
	}

	prev := s.tasks
	s.tasks = append(slices.Clip(s.tasks), task)
	if err := s.persist(ctx); err != nil {
		s.tasks = prev
		return model.Task{}, err
	}

	s.record(opAdd)
	return task, nil
}

// Update は指定IDのタスクにpatchを適用し、永続化する。
// 該当IDが存在しない場合は何もせず updated=false を返す（エラーではない）。
func (s *Store) Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, bool, error) {
	if err := validatePatch(patch); err != nil {
		return model.Task{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.corrupt != nil {
		return model.Task{}, false, s.corrupt
	}

	index := slices.IndexFunc(s.tasks, func(t model.Task) bool { return t.ID == id })
	if index == -1 {
		return model.Task{}, false, nil
	}

	prev := s.tasks
	next := slices.Clone(s.tasks)
	patch.ApplyTo(&next[index])
	s.tasks = next

	if err := s.persist(ctx); err != nil {
		s.tasks = prev
		return model.Task{}, false, err
	}

	s.record(opUpdate)
	return next[index], true, nil
}

// Delete は指定IDのタスクをすべて削除し、永続化する。
// 削除件数を返す。該当がなくても永続化は行う。
func (s *Store) Delete(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.corrupt != nil {
		return 0, s.corrupt
	}

	prev := s.tasks
	next := slices.DeleteFunc(slices.Clone(s.tasks), func(t model.Task) bool { return t.ID == id })
	removed := len(prev) - len(next)
	s.tasks = next

	if err := s.persist(ctx); err != nil {
		s.tasks = prev
		return 0, err
	}

	s.record(opDelete)
	return removed, nil
}

// Reseed は一覧をデモタスクで置き換えて永続化する。
// 破損データで更新操作が止まっている場合は、保存データを上書きして解除する。
// 永続化に失敗した場合は元の状態に戻す。
func (s *Store) Reseed(ctx context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.tasks
	s.tasks = SeedTasks()
	if err := s.persist(ctx); err != nil {
		s.tasks = prev
		return nil, err
	}

	if s.corrupt != nil {
		s.logger.Info("corrupt tasks replaced with demo tasks")
	}
	s.corrupt = nil
	return slices.Clone(s.tasks), nil
}

// Err は破損データにより更新操作が止まっている場合に CORRUPT_STATE のエラーを返す。
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corrupt
}

// Reset はメモリ上の一覧を空にする。永続化データと破損状態は変更しない。
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
	s.lastID = 0
}

// Tasks は一覧全体のコピーを返す。
func (s *Store) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

// Get は指定IDのタスクを返す。
func (s *Store) Get(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// ByStatus は指定ステータスのタスクを一覧の順序のまま返す。
// 呼び出しごとに現在の一覧から計算するため、常に最新の状態を反映する。
func (s *Store) ByStatus(status model.TaskStatus) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []model.Task{}
	for _, t := range s.tasks {
		if t.Status == status {
			result = append(result, t)
		}
	}
	return result
}

// Completed は完了済みタスクを返す。
func (s *Store) Completed() []model.Task {
	return s.ByStatus(model.TaskStatusCompleted)
}

// Pending は未着手タスクを返す。
func (s *Store) Pending() []model.Task {
	return s.ByStatus(model.TaskStatusPending)
}

// InProgress は進行中タスクを返す。
func (s *Store) InProgress() []model.Task {
	return s.ByStatus(model.TaskStatusInProgress)
}

// Stats はステータス別の件数を返す。
func (s *Store) Stats() model.TaskStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := model.TaskStats{Total: len(s.tasks)}
	for _, t := range s.tasks {
		switch t.Status {
		case model.TaskStatusCompleted:
			stats.Completed++
		case model.TaskStatusPending:
			stats.Pending++
		case model.TaskStatusInProgress:
			stats.InProgress++
		}
	}
	return stats
}

// FormatTaskDate は日付文字列を DD/MM/YYYY 形式に整形する。
// 解析できない場合は入力をそのまま返す。
func FormatTaskDate(dateString string) string {
	t, err := format.ParseDate(dateString)
	if err != nil {
		return dateString
	}
	return format.Date(t)
}

// persist は一覧全体を永続化する。呼び出し側でロックを保持すること。
func (s *Store) persist(ctx context.Context) error {
	tasks := s.tasks
	if tasks == nil {
		tasks = []model.Task{}
	}
	if err := s.adapter.Save(ctx, StorageKey, tasks); err != nil {
		if s.recorder != nil {
			s.recorder.RecordPersistenceFailure(StorageKey)
		}
		s.logger.Error("failed to persist tasks",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to persist tasks: %w", err)
	}
	return nil
}

func (s *Store) record(op string) {
	if s.recorder != nil {
		s.recorder.RecordTaskMutation(op)
	}
}

// nextID は現在時刻のUnixミリ秒を基にIDを採番する。
// 同一ミリ秒内の連続採番や既存IDとの衝突は値を進めて回避する。呼び出し側でロックを保持すること。
func (s *Store) nextID(now time.Time) string {
	candidate := now.UnixMilli()
	if candidate <= s.lastID {
		candidate = s.lastID + 1
	}
	for s.hasID(strconv.FormatInt(candidate, 10)) {
		candidate++
	}
	s.lastID = candidate
	return strconv.FormatInt(candidate, 10)
}

func (s *Store) hasID(id string) bool {
	for _, t := range s.tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}

func validateCreate(in model.TaskCreate) error {
	if strings.TrimSpace(in.Title) == "" {
		return model.NewInvalidTaskError("title is required")
	}
	if !in.Status.Valid() {
		return model.NewInvalidTaskError(fmt.Sprintf("unknown status %q", in.Status))
	}
	if !in.Priority.Valid() {
		return model.NewInvalidTaskError(fmt.Sprintf("unknown priority %q", in.Priority))
	}
	return nil
}

func validatePatch(p model.TaskPatch) error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return model.NewInvalidTaskError("title must not be empty")
	}
	if p.Status != nil && !p.Status.Valid() {
		return model.NewInvalidTaskError(fmt.Sprintf("unknown status %q", *p.Status))
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return model.NewInvalidTaskError(fmt.Sprintf("unknown priority %q", *p.Priority))
	}
	return nil
}
