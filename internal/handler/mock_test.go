package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/taskmaster/internal/middleware"
	"github.com/hitoshi/taskmaster/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	loginFn  func(ctx context.Context, email, password string) (bool, error)
	logoutFn func(ctx context.Context) error
	user     *model.User
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (bool, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return false, nil
}

func (m *mockAuthService) Logout(ctx context.Context) error {
	m.user = nil
	if m.logoutFn != nil {
		return m.logoutFn(ctx)
	}
	return nil
}

func (m *mockAuthService) User() (model.User, bool) {
	if m.user == nil {
		return model.User{}, false
	}
	return *m.user, true
}

func (m *mockAuthService) IsAuthenticated() bool {
	return m.user != nil
}

// mockTaskService はTaskServiceInterfaceのモック実装。
type mockTaskService struct {
	tasksFn    func() []model.Task
	byStatusFn func(status model.TaskStatus) []model.Task
	getFn      func(id string) (model.Task, bool)
	statsFn    func() model.TaskStats
	addFn      func(ctx context.Context, in model.TaskCreate) (model.Task, error)
	updateFn   func(ctx context.Context, id string, patch model.TaskPatch) (model.Task, bool, error)
	deleteFn   func(ctx context.Context, id string) (int, error)
	reseedFn   func(ctx context.Context) ([]model.Task, error)
	err        error
}

func (m *mockTaskService) Tasks() []model.Task {
	if m.tasksFn != nil {
		return m.tasksFn()
	}
	return []model.Task{}
}

func (m *mockTaskService) ByStatus(status model.TaskStatus) []model.Task {
	if m.byStatusFn != nil {
		return m.byStatusFn(status)
	}
	return []model.Task{}
}

func (m *mockTaskService) Get(id string) (model.Task, bool) {
	if m.getFn != nil {
		return m.getFn(id)
	}
	return model.Task{}, false
}

func (m *mockTaskService) Stats() model.TaskStats {
	if m.statsFn != nil {
		return m.statsFn()
	}
	return model.TaskStats{}
}

func (m *mockTaskService) Add(ctx context.Context, in model.TaskCreate) (model.Task, error) {
	if m.addFn != nil {
		return m.addFn(ctx, in)
	}
	return model.Task{}, nil
}

func (m *mockTaskService) Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, bool, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return model.Task{}, false, nil
}

func (m *mockTaskService) Delete(ctx context.Context, id string) (int, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return 0, nil
}

func (m *mockTaskService) Reseed(ctx context.Context) ([]model.Task, error) {
	if m.reseedFn != nil {
		return m.reseedFn(ctx)
	}
	return []model.Task{}, nil
}

func (m *mockTaskService) Err() error {
	return m.err
}

// mockSessionProvider はSessionProviderのモック実装。
type mockSessionProvider struct {
	sessionFn func(ctx context.Context, clientID string) (*Session, error)
}

func (m *mockSessionProvider) Session(ctx context.Context, clientID string) (*Session, error) {
	return m.sessionFn(ctx, clientID)
}

// --- テストヘルパー ---

var demoUser = model.User{
	ID:        "1",
	Email:     "a@b.com",
	Name:      "a",
	Avatar:    "https://ui-avatars.com/api/?name=a&background=random",
	CreatedAt: "2026-01-10T12:00:00.000Z",
}

// staticSessions は常に同じSessionを返すSessionProviderを生成する。
func staticSessions(auth *mockAuthService, tasks *mockTaskService) *mockSessionProvider {
	return &mockSessionProvider{
		sessionFn: func(ctx context.Context, clientID string) (*Session, error) {
			return &Session{Tasks: tasks, Auth: auth}, nil
		},
	}
}

// loggedIn はログイン済みのmockAuthServiceを返す。
func loggedIn() *mockAuthService {
	u := demoUser
	return &mockAuthService{user: &u}
}

// withClientID はテスト用にリクエストコンテキストにクライアントIDを注入するヘルパー。
func withClientID(r *http.Request, clientID string) *http.Request {
	return r.WithContext(middleware.ContextWithClientID(r.Context(), clientID))
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}
