// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/taskmaster/internal/middleware"
	"github.com/hitoshi/taskmaster/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
// auth.Store が実装する。
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (bool, error)
	Logout(ctx context.Context) error
	User() (model.User, bool)
	IsAuthenticated() bool
}

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
// task.Store が実装する。
type TaskServiceInterface interface {
	Tasks() []model.Task
	ByStatus(status model.TaskStatus) []model.Task
	Get(id string) (model.Task, bool)
	Stats() model.TaskStats
	Add(ctx context.Context, in model.TaskCreate) (model.Task, error)
	Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, bool, error)
	Delete(ctx context.Context, id string) (int, error)
	Reseed(ctx context.Context) ([]model.Task, error)
	Err() error
}

// Session はクライアント1つ分のストア一式。
type Session struct {
	Tasks TaskServiceInterface
	Auth  AuthServiceInterface
}

// SessionProvider はクライアントIDからSessionを解決する。
type SessionProvider interface {
	Session(ctx context.Context, clientID string) (*Session, error)
}

// AuthHandler はログイン・ログアウト関連のHTTPハンドラー。
type AuthHandler struct {
	sessions SessionProvider
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(sessions SessionProvider) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login はメールアドレスとパスワードでログインする。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	loggedIn, err := sess.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if !loggedIn {
		middleware.WriteError(w, model.NewInvalidCredentialsError())
		return
	}

	user, _ := sess.Auth.User()
	writeJSON(w, http.StatusOK, user)
}

// Logout はセッションを破棄する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}

	if err := sess.Auth.Logout(r.Context()); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}

	user, ok := sess.Auth.User()
	if !ok {
		middleware.WriteError(w, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// resolveSession はリクエストのクライアントIDからSessionを取得する。
// 失敗時はエラーレスポンスを書き込み、falseを返す。
func resolveSession(w http.ResponseWriter, r *http.Request, sessions SessionProvider) (*Session, bool) {
	clientID, err := middleware.ClientIDFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return nil, false
	}

	sess, err := sessions.Session(r.Context(), clientID)
	if err != nil {
		middleware.WriteError(w, err)
		return nil, false
	}
	return sess, true
}

// writeJSON はvをJSONでレスポンスに書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
