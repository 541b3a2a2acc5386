package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/taskmaster/internal/middleware"
	"github.com/hitoshi/taskmaster/internal/model"
	"github.com/hitoshi/taskmaster/internal/task"
)

// TaskHandler はタスク管理のHTTPハンドラー。
// すべての操作はログイン済みのクライアントに限る。
type TaskHandler struct {
	sessions SessionProvider
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(sessions SessionProvider) *TaskHandler {
	return &TaskHandler{sessions: sessions}
}

// taskResponse はタスクのAPIレスポンス。期限日の表示用文字列を含む。
type taskResponse struct {
	model.Task
	DueDateFormatted string `json:"dueDateFormatted"`
}

// ListTasks はタスク一覧を返す。statusクエリで絞り込める。
// GET /api/tasks?status=pending
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, ok := h.authorizedTasks(w, r)
	if !ok {
		return
	}

	var list []model.Task
	if s := r.URL.Query().Get("status"); s != "" {
		status := model.TaskStatus(s)
		if !status.Valid() {
			middleware.WriteError(w, model.NewInvalidRequestError("statusにはpending、in-progress、completedのいずれかを指定してください"))
			return
		}
		list = tasks.ByStatus(status)
	} else {
		list = tasks.Tasks()
	}

	resp := make([]taskResponse, 0, len(list))
	for _, t := range list {
		resp = append(resp, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Stats はステータス別のタスク件数を返す。
// GET /api/tasks/stats
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	tasks, ok := h.authorizedTasks(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, tasks.Stats())
}

// CreateTask はタスクを追加する。
// POST /api/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	tasks, ok := h.authorizedTasks(w, r)
	if !ok {
		return
	}

	var req model.TaskCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	created, err := tasks.Add(r.Context(), req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTaskResponse(created))
}

// GetTask はタスク詳細を返す。
// GET /api/tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	tasks, ok := h.authorizedTasks(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	t, found := tasks.Get(id)
	if !found {
		middleware.WriteError(w, model.NewTaskNotFoundError(id))
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

// UpdateTask はタスクを部分更新する。idとcreatedAtは変更できない。
// PATCH /api/tasks/{id}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	tasks, ok := h.authorizedTasks(w, r)
	if !ok {
		return
	}

	var patch model.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		middleware.WriteError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	id := chi.URLParam(r, "id")
	updated, found, err := tasks.Update(r.Context(), id, patch)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if !found {
		middleware.WriteError(w, model.NewTaskNotFoundError(id))
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(updated))
}

// DeleteTask はタスクを削除する。存在しないIDでも204を返す。
// DELETE /api/tasks/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	tasks, ok := h.authorizedTasks(w, r)
	if !ok {
		return
	}

	if _, err := tasks.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResetTasks は一覧をデモタスクで置き換える。
// 保存データが破損している場合も実行でき、破損データを上書きする。
// POST /api/tasks/reset
func (h *TaskHandler) ResetTasks(w http.ResponseWriter, r *http.Request) {
	tasks, ok := h.loggedInTasks(w, r)
	if !ok {
		return
	}

	list, err := tasks.Reseed(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	resp := make([]taskResponse, 0, len(list))
	for _, t := range list {
		resp = append(resp, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// authorizedTasks はログイン済みクライアントのタスクストアを返す。
// 未ログインの場合は401、保存データが破損している場合は409を書き込み、falseを返す。
func (h *TaskHandler) authorizedTasks(w http.ResponseWriter, r *http.Request) (TaskServiceInterface, bool) {
	tasks, ok := h.loggedInTasks(w, r)
	if !ok {
		return nil, false
	}
	if err := tasks.Err(); err != nil {
		middleware.WriteError(w, err)
		return nil, false
	}
	return tasks, true
}

func (h *TaskHandler) loggedInTasks(w http.ResponseWriter, r *http.Request) (TaskServiceInterface, bool) {
	sess, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return nil, false
	}
	if !sess.Auth.IsAuthenticated() {
		middleware.WriteError(w, model.NewUnauthorizedError())
		return nil, false
	}
	return sess.Tasks, true
}

func toTaskResponse(t model.Task) taskResponse {
	return taskResponse{
		Task:             t,
		DueDateFormatted: task.FormatTaskDate(t.DueDate),
	}
}
