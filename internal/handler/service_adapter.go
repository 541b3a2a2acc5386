package handler

import (
	"context"

	"github.com/hitoshi/taskmaster/internal/workspace"
)

// WorkspaceAdapter は workspace.Registry を SessionProvider に適合させる。
type WorkspaceAdapter struct {
	registry *workspace.Registry
}

// NewWorkspaceAdapter はWorkspaceAdapterを生成する。
func NewWorkspaceAdapter(registry *workspace.Registry) *WorkspaceAdapter {
	return &WorkspaceAdapter{registry: registry}
}

// Session はクライアントのWorkspaceを取得し、ハンドラー用のSessionとして返す。
func (a *WorkspaceAdapter) Session(ctx context.Context, clientID string) (*Session, error) {
	ws, err := a.registry.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &Session{Tasks: ws.Tasks, Auth: ws.Auth}, nil
}
