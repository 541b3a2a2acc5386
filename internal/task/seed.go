package task

import "github.com/hitoshi/taskmaster/internal/model"

// demoUserID はデモタスクの所有者。ログイン時に発行されるユーザーIDと同じ値。
const demoUserID = "1"

// SeedTasks は保存データが存在しない場合に投入するデモタスクを返す。
// 呼び出しごとに新しいスライスを返す。文言はデモデータとして原文のまま保持する。
func SeedTasks() []model.Task {
	return []model.Task{
		{
			ID:          "1",
			Title:       "Completar documentación del proyecto",
			Description: "Escribir la documentación técnica completa",
			Status:      model.TaskStatusCompleted,
			Priority:    model.TaskPriorityHigh,
			DueDate:     "2026-01-14",
			CreatedAt:   "2026-01-10",
			UserID:      demoUserID,
		},
		{
			ID:          "2",
			Title:       "Implementar sistema de autenticación",
			Description: "Configurar login y protección de rutas",
			Status:      model.TaskStatusCompleted,
			Priority:    model.TaskPriorityHigh,
			DueDate:     "2026-01-12",
			CreatedAt:   "2026-01-10",
			UserID:      demoUserID,
		},
		{
			ID:          "3",
			Title:       "Diseñar interfaz de usuario",
			Description: "Crear mockups y prototipos de la UI",
			Status:      model.TaskStatusInProgress,
			Priority:    model.TaskPriorityMedium,
			DueDate:     "2026-01-15",
			CreatedAt:   "2026-01-11",
			UserID:      demoUserID,
		},
		{
			ID:          "4",
			Title:       "Integrar APIs externas",
			Description: "Conectar servicios de terceros necesarios",
			Status:      model.TaskStatusPending,
			Priority:    model.TaskPriorityMedium,
			DueDate:     "2026-01-18",
			CreatedAt:   "2026-01-11",
			UserID:      demoUserID,
		},
		{
			ID:          "5",
			Title:       "Configurar deployment en producción",
			Description: "Setup de CI/CD y configuración de servidor",
			Status:      model.TaskStatusPending,
			Priority:    model.TaskPriorityHigh,
			DueDate:     "2026-01-20",
			CreatedAt:   "2026-01-12",
			UserID:      demoUserID,
		},
		{
			ID:          "6",
			Title:       "Escribir tests unitarios",
			Description: "Cobertura de tests para componentes críticos",
			Status:      model.TaskStatusPending,
			Priority:    model.TaskPriorityLow,
			DueDate:     "2026-01-25",
			CreatedAt:   "2026-01-12",
			UserID:      demoUserID,
		},
	}
}
