package repository

import (
	"github.com/nurduman/pinn-app/entity"
	"github.com/nurduman/pinn-app/model"
)

// TaskRepository 任务仓库接口
type TaskRepository interface {
	// ========== 任务 CRUD ==========

	// Insert 插入新任务
	Insert(task *entity.Task) error
	// Get 获取单个任务，不存在时返回 nil
	Get(taskID string) (*entity.Task, error)
	// Update 更新任务字段，返回受影响行数
	Update(taskID string, req *model.UpdateTaskCondition) (int64, error)
	// SetCompleted 设置完成标记，返回受影响行数
	SetCompleted(taskID string, completed bool) (int64, error)
	// Delete 删除任务
	Delete(taskID string) error
	// List 列出任务
	List(condition *model.TaskListCondition) ([]*entity.Task, error)
}
