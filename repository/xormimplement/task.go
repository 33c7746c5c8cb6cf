package xormimplement

import (
	"fmt"

	"github.com/nurduman/pinn-app/entity"
	"github.com/nurduman/pinn-app/model"
	"github.com/nurduman/pinn-app/repository"

	"xorm.io/builder"
)

// ========== TaskRepository 实现 ==========

type TaskRepository struct {
	session *Session
}

func NewTaskRepository(session *Session) repository.TaskRepository {
	return &TaskRepository{session: session}
}

func (r *TaskRepository) Insert(task *entity.Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if task.ID == "" {
		return fmt.Errorf("task id is required")
	}

	_, err := r.session.Table(entity.TableNameTask).Insert(task)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

func (r *TaskRepository) Get(taskID string) (*entity.Task, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task_id is required")
	}

	result := &entity.Task{}
	ok, err := r.session.Table(entity.TableNameTask).
		Where(builder.Eq{entity.TaskFieldID: taskID}).
		Get(result)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if !ok {
		return nil, nil
	}

	return result, nil
}

func (r *TaskRepository) Update(taskID string, req *model.UpdateTaskCondition) (int64, error) {
	if taskID == "" {
		return 0, fmt.Errorf("task_id is required")
	}
	if req == nil {
		return 0, fmt.Errorf("update request cannot be nil")
	}

	updateData := make(map[string]interface{})
	if req.Title != nil {
		updateData[entity.TaskFieldTitle] = *req.Title
	}
	if req.Description != nil {
		updateData[entity.TaskFieldDescription] = *req.Description
	}
	if req.Conductivity != nil {
		updateData[entity.TaskFieldConductivity] = *req.Conductivity
	}
	if req.Radius != nil {
		updateData[entity.TaskFieldRadius] = *req.Radius
	}
	if req.Depth != nil {
		updateData[entity.TaskFieldDepth] = *req.Depth
	}
	if req.GeometryFile != nil {
		updateData[entity.TaskFieldGeometryFile] = *req.GeometryFile
	}
	if req.SurfaceTempFile != nil {
		updateData[entity.TaskFieldSurfaceTempFile] = *req.SurfaceTempFile
	}
	if req.IsCompleted != nil {
		updateData[entity.TaskFieldIsCompleted] = *req.IsCompleted
	}

	if len(updateData) == 0 {
		return 0, nil
	}

	affected, err := r.session.Table(entity.TableNameTask).
		Where(builder.Eq{entity.TaskFieldID: taskID}).
		Update(updateData)
	if err != nil {
		return 0, fmt.Errorf("failed to update task: %w", err)
	}

	return affected, nil
}

func (r *TaskRepository) SetCompleted(taskID string, completed bool) (int64, error) {
	if taskID == "" {
		return 0, fmt.Errorf("task_id is required")
	}

	affected, err := r.session.Table(entity.TableNameTask).
		Where(builder.Eq{entity.TaskFieldID: taskID}).
		Update(map[string]interface{}{entity.TaskFieldIsCompleted: completed})
	if err != nil {
		return 0, fmt.Errorf("failed to set task completed: %w", err)
	}

	return affected, nil
}

func (r *TaskRepository) Delete(taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task_id is required")
	}

	_, err := r.session.Table(entity.TableNameTask).
		Where(builder.Eq{entity.TaskFieldID: taskID}).
		Delete(&entity.Task{})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

func (r *TaskRepository) List(condition *model.TaskListCondition) ([]*entity.Task, error) {
	session := r.session.Table(entity.TableNameTask)

	if condition != nil && condition.IsCompleted != nil {
		session = session.Where(builder.Eq{entity.TaskFieldIsCompleted: *condition.IsCompleted})
	}

	pagerOrder(session, condition, WithDefaultOrderField(entity.TaskFieldID), WithDefaultOrderAsc())

	var results []*entity.Task
	if err := session.Find(&results); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return results, nil
}
