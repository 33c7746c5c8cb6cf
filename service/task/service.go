package task

import (
	"context"

	"github.com/nurduman/pinn-app/entity"
	"github.com/nurduman/pinn-app/model"
	"github.com/nurduman/pinn-app/repository"
	"github.com/nurduman/pinn-app/repository/factory"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Service 任务领域服务。唯一数据源是底层存储，所有变更经由这里，
// 变更后向对应任务的订阅者重新发布该行。
type Service struct {
	factory  factory.Factory
	notifier *notifier
}

func NewService(f factory.Factory) *Service {
	return &Service{
		factory:  f,
		notifier: newNotifier(),
	}
}

// withRepository 建会话、建仓库、执行、关会话
func (s *Service) withRepository(ctx context.Context, fn func(repo repository.TaskRepository) error) error {
	session := s.factory.NewSession(ctx)
	defer func() { _ = session.Close() }()

	repo, err := s.factory.NewTaskRepository(session)
	if err != nil {
		return model.NewError(model.ErrorNewRepo, err)
	}

	return fn(repo)
}

// Create 生成 id 并插入新任务，返回 id
func (s *Service) Create(ctx context.Context, req *model.CreateTaskCondition) (string, error) {
	if req == nil {
		return "", model.NewError(model.ErrorParams, nil)
	}

	taskID := uuid.NewString()
	newTask := &entity.Task{
		ID:              taskID,
		Title:           req.Title,
		Description:     req.Description,
		Conductivity:    req.Conductivity,
		Radius:          req.Radius,
		Depth:           req.Depth,
		GeometryFile:    req.GeometryFile,
		SurfaceTempFile: req.SurfaceTempFile,
	}

	err := s.withRepository(ctx, func(repo repository.TaskRepository) error {
		if insertErr := repo.Insert(newTask); insertErr != nil {
			return model.NewError(model.ErrorDB, insertErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.notifier.Publish(taskID, newTask)
	return taskID, nil
}

// Get 获取任务，不存在时返回 nil
func (s *Service) Get(ctx context.Context, taskID string) (*entity.Task, error) {
	if taskID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}

	var result *entity.Task
	err := s.withRepository(ctx, func(repo repository.TaskRepository) error {
		got, getErr := repo.Get(taskID)
		if getErr != nil {
			return model.NewError(model.ErrorDB, getErr)
		}
		result = got
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Update 更新存在的任务；id 不存在返回 NotFound
func (s *Service) Update(ctx context.Context, taskID string, req *model.UpdateTaskCondition) error {
	if taskID == "" {
		return model.NewError(model.ErrorEmptyId, nil)
	}
	if req == nil {
		return model.NewError(model.ErrorParams, nil)
	}

	err := s.withRepository(ctx, func(repo repository.TaskRepository) error {
		affected, updateErr := repo.Update(taskID, req)
		if updateErr != nil {
			return model.NewError(model.ErrorDB, updateErr)
		}
		if affected == 0 {
			// 空更新和不存在都会是 0，查一次区分
			existing, getErr := repo.Get(taskID)
			if getErr != nil {
				return model.NewError(model.ErrorDB, getErr)
			}
			if existing == nil {
				return model.NewError(model.ErrorTaskNotFound, nil)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.refreshAndPublish(ctx, taskID)
	return nil
}

// Complete 标记完成
func (s *Service) Complete(ctx context.Context, taskID string) error {
	return s.setCompleted(ctx, taskID, true)
}

// Activate 取消完成标记
func (s *Service) Activate(ctx context.Context, taskID string) error {
	return s.setCompleted(ctx, taskID, false)
}

func (s *Service) setCompleted(ctx context.Context, taskID string, completed bool) error {
	if taskID == "" {
		return model.NewError(model.ErrorEmptyId, nil)
	}

	err := s.withRepository(ctx, func(repo repository.TaskRepository) error {
		affected, updateErr := repo.SetCompleted(taskID, completed)
		if updateErr != nil {
			return model.NewError(model.ErrorDB, updateErr)
		}
		if affected == 0 {
			return model.NewError(model.ErrorTaskNotFound, nil)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.refreshAndPublish(ctx, taskID)
	return nil
}

// Delete 删除任务并向订阅者发布终点 nil
func (s *Service) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return model.NewError(model.ErrorEmptyId, nil)
	}

	err := s.withRepository(ctx, func(repo repository.TaskRepository) error {
		if deleteErr := repo.Delete(taskID); deleteErr != nil {
			return model.NewError(model.ErrorDB, deleteErr)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Publish(taskID, nil)
	return nil
}

// Refresh 从存储重读并重新发布
func (s *Service) Refresh(ctx context.Context, taskID string) error {
	if taskID == "" {
		return model.NewError(model.ErrorEmptyId, nil)
	}

	s.refreshAndPublish(ctx, taskID)
	return nil
}

// List 列出任务
func (s *Service) List(ctx context.Context, condition *model.TaskListCondition) ([]*entity.Task, error) {
	var results []*entity.Task
	err := s.withRepository(ctx, func(repo repository.TaskRepository) error {
		listed, listErr := repo.List(condition)
		if listErr != nil {
			return model.NewError(model.ErrorDB, listErr)
		}
		results = listed
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// Watch 订阅某个任务的行变化。订阅时立刻回放当前行（不存在为 nil），
// 之后每次经由本服务的变更都会再发一次。
func (s *Service) Watch(ctx context.Context, taskID string) (*Subscription, error) {
	if taskID == "" {
		return nil, model.NewError(model.ErrorEmptyId, nil)
	}

	current, err := s.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return s.notifier.Subscribe(taskID, current), nil
}

// Close 关闭所有订阅
func (s *Service) Close() {
	s.notifier.Close()
}

func (s *Service) refreshAndPublish(ctx context.Context, taskID string) {
	current, err := s.Get(ctx, taskID)
	if err != nil {
		log.Warnf("refresh task %v failed: %v", taskID, err)
		return
	}
	s.notifier.Publish(taskID, current)
}
