package screen

import (
	"context"
	"sync"

	"github.com/nurduman/pinn-app/model"
	"github.com/nurduman/pinn-app/service/task"
)

// 编辑页校验提示
const (
	MessageEmptyTitleOrDescription = "标题和描述不能为空"
	MessageMissingFiles            = "需要同时设置几何文件和表面温度文件"
)

// EditState 编辑页状态快照
type EditState struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Conductivity    float64 `json:"conductivity"`
	Radius          float64 `json:"radius"`
	Depth           float64 `json:"depth"`
	GeometryFile    *string `json:"geometry_file,omitempty"`
	SurfaceTempFile *string `json:"surface_temp_file,omitempty"`
	IsCompleted     bool    `json:"is_completed"`

	Loading     bool   `json:"loading"`
	UserMessage string `json:"user_message,omitempty"`
	TaskSaved   bool   `json:"task_saved"`
	SavedTaskID string `json:"saved_task_id,omitempty"`
}

// EditController 编辑页控制器。持有一份草稿，setter 逐字段修改，
// Save 校验后路由到新建或更新。taskID 为空表示新建模式。
type EditController struct {
	taskID string
	tasks  *task.Service

	mu     sync.Mutex
	state  EditState
	closed bool
	states chan EditState
}

// NewEditController 创建编辑控制器。带 taskID 时把现有任务读进草稿，
// 任务不存在返回 NotFound。
func NewEditController(ctx context.Context, tasks *task.Service, taskID string) (*EditController, error) {
	c := &EditController{
		taskID: taskID,
		tasks:  tasks,
		states: make(chan EditState, 1),
	}

	if taskID != "" {
		existing, err := tasks.Get(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, model.NewError(model.ErrorTaskNotFound, nil)
		}
		c.state = EditState{
			Title:           existing.Title,
			Description:     existing.Description,
			Conductivity:    existing.Conductivity,
			Radius:          existing.Radius,
			Depth:           existing.Depth,
			GeometryFile:    existing.GeometryFile,
			SurfaceTempFile: existing.SurfaceTempFile,
			IsCompleted:     existing.IsCompleted,
		}
	}

	c.publish()
	return c, nil
}

// States 状态流，只保最新
func (c *EditController) States() <-chan EditState {
	return c.states
}

// State 当前快照
func (c *EditController) State() EditState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *EditController) SetTitle(title string) {
	c.mutate(func(s *EditState) { s.Title = title })
}

func (c *EditController) SetDescription(description string) {
	c.mutate(func(s *EditState) { s.Description = description })
}

func (c *EditController) SetConductivity(conductivity float64) {
	c.mutate(func(s *EditState) { s.Conductivity = conductivity })
}

func (c *EditController) SetRadius(radius float64) {
	c.mutate(func(s *EditState) { s.Radius = radius })
}

func (c *EditController) SetDepth(depth float64) {
	c.mutate(func(s *EditState) { s.Depth = depth })
}

func (c *EditController) SetGeometryFile(path string) {
	c.mutate(func(s *EditState) { s.GeometryFile = &path })
}

func (c *EditController) SetSurfaceTempFile(path string) {
	c.mutate(func(s *EditState) { s.SurfaceTempFile = &path })
}

// Save 校验草稿并落库。标题/描述为空，或任一文件引用缺失时，
// 只给提示不碰存储，TaskSaved 保持 false。
func (c *EditController) Save(ctx context.Context) error {
	c.mu.Lock()
	draft := c.state
	c.mu.Unlock()

	if draft.Title == "" || draft.Description == "" {
		c.mutate(func(s *EditState) { s.UserMessage = MessageEmptyTitleOrDescription })
		return nil
	}
	if !hasFile(draft.GeometryFile) || !hasFile(draft.SurfaceTempFile) {
		c.mutate(func(s *EditState) { s.UserMessage = MessageMissingFiles })
		return nil
	}

	if c.taskID == "" {
		createdID, err := c.tasks.Create(ctx, &model.CreateTaskCondition{
			Title:           draft.Title,
			Description:     draft.Description,
			Conductivity:    draft.Conductivity,
			Radius:          draft.Radius,
			Depth:           draft.Depth,
			GeometryFile:    draft.GeometryFile,
			SurfaceTempFile: draft.SurfaceTempFile,
		})
		if err != nil {
			c.mutate(func(s *EditState) { s.UserMessage = err.Error() })
			return err
		}
		c.mutate(func(s *EditState) {
			s.TaskSaved = true
			s.SavedTaskID = createdID
		})
		return nil
	}

	err := c.tasks.Update(ctx, c.taskID, &model.UpdateTaskCondition{
		Title:           &draft.Title,
		Description:     &draft.Description,
		Conductivity:    &draft.Conductivity,
		Radius:          &draft.Radius,
		Depth:           &draft.Depth,
		GeometryFile:    draft.GeometryFile,
		SurfaceTempFile: draft.SurfaceTempFile,
	})
	if err != nil {
		c.mutate(func(s *EditState) { s.UserMessage = err.Error() })
		return err
	}

	c.mutate(func(s *EditState) {
		s.TaskSaved = true
		s.SavedTaskID = c.taskID
	})
	return nil
}

// MessageShown 一次性提示已被展示，清掉
func (c *EditController) MessageShown() {
	c.mutate(func(s *EditState) { s.UserMessage = "" })
}

// Close 关闭状态流
func (c *EditController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.states)
}

func (c *EditController) mutate(fn func(*EditState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
	c.publishLocked()
}

func (c *EditController) publish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishLocked()
}

func (c *EditController) publishLocked() {
	if c.closed {
		return
	}
	select {
	case <-c.states:
	default:
	}
	c.states <- c.state
}

func hasFile(ref *string) bool {
	return ref != nil && *ref != ""
}
