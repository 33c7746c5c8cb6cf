package screen

import (
	"context"
	"fmt"
	"sync"

	"github.com/nurduman/pinn-app/entity"
	"github.com/nurduman/pinn-app/model"
	"github.com/nurduman/pinn-app/pkg/clients/pinn"
	"github.com/nurduman/pinn-app/service/task"

	log "github.com/sirupsen/logrus"
)

// Predictor 预测调用的最小接口，便于测试替换
type Predictor interface {
	Predict(ctx context.Context, conductivity, radius, depth float64, geometryPath, surfaceTempPath string) (*pinn.Output, error)
}

// 提示文案
const (
	MessageLoadingError      = "任务加载失败"
	MessagePredictionStarted = "已提交预测请求"
	MessagePredictionDone    = "预测完成"
)

// DetailState 详情页状态快照。每次任何信号变化都整体重建，不做增量修改。
type DetailState struct {
	Loading            bool         `json:"loading"`
	ErrorMessage       string       `json:"error_message,omitempty"`
	Task               *entity.Task `json:"task,omitempty"`
	PredictionInFlight bool         `json:"prediction_in_flight"`
	Optimized          *pinn.Output `json:"optimized,omitempty"`
	UserMessage        string       `json:"user_message,omitempty"`
	TaskDeleted        bool         `json:"task_deleted"`
}

// DetailController 详情页控制器。订阅任务行，把行变化、预测生命周期和删除
// 折叠进同一个状态流。所有变更走 mu，单实例内状态更新串行。
type DetailController struct {
	taskID    string
	tasks     *task.Service
	predictor Predictor

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  DetailState
	closed bool
	states chan DetailState

	sub *task.Subscription
}

// NewDetailController 创建并启动详情控制器，立刻开始订阅任务行
func NewDetailController(tasks *task.Service, predictor Predictor, taskID string) (*DetailController, error) {
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := tasks.Watch(ctx, taskID)
	if err != nil {
		cancel()
		return nil, err
	}

	c := &DetailController{
		taskID:    taskID,
		tasks:     tasks,
		predictor: predictor,
		ctx:       ctx,
		cancel:    cancel,
		state:     DetailState{Loading: true},
		states:    make(chan DetailState, 1),
		sub:       sub,
	}

	// 订阅会同步回放当前行，这里先消费掉，保证返回的控制器已经完成首次加载
	select {
	case snapshot, ok := <-sub.C:
		if ok {
			c.applySnapshot(snapshot)
		}
	default:
	}

	go c.consume()
	return c, nil
}

// States 状态流。容量 1，只保最新，新消费者拿到的第一条就是当前快照。
func (c *DetailController) States() <-chan DetailState {
	return c.states
}

// State 当前快照
func (c *DetailController) State() DetailState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// consume 把任务行的每次发布折叠进状态
func (c *DetailController) consume() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case snapshot, ok := <-c.sub.C:
			if !ok {
				return
			}
			c.applySnapshot(snapshot)
		}
	}
}

func (c *DetailController) applySnapshot(snapshot *entity.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Loading = false
	if snapshot == nil {
		c.state.Task = nil
		if !c.state.TaskDeleted {
			c.state.ErrorMessage = MessageLoadingError
		}
	} else {
		c.state.Task = snapshot
		c.state.ErrorMessage = ""
	}
	c.publishLocked()
}

// SendToPrediction 发起预测。任务没有两个文件引用时不做任何事；
// 已有一个预测在途时拒绝第二次调用。返回是否真的发起了请求。
func (c *DetailController) SendToPrediction() bool {
	c.mu.Lock()

	t := c.state.Task
	if t == nil || !t.HasBothFiles() {
		c.mu.Unlock()
		return false
	}
	if c.state.PredictionInFlight {
		log.Debugf("prediction already in flight for task %v, ignoring", c.taskID)
		c.mu.Unlock()
		return false
	}

	c.state.PredictionInFlight = true
	c.state.Optimized = nil
	c.state.UserMessage = MessagePredictionStarted
	conductivity, radius, depth := t.Conductivity, t.Radius, t.Depth
	geometryPath, surfaceTempPath := *t.GeometryFile, *t.SurfaceTempFile
	c.publishLocked()
	c.mu.Unlock()

	go func() {
		output, err := c.predictor.Predict(c.ctx, conductivity, radius, depth, geometryPath, surfaceTempPath)

		if c.ctx.Err() != nil {
			// 控制器已关闭，丢弃结果，避免 update-after-dispose
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		c.state.PredictionInFlight = false
		if err != nil {
			log.Errorf("prediction for task %v failed: %v", c.taskID, err)
			c.state.UserMessage = predictionFailureMessage(err)
		} else {
			c.state.Optimized = output
			c.state.UserMessage = MessagePredictionDone
		}
		c.publishLocked()
	}()

	return true
}

// Delete 删除任务并置一次性的 TaskDeleted 信号。
// 先置位再删：行流随删除发出的 nil 才不会被当成加载错误。
func (c *DetailController) Delete() error {
	c.mu.Lock()
	c.state.TaskDeleted = true
	c.publishLocked()
	c.mu.Unlock()

	if err := c.tasks.Delete(c.ctx, c.taskID); err != nil {
		c.mu.Lock()
		c.state.TaskDeleted = false
		c.state.UserMessage = err.Error()
		c.publishLocked()
		c.mu.Unlock()
		return err
	}
	return nil
}

// Refresh 手动触发从存储重读
func (c *DetailController) Refresh() {
	if err := c.tasks.Refresh(c.ctx, c.taskID); err != nil {
		log.Warnf("refresh task %v failed: %v", c.taskID, err)
	}
}

// MessageShown 一次性提示已被展示，清掉
func (c *DetailController) MessageShown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.UserMessage = ""
	c.publishLocked()
}

// Close 取消在途工作并退订。关闭后状态流不再有新值。
func (c *DetailController) Close() {
	c.cancel()
	c.sub.Cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.states)
}

// publishLocked 覆盖式发布，调用方必须持有 mu
func (c *DetailController) publishLocked() {
	if c.closed {
		return
	}
	select {
	case <-c.states:
	default:
	}
	c.states <- c.state
}

// predictionFailureMessage 按客户端错误类型挂上错误码表里的分类文案
func predictionFailureMessage(err error) string {
	var code int
	switch err.(type) {
	case *pinn.NetworkError:
		code = model.ErrorNetwork
	case *pinn.ApiError:
		code = model.ErrorApi
	case *pinn.DecodeError:
		code = model.ErrorDecode
	default:
		return err.Error()
	}
	return fmt.Sprintf("%s: %v", model.ErrorMessages[code], err)
}
