package controller

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/nurduman/pinn-app/constant"
	"github.com/nurduman/pinn-app/model"
	"github.com/nurduman/pinn-app/pkg/clients/pinn"
	"github.com/nurduman/pinn-app/pkg/str"
	"github.com/nurduman/pinn-app/service/factory"
	"github.com/nurduman/pinn-app/service/screen"
	"github.com/nurduman/pinn-app/service/task"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

var (
	detailMu          sync.Mutex
	detailControllers = map[string]*screen.DetailController{}
)

func getTaskService() *task.Service {
	return factory.GetServiceFactory().TaskService()
}

// getDetailController 取某个任务的详情控制器，没有就建。
// 同一个任务复用一个实例，预测在途的去重才有意义。
func getDetailController(taskID string) (*screen.DetailController, error) {
	detailMu.Lock()
	defer detailMu.Unlock()

	if c, ok := detailControllers[taskID]; ok {
		return c, nil
	}

	c, err := screen.NewDetailController(getTaskService(), pinn.GetInstance(), taskID)
	if err != nil {
		return nil, err
	}
	detailControllers[taskID] = c
	return c, nil
}

func dropDetailController(taskID string) {
	detailMu.Lock()
	defer detailMu.Unlock()

	if c, ok := detailControllers[taskID]; ok {
		c.Close()
		delete(detailControllers, taskID)
	}
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Conductivity    float64 `json:"conductivity"`
	Radius          float64 `json:"radius"`
	Depth           float64 `json:"depth"`
	GeometryFile    *string `json:"geometry_file"`
	SurfaceTempFile *string `json:"surface_temp_file"`
}

// CreateTask 创建任务
// @Summary 创建新任务
// @Description 经编辑控制器校验后创建任务
// @Tags Task
// @Accept json
// @Produce json
// @Param request body CreateTaskRequest true "任务字段"
// @Success 200 {object} screen.EditState
// @Router /api/v1/task [post]
func CreateTask(ctx *gin.Context) {
	var req CreateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	editController, err := screen.NewEditController(ctx, getTaskService(), constant.EmptyString)
	if err != nil {
		log.Errorf("CreateTask error: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer editController.Close()

	applyDraft(editController, &req)

	if err := editController.Save(ctx); err != nil {
		log.Errorf("CreateTask save error: %v", err)
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	state := editController.State()
	if !state.TaskSaved {
		ctx.JSON(http.StatusBadRequest, state)
		return
	}

	ctx.JSON(http.StatusOK, state)
}

// UpdateTask 更新任务
// @Summary 更新任务
// @Description 经编辑控制器校验后更新任务字段
// @Tags Task
// @Accept json
// @Produce json
// @Param task_id path string true "任务ID"
// @Param request body CreateTaskRequest true "任务字段"
// @Success 200 {object} screen.EditState
// @Router /api/v1/task/{task_id} [put]
func UpdateTask(ctx *gin.Context) {
	taskID := ctx.Param("task_id")
	if taskID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "task_id is required"})
		return
	}

	var req CreateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	editController, err := screen.NewEditController(ctx, getTaskService(), taskID)
	if err != nil {
		log.Errorf("UpdateTask error: %v", err)
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	defer editController.Close()

	applyDraft(editController, &req)

	if err := editController.Save(ctx); err != nil {
		log.Errorf("UpdateTask save error: %v", err)
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	state := editController.State()
	if !state.TaskSaved {
		ctx.JSON(http.StatusBadRequest, state)
		return
	}

	ctx.JSON(http.StatusOK, state)
}

// GetTask 获取任务详情
// @Summary 获取任务详情
// @Description 返回详情控制器的当前状态快照
// @Tags Task
// @Produce json
// @Param task_id path string true "任务ID"
// @Success 200 {object} screen.DetailState
// @Router /api/v1/task/{task_id} [get]
func GetTask(ctx *gin.Context) {
	taskID := ctx.Param("task_id")
	if taskID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "task_id is required"})
		return
	}

	t, err := getTaskService().Get(ctx, taskID)
	if err != nil {
		log.Errorf("GetTask error: %v", err)
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	if t == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	detailController, err := getDetailController(taskID)
	if err != nil {
		log.Errorf("GetTask detail controller error: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, detailController.State())
}

// ListTasks 列出任务
// @Summary 列出任务
// @Description 按完成状态过滤并分页列出任务
// @Tags Task
// @Produce json
// @Param completed query bool false "完成状态过滤"
// @Param limit query int false "分页大小"
// @Param offset query int false "分页偏移"
// @Success 200 {object} gin.H
// @Router /api/v1/tasks [get]
func ListTasks(ctx *gin.Context) {
	condition, err := parseListCondition(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tasks, err := getTaskService().List(ctx, condition)
	if err != nil {
		log.Errorf("ListTasks error: %v", err)
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// parseListCondition 解析列表的过滤和分页参数。
// limit 缺省走 DefaultPageLimit，显式传 0 表示不分页。
func parseListCondition(ctx *gin.Context) (*model.TaskListCondition, error) {
	condition := &model.TaskListCondition{Pager: &model.Pager{}}

	if raw, ok := ctx.GetQuery("completed"); ok {
		completed, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, fmt.Errorf("completed must be a bool")
		}
		condition.IsCompleted = &completed
	}

	if raw, ok := ctx.GetQuery("limit"); ok {
		limit, err := str.StringToInt(raw)
		if err != nil {
			return nil, fmt.Errorf("limit must be an int")
		}
		condition.Pager.Limit = limit
	} else {
		condition.Pager.Limit = constant.DefaultPageLimit
	}

	offset, err := str.StringToInt(ctx.Query("offset"))
	if err != nil {
		return nil, fmt.Errorf("offset must be an int")
	}
	condition.Pager.Offset = offset

	return condition, nil
}

// DeleteTask 删除任务
// @Summary 删除任务
// @Description 删除任务并关闭其详情控制器
// @Tags Task
// @Produce json
// @Param task_id path string true "任务ID"
// @Success 200 {object} gin.H
// @Router /api/v1/task/{task_id} [delete]
func DeleteTask(ctx *gin.Context) {
	taskID := ctx.Param("task_id")
	if taskID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "task_id is required"})
		return
	}

	if err := getTaskService().Delete(ctx, taskID); err != nil {
		log.Errorf("DeleteTask error: %v", err)
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	dropDetailController(taskID)
	ctx.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

// CompleteTask 标记任务完成
// @Summary 标记任务完成
// @Tags Task
// @Produce json
// @Param task_id path string true "任务ID"
// @Success 200 {object} gin.H
// @Router /api/v1/task/{task_id}/complete [put]
func CompleteTask(ctx *gin.Context) {
	setCompleted(ctx, true)
}

// ActivateTask 取消任务完成标记
// @Summary 取消任务完成标记
// @Tags Task
// @Produce json
// @Param task_id path string true "任务ID"
// @Success 200 {object} gin.H
// @Router /api/v1/task/{task_id}/activate [put]
func ActivateTask(ctx *gin.Context) {
	setCompleted(ctx, false)
}

func setCompleted(ctx *gin.Context, completed bool) {
	taskID := ctx.Param("task_id")
	if taskID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "task_id is required"})
		return
	}

	var err error
	if completed {
		err = getTaskService().Complete(ctx, taskID)
	} else {
		err = getTaskService().Activate(ctx, taskID)
	}
	if err != nil {
		log.Errorf("setCompleted error: %v", err)
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "task updated"})
}

// PredictTask 发起预测
// @Summary 发起预测
// @Description 把任务参数和两个文件上传到 PINN 服务，结果异步出现在详情状态里
// @Tags Task
// @Produce json
// @Param task_id path string true "任务ID"
// @Success 202 {object} screen.DetailState
// @Router /api/v1/task/{task_id}/predict [post]
func PredictTask(ctx *gin.Context) {
	taskID := ctx.Param("task_id")
	if taskID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "task_id is required"})
		return
	}

	t, err := getTaskService().Get(ctx, taskID)
	if err != nil {
		log.Errorf("PredictTask error: %v", err)
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	if t == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	detailController, err := getDetailController(taskID)
	if err != nil {
		log.Errorf("PredictTask detail controller error: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if !detailController.SendToPrediction() {
		state := detailController.State()
		if state.PredictionInFlight {
			ctx.JSON(http.StatusConflict, gin.H{"error": "prediction already in flight", "state": state})
			return
		}
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "task needs both geometry and surface temp files", "state": state})
		return
	}

	ctx.JSON(http.StatusAccepted, detailController.State())
}

func applyDraft(editController *screen.EditController, req *CreateTaskRequest) {
	editController.SetTitle(req.Title)
	editController.SetDescription(req.Description)
	editController.SetConductivity(req.Conductivity)
	editController.SetRadius(req.Radius)
	editController.SetDepth(req.Depth)
	if req.GeometryFile != nil {
		editController.SetGeometryFile(*req.GeometryFile)
	}
	if req.SurfaceTempFile != nil {
		editController.SetSurfaceTempFile(*req.SurfaceTempFile)
	}
}

// statusForError 错误码映射 http 状态
func statusForError(err error) int {
	if typed, ok := err.(*model.Error); ok {
		switch typed.Code {
		case model.ErrorTaskNotFound:
			return http.StatusNotFound
		case model.ErrorValidation, model.ErrorParams, model.ErrorEmptyId:
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}
