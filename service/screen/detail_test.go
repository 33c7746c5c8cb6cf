package screen

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nurduman/pinn-app/model"
	"github.com/nurduman/pinn-app/pkg/clients/pinn"
	"github.com/nurduman/pinn-app/repository/xormimplement"
	"github.com/nurduman/pinn-app/service/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePredictor 可控的预测桩
type fakePredictor struct {
	calls   atomic.Int64
	release chan struct{} // 非 nil 时阻塞到被放行
	output  *pinn.Output
	err     error
}

func (f *fakePredictor) Predict(ctx context.Context, conductivity, radius, depth float64, geometryPath, surfaceTempPath string) (*pinn.Output, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.output, f.err
}

func newScreenTestService(t *testing.T) *task.Service {
	f, err := xormimplement.NewFactory(filepath.Join(t.TempDir(), "task.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	service := task.NewService(f)
	t.Cleanup(service.Close)
	return service
}

func createTaskWithFiles(t *testing.T, service *task.Service) string {
	geo := "/data/geo.txt"
	surface := "/data/surface.txt"
	taskID, err := service.Create(context.Background(), &model.CreateTaskCondition{
		Title:           "t",
		Description:     "d",
		Conductivity:    1.5,
		Radius:          0.05,
		Depth:           90,
		GeometryFile:    &geo,
		SurfaceTempFile: &surface,
	})
	require.NoError(t, err)
	return taskID
}

func waitForState(t *testing.T, c *DetailController, cond func(DetailState) bool) DetailState {
	t.Helper()
	var last DetailState
	require.Eventually(t, func() bool {
		last = c.State()
		return cond(last)
	}, 2*time.Second, 10*time.Millisecond)
	return last
}

func TestDetailLoadsTaskFromStream(t *testing.T) {
	service := newScreenTestService(t)
	taskID := createTaskWithFiles(t, service)

	c, err := NewDetailController(service, &fakePredictor{}, taskID)
	require.NoError(t, err)
	defer c.Close()

	state := waitForState(t, c, func(s DetailState) bool { return !s.Loading && s.Task != nil })
	assert.Equal(t, taskID, state.Task.ID)
	assert.Empty(t, state.ErrorMessage)
}

func TestDetailMissingTaskSurfacesError(t *testing.T) {
	service := newScreenTestService(t)

	c, err := NewDetailController(service, &fakePredictor{}, "missing")
	require.NoError(t, err)
	defer c.Close()

	state := waitForState(t, c, func(s DetailState) bool { return !s.Loading })
	assert.Nil(t, state.Task)
	assert.Equal(t, MessageLoadingError, state.ErrorMessage)
}

func TestSendToPredictionRequiresBothFiles(t *testing.T) {
	service := newScreenTestService(t)
	geo := "/data/geo.txt"
	taskID, err := service.Create(context.Background(), &model.CreateTaskCondition{
		Title: "t", Description: "d", GeometryFile: &geo,
	})
	require.NoError(t, err)

	predictor := &fakePredictor{}
	c, err := NewDetailController(service, predictor, taskID)
	require.NoError(t, err)
	defer c.Close()

	waitForState(t, c, func(s DetailState) bool { return !s.Loading && s.Task != nil })

	assert.False(t, c.SendToPrediction())
	assert.Equal(t, int64(0), predictor.calls.Load())
	assert.False(t, c.State().PredictionInFlight)
}

func TestSendToPredictionSuccess(t *testing.T) {
	service := newScreenTestService(t)
	taskID := createTaskWithFiles(t, service)

	predictor := &fakePredictor{
		output: &pinn.Output{OptimizedDepth: 1.0, OptimizedRadius: 2.0, OptimizedConductivity: 3.0},
	}
	c, err := NewDetailController(service, predictor, taskID)
	require.NoError(t, err)
	defer c.Close()

	waitForState(t, c, func(s DetailState) bool { return !s.Loading && s.Task != nil })

	require.True(t, c.SendToPrediction())

	state := waitForState(t, c, func(s DetailState) bool { return !s.PredictionInFlight && s.Optimized != nil })
	assert.Equal(t, 1.0, state.Optimized.OptimizedDepth)
	assert.Equal(t, 2.0, state.Optimized.OptimizedRadius)
	assert.Equal(t, 3.0, state.Optimized.OptimizedConductivity)
}

func TestSendToPredictionFailureSurfacesMessage(t *testing.T) {
	service := newScreenTestService(t)
	taskID := createTaskWithFiles(t, service)

	predictor := &fakePredictor{err: &pinn.ApiError{StatusCode: 500, StatusMessage: "boom"}}
	c, err := NewDetailController(service, predictor, taskID)
	require.NoError(t, err)
	defer c.Close()

	waitForState(t, c, func(s DetailState) bool { return !s.Loading && s.Task != nil })

	require.True(t, c.SendToPrediction())

	state := waitForState(t, c, func(s DetailState) bool {
		return !s.PredictionInFlight && s.UserMessage != "" && s.UserMessage != MessagePredictionStarted
	})
	assert.Nil(t, state.Optimized)
	assert.Contains(t, state.UserMessage, "boom")
}

func TestSecondPredictionWhileInFlightIsRejected(t *testing.T) {
	service := newScreenTestService(t)
	taskID := createTaskWithFiles(t, service)

	predictor := &fakePredictor{
		release: make(chan struct{}),
		output:  &pinn.Output{OptimizedDepth: 1},
	}
	c, err := NewDetailController(service, predictor, taskID)
	require.NoError(t, err)
	defer c.Close()

	waitForState(t, c, func(s DetailState) bool { return !s.Loading && s.Task != nil })

	require.True(t, c.SendToPrediction())
	waitForState(t, c, func(s DetailState) bool { return s.PredictionInFlight })

	// 第一个还在途，第二个必须被拒绝
	assert.False(t, c.SendToPrediction())

	close(predictor.release)
	waitForState(t, c, func(s DetailState) bool { return !s.PredictionInFlight })
	assert.Equal(t, int64(1), predictor.calls.Load())
}

func TestDeleteSetsOneShotSignal(t *testing.T) {
	service := newScreenTestService(t)
	taskID := createTaskWithFiles(t, service)

	c, err := NewDetailController(service, &fakePredictor{}, taskID)
	require.NoError(t, err)
	defer c.Close()

	waitForState(t, c, func(s DetailState) bool { return !s.Loading && s.Task != nil })

	require.NoError(t, c.Delete())

	state := waitForState(t, c, func(s DetailState) bool { return s.TaskDeleted })
	assert.True(t, state.TaskDeleted)
	// 删除导致的 nil 发射不该被当成加载错误
	waitForState(t, c, func(s DetailState) bool { return s.Task == nil })
	assert.Empty(t, c.State().ErrorMessage)
}

func TestCloseCancelsInFlightPrediction(t *testing.T) {
	service := newScreenTestService(t)
	taskID := createTaskWithFiles(t, service)

	predictor := &fakePredictor{release: make(chan struct{})}
	c, err := NewDetailController(service, predictor, taskID)
	require.NoError(t, err)

	waitForState(t, c, func(s DetailState) bool { return !s.Loading && s.Task != nil })
	require.True(t, c.SendToPrediction())

	c.Close()
	close(predictor.release)

	// 关闭后结果被丢弃，状态不再变化
	time.Sleep(50 * time.Millisecond)
	assert.True(t, c.State().PredictionInFlight)
}

func TestPredictionFailureMessagesCarryClassification(t *testing.T) {
	assert.Contains(t,
		predictionFailureMessage(&pinn.NetworkError{Message: "refused"}),
		model.ErrorMessages[model.ErrorNetwork])
	assert.Contains(t,
		predictionFailureMessage(&pinn.ApiError{StatusCode: 500, StatusMessage: "boom"}),
		model.ErrorMessages[model.ErrorApi])
	assert.Contains(t,
		predictionFailureMessage(&pinn.DecodeError{Err: errors.New("bad json")}),
		model.ErrorMessages[model.ErrorDecode])
	assert.Equal(t, "plain", predictionFailureMessage(errors.New("plain")))
}

func TestMessageShownClearsUserMessage(t *testing.T) {
	service := newScreenTestService(t)
	taskID := createTaskWithFiles(t, service)

	predictor := &fakePredictor{output: &pinn.Output{}}
	c, err := NewDetailController(service, predictor, taskID)
	require.NoError(t, err)
	defer c.Close()

	waitForState(t, c, func(s DetailState) bool { return !s.Loading && s.Task != nil })
	require.True(t, c.SendToPrediction())
	waitForState(t, c, func(s DetailState) bool { return s.UserMessage != "" })

	c.MessageShown()
	assert.Empty(t, c.State().UserMessage)
}
