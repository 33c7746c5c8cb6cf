package task

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nurduman/pinn-app/entity"
	"github.com/nurduman/pinn-app/model"
	"github.com/nurduman/pinn-app/repository/xormimplement"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	f, err := xormimplement.NewFactory(filepath.Join(t.TempDir(), "task.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	service := NewService(f)
	t.Cleanup(service.Close)
	return service
}

func strPtr(s string) *string { return &s }

func TestCreateGetRoundTrip(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	taskID, err := service.Create(ctx, &model.CreateTaskCondition{
		Title:        "钻孔任务",
		Description:  "换热器参数优化",
		Conductivity: 2.1,
		Radius:       0.07,
		Depth:        100,
		GeometryFile: strPtr("/data/geo.txt"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, taskID)

	got, err := service.Get(ctx, taskID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "钻孔任务", got.Title)
	assert.Equal(t, 2.1, got.Conductivity)
	assert.Equal(t, 0.07, got.Radius)
	assert.Equal(t, 100.0, got.Depth)
}

func TestUpdateThenGetReturnsUpdatedValues(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	taskID, err := service.Create(ctx, &model.CreateTaskCondition{Title: "t", Description: "d"})
	require.NoError(t, err)

	radius := 0.09
	err = service.Update(ctx, taskID, &model.UpdateTaskCondition{
		Title:  strPtr("updated"),
		Radius: &radius,
	})
	require.NoError(t, err)

	got, err := service.Get(ctx, taskID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "updated", got.Title)
	assert.Equal(t, "d", got.Description)
	assert.Equal(t, 0.09, got.Radius)
}

func TestUpdateMissingTaskReturnsNotFound(t *testing.T) {
	service := newTestService(t)

	err := service.Update(context.Background(), "missing", &model.UpdateTaskCondition{Title: strPtr("x")})
	require.Error(t, err)

	typed, ok := err.(*model.Error)
	require.True(t, ok)
	assert.Equal(t, model.ErrorTaskNotFound, typed.Code)
}

func TestCompleteThenActivateTogglesBack(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	taskID, err := service.Create(ctx, &model.CreateTaskCondition{Title: "t", Description: "d"})
	require.NoError(t, err)

	require.NoError(t, service.Complete(ctx, taskID))
	got, err := service.Get(ctx, taskID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)

	require.NoError(t, service.Activate(ctx, taskID))
	got, err = service.Get(ctx, taskID)
	require.NoError(t, err)
	assert.False(t, got.IsCompleted)
}

func waitForSnapshot(t *testing.T, sub *Subscription) *entity.Task {
	t.Helper()
	select {
	case snapshot, ok := <-sub.C:
		require.True(t, ok, "subscription closed unexpectedly")
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestWatchReplaysCurrentRow(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	taskID, err := service.Create(ctx, &model.CreateTaskCondition{Title: "t", Description: "d"})
	require.NoError(t, err)

	sub, err := service.Watch(ctx, taskID)
	require.NoError(t, err)
	defer sub.Cancel()

	snapshot := waitForSnapshot(t, sub)
	require.NotNil(t, snapshot)
	assert.Equal(t, taskID, snapshot.ID)
}

func TestWatchEmitsOnEveryMutation(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	taskID, err := service.Create(ctx, &model.CreateTaskCondition{Title: "t", Description: "d"})
	require.NoError(t, err)

	sub, err := service.Watch(ctx, taskID)
	require.NoError(t, err)
	defer sub.Cancel()

	// 回放
	first := waitForSnapshot(t, sub)
	require.NotNil(t, first)
	assert.Equal(t, "t", first.Title)

	require.NoError(t, service.Update(ctx, taskID, &model.UpdateTaskCondition{Title: strPtr("t2")}))
	second := waitForSnapshot(t, sub)
	require.NotNil(t, second)
	assert.Equal(t, "t2", second.Title)

	require.NoError(t, service.Complete(ctx, taskID))
	third := waitForSnapshot(t, sub)
	require.NotNil(t, third)
	assert.True(t, third.IsCompleted)
}

func TestDeleteEmitsTerminalNil(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	taskID, err := service.Create(ctx, &model.CreateTaskCondition{Title: "t", Description: "d"})
	require.NoError(t, err)

	sub, err := service.Watch(ctx, taskID)
	require.NoError(t, err)
	defer sub.Cancel()

	require.NotNil(t, waitForSnapshot(t, sub))

	require.NoError(t, service.Delete(ctx, taskID))
	assert.Nil(t, waitForSnapshot(t, sub))

	// 删除之后的新订阅立刻拿到 nil
	late, err := service.Watch(ctx, taskID)
	require.NoError(t, err)
	defer late.Cancel()
	assert.Nil(t, waitForSnapshot(t, late))
}

func TestRefreshRepublishes(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	taskID, err := service.Create(ctx, &model.CreateTaskCondition{Title: "t", Description: "d"})
	require.NoError(t, err)

	sub, err := service.Watch(ctx, taskID)
	require.NoError(t, err)
	defer sub.Cancel()

	require.NotNil(t, waitForSnapshot(t, sub))

	require.NoError(t, service.Refresh(ctx, taskID))
	refreshed := waitForSnapshot(t, sub)
	require.NotNil(t, refreshed)
	assert.Equal(t, taskID, refreshed.ID)
}
