package task

import (
	"testing"

	"github.com/nurduman/pinn-app/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierReplaysOnSubscribe(t *testing.T) {
	n := newNotifier()
	defer n.Close()

	current := &entity.Task{ID: "t1", Title: "now"}
	sub := n.Subscribe("t1", current)
	defer sub.Cancel()

	got := <-sub.C
	require.NotNil(t, got)
	assert.Equal(t, "now", got.Title)
}

func TestNotifierCoalescesForSlowWatcher(t *testing.T) {
	n := newNotifier()
	defer n.Close()

	sub := n.Subscribe("t1", nil)
	defer sub.Cancel()

	// 不消费，连发超过缓冲的数量，最旧的被丢掉
	for i := 0; i < subscriptionBuffer*2; i++ {
		n.Publish("t1", &entity.Task{ID: "t1", Radius: float64(i)})
	}

	var last *entity.Task
	for {
		select {
		case snapshot := <-sub.C:
			last = snapshot
			continue
		default:
		}
		break
	}

	require.NotNil(t, last)
	// 最新的一条一定还在
	assert.Equal(t, float64(subscriptionBuffer*2-1), last.Radius)
}

func TestNotifierCancelClosesChannel(t *testing.T) {
	n := newNotifier()
	defer n.Close()

	sub := n.Subscribe("t1", nil)
	<-sub.C
	sub.Cancel()

	_, ok := <-sub.C
	assert.False(t, ok)

	// 取消后发布不会 panic，也不会投递
	n.Publish("t1", &entity.Task{ID: "t1"})
}

func TestNotifierCloseClosesAllSubscribers(t *testing.T) {
	n := newNotifier()

	sub1 := n.Subscribe("t1", nil)
	sub2 := n.Subscribe("t2", nil)
	<-sub1.C
	<-sub2.C

	n.Close()

	_, ok := <-sub1.C
	assert.False(t, ok)
	_, ok = <-sub2.C
	assert.False(t, ok)

	// 关闭后订阅拿到的是已关闭的通道
	late := n.Subscribe("t3", nil)
	_, ok = <-late.C
	assert.False(t, ok)
}

func TestNotifierIsolatesTasks(t *testing.T) {
	n := newNotifier()
	defer n.Close()

	sub1 := n.Subscribe("t1", nil)
	sub2 := n.Subscribe("t2", nil)
	defer sub1.Cancel()
	defer sub2.Cancel()
	<-sub1.C
	<-sub2.C

	n.Publish("t1", &entity.Task{ID: "t1"})

	got := <-sub1.C
	require.NotNil(t, got)
	assert.Equal(t, "t1", got.ID)

	select {
	case unexpected := <-sub2.C:
		t.Fatalf("subscriber of t2 must not see t1, got %+v", unexpected)
	default:
	}
}
