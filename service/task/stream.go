package task

import (
	"sync"

	"github.com/nurduman/pinn-app/entity"

	log "github.com/sirupsen/logrus"
)

// 每个订阅者通道的缓冲。满了丢最旧的一条，订阅者只要求最终收到最新状态。
const subscriptionBuffer = 8

// Subscription 单个任务行的订阅。C 上按序收到该行的快照，
// 行被删除后收到 nil。Cancel 之后通道关闭。
type Subscription struct {
	C <-chan *entity.Task

	taskID string
	id     int64
	ch     chan *entity.Task
	owner  *notifier
	once   sync.Once
}

// Cancel 退订并关闭通道。可重复调用。
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.owner.unsubscribe(s.taskID, s.id)
	})
}

// notifier 按任务 id 维护订阅者集合。所有发布都在持锁下串行，
// 单个订阅者看到的快照顺序与变更顺序一致。
type notifier struct {
	mu       sync.Mutex
	watchers map[string]map[int64]*Subscription
	nextID   int64
	closed   bool
}

func newNotifier() *notifier {
	return &notifier{
		watchers: make(map[string]map[int64]*Subscription),
	}
}

// Subscribe 注册订阅者并回放当前值
func (n *notifier) Subscribe(taskID string, current *entity.Task) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan *entity.Task, subscriptionBuffer)
	n.nextID++
	sub := &Subscription{
		C:      ch,
		taskID: taskID,
		id:     n.nextID,
		ch:     ch,
		owner:  n,
	}

	if n.closed {
		close(ch)
		return sub
	}

	if n.watchers[taskID] == nil {
		n.watchers[taskID] = make(map[int64]*Subscription)
	}
	n.watchers[taskID][sub.id] = sub

	ch <- current
	return sub
}

// Publish 把该行的新快照发给所有订阅者
func (n *notifier) Publish(taskID string, snapshot *entity.Task) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}

	for _, sub := range n.watchers[taskID] {
		select {
		case sub.ch <- snapshot:
		default:
			// 缓冲满，丢最旧的一条给新的让位
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snapshot:
			default:
				log.Warnf("drop task snapshot for slow watcher, task_id=%v", taskID)
			}
		}
	}
}

func (n *notifier) unsubscribe(taskID string, id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}

	subs := n.watchers[taskID]
	sub, ok := subs[id]
	if !ok {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(n.watchers, taskID)
	}
	close(sub.ch)
}

// Close 关闭所有订阅者通道
func (n *notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true

	for _, subs := range n.watchers {
		for _, sub := range subs {
			close(sub.ch)
		}
	}
	n.watchers = make(map[string]map[int64]*Subscription)
}
