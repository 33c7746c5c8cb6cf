package factory

import (
	"sync"

	repofactory "github.com/nurduman/pinn-app/repository/factory"
	"github.com/nurduman/pinn-app/repository/xormimplement"
	"github.com/nurduman/pinn-app/service/task"
)

var instance *Factory
var once sync.Once

// 创建
type Factory struct {
	repositoryFactory repofactory.Factory

	taskOnce    sync.Once
	taskService *task.Service
}

// 单例模式，首次调用时打开存储并完成 schema 迁移
func GetServiceFactory() *Factory {
	once.Do(func() {
		instance = &Factory{repositoryFactory: xormimplement.GetRepositoryFactoryInstance()}
	})
	return instance
}

// TaskService 获取任务服务。进程内共享一个实例，订阅者才能看到所有变更。
func (f *Factory) TaskService() *task.Service {
	f.taskOnce.Do(func() {
		f.taskService = task.NewService(f.repositoryFactory)
	})
	return f.taskService
}
