package xormimplement

import (
	"context"
	"fmt"
	"sync"

	"github.com/nurduman/pinn-app/config"
	"github.com/nurduman/pinn-app/constant"
	"github.com/nurduman/pinn-app/model"
	"github.com/nurduman/pinn-app/repository"
	"github.com/nurduman/pinn-app/repository/factory"
	"github.com/nurduman/pinn-app/repository/interfaces"

	"github.com/sirupsen/logrus"
	"xorm.io/xorm"

	_ "modernc.org/sqlite"
)

var once sync.Once
var instance *Factory

type Factory struct {
	// 连接本地 sqlite 文件
	engine *xorm.Engine
}

// 获取一个factory实例
func GetRepositoryFactoryInstance() factory.Factory {
	once.Do(func() {
		f, err := NewFactory(
			config.GetInstance().GetString(config.BaseDbSqlitePath),
			config.GetInstance().GetBool(config.BaseDbSqliteShowsql),
		)
		if err != nil {
			logrus.Errorf("Failed to open task database err: %v", err)
			panic(classifyOpenError(err))
		}
		instance = f
	})
	return instance
}

// classifyOpenError 把打开阶段的类型化错误映射到错误码表
func classifyOpenError(err error) *model.Error {
	switch err.(type) {
	case *StorageUnavailableError:
		return model.NewError(model.ErrorStorageUnavailable, err)
	case *MigrationError:
		return model.NewError(model.ErrorMigrationFailed, err)
	default:
		return model.NewError(model.ErrorDB, err)
	}
}

// NewFactory 打开 sqlite 文件并把 schema 迁到目标版本。
// 打开失败映射为 StorageUnavailableError，迁移失败由 migrate 映射为 MigrationError。
func NewFactory(path string, showSql bool) (*Factory, error) {
	engine, err := xorm.NewEngine("sqlite", path)
	if err != nil {
		return nil, &StorageUnavailableError{Err: err}
	}
	engine.ShowSQL(showSql)

	if err := engine.Ping(); err != nil {
		return nil, &StorageUnavailableError{Err: err}
	}

	if err := migrate(engine, constant.SchemaVersionTarget); err != nil {
		return nil, err
	}

	return &Factory{engine: engine}, nil
}

// 创建一个会话
func (f *Factory) NewSession(ctx context.Context) interfaces.Session {
	return &Session{Session: f.engine.NewSession().Context(ctx)}
}

// NewTaskRepository 创建任务仓库
func (f *Factory) NewTaskRepository(session interfaces.Session) (repository.TaskRepository, error) {
	if s, ok := session.(*Session); ok {
		return NewTaskRepository(s), nil
	}
	return nil, fmt.Errorf("xorm session 结构解析失败")
}

// Close 关闭底层引擎
func (f *Factory) Close() error {
	return f.engine.Close()
}
