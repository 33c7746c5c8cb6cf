package factory

import (
	"context"

	"github.com/nurduman/pinn-app/repository"
	"github.com/nurduman/pinn-app/repository/interfaces"
)

type Factory interface {
	NewSession(ctx context.Context) interfaces.Session
	NewTaskRepository(session interfaces.Session) (repository.TaskRepository, error)
}
