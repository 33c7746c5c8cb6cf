package xormimplement

import (
	"fmt"

	"github.com/nurduman/pinn-app/entity"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"xorm.io/xorm"
)

// MigrationError 某一步迁移失败。整步回滚，open 中止。
type MigrationError struct {
	FromVersion int
	ToVersion   int
	Err         error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("schema migration %d->%d failed: %v", e.FromVersion, e.ToVersion, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// StorageUnavailableError 数据库文件无法打开/读取
type StorageUnavailableError struct {
	Err error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("task storage unavailable: %v", e.Err)
}

func (e *StorageUnavailableError) Unwrap() error {
	return e.Err
}

// migration 一次版本迁移。statements 按序执行，和版本号更新在同一个事务里提交。
type migration struct {
	fromVersion int
	toVersion   int
	statements  []string
}

// 迁移链只追加，不修改已发布的步骤。版本为 N 的库必须依次经过
// N→N+1…→target，不允许跳步。
var migrations = []migration{
	{
		fromVersion: 0,
		toVersion:   1,
		statements: []string{
			`CREATE TABLE task (
				id TEXT PRIMARY KEY NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				isCompleted INTEGER NOT NULL DEFAULT 0
			)`,
		},
	},
	{
		fromVersion: 1,
		toVersion:   2,
		statements: []string{
			`ALTER TABLE task ADD COLUMN conductivity REAL NOT NULL DEFAULT 0.0`,
			`ALTER TABLE task ADD COLUMN densityAndHeatCapacity REAL NOT NULL DEFAULT 0.0`,
		},
	},
	{
		fromVersion: 2,
		toVersion:   3,
		statements: []string{
			`ALTER TABLE task ADD COLUMN geometryFile TEXT`,
			`ALTER TABLE task ADD COLUMN surfaceTempFile TEXT`,
		},
	},
	{
		// 重建表：去掉 densityAndHeatCapacity，加 radius/depth。
		// copy-insert-drop-rename，读侧不会同时看到两张表。
		fromVersion: 3,
		toVersion:   4,
		statements: []string{
			`CREATE TABLE task_shadow (
				id TEXT PRIMARY KEY NOT NULL,
				title TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				conductivity REAL NOT NULL DEFAULT 0.0,
				radius REAL NOT NULL DEFAULT 0.0,
				depth REAL NOT NULL DEFAULT 0.0,
				geometryFile TEXT,
				surfaceTempFile TEXT,
				isCompleted INTEGER NOT NULL DEFAULT 0
			)`,
			`INSERT INTO task_shadow (id, title, description, conductivity, geometryFile, surfaceTempFile, isCompleted)
				SELECT id, title, description, conductivity, geometryFile, surfaceTempFile, isCompleted FROM task`,
			`DROP TABLE task`,
			`ALTER TABLE task_shadow RENAME TO task`,
		},
	},
}

// migrate 将数据库迁到目标版本。每一步一个事务，版本号在同一事务内落盘。
func migrate(engine *xorm.Engine, targetVersion int) error {
	if err := ensureVersionTable(engine); err != nil {
		return err
	}

	current, err := readVersion(engine)
	if err != nil {
		return err
	}

	if current > targetVersion {
		return &MigrationError{
			FromVersion: current,
			ToVersion:   targetVersion,
			Err:         fmt.Errorf("database version %d is newer than target %d", current, targetVersion),
		}
	}

	if current == targetVersion {
		log.Debugf("task schema already at version %d", current)
		return nil
	}

	for _, m := range migrations {
		if m.fromVersion < current || m.toVersion > targetVersion {
			continue
		}

		_, err := engine.Transaction(func(session *xorm.Session) (interface{}, error) {
			for _, statement := range m.statements {
				if _, execErr := session.Exec(statement); execErr != nil {
					return nil, execErr
				}
			}
			if _, execErr := session.Exec(
				fmt.Sprintf("UPDATE %v SET %v = ?", entity.TableNameSchemaVersion, entity.SchemaVersionFieldVersion),
				m.toVersion,
			); execErr != nil {
				return nil, execErr
			}
			return nil, nil
		})
		if err != nil {
			return &MigrationError{FromVersion: m.fromVersion, ToVersion: m.toVersion, Err: err}
		}

		log.Infof("task schema migrated %d -> %d", m.fromVersion, m.toVersion)
		current = m.toVersion
	}

	if current != targetVersion {
		return &MigrationError{
			FromVersion: current,
			ToVersion:   targetVersion,
			Err:         fmt.Errorf("no migration path from version %d", current),
		}
	}

	return nil
}

// ensureVersionTable 保证版本表存在且有一行。新库从版本 0 起步。
func ensureVersionTable(engine *xorm.Engine) error {
	_, err := engine.Transaction(func(session *xorm.Session) (interface{}, error) {
		if _, execErr := session.Exec(fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %v (%v INTEGER NOT NULL)",
			entity.TableNameSchemaVersion, entity.SchemaVersionFieldVersion,
		)); execErr != nil {
			return nil, execErr
		}

		results, queryErr := session.QueryInterface(fmt.Sprintf(
			"SELECT %v FROM %v LIMIT 1",
			entity.SchemaVersionFieldVersion, entity.TableNameSchemaVersion,
		))
		if queryErr != nil {
			return nil, queryErr
		}
		if len(results) > 0 {
			return nil, nil
		}

		if _, execErr := session.Exec(fmt.Sprintf(
			"INSERT INTO %v (%v) VALUES (0)",
			entity.TableNameSchemaVersion, entity.SchemaVersionFieldVersion,
		)); execErr != nil {
			return nil, execErr
		}
		return nil, nil
	})
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func readVersion(engine *xorm.Engine) (int, error) {
	version := &entity.SchemaVersion{}
	has, err := engine.Table(entity.TableNameSchemaVersion).Get(version)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	if !has {
		return 0, nil
	}
	return version.Version, nil
}

// currentColumns 返回 task 表的列名集合，供迁移测试和健康检查使用
func currentColumns(engine *xorm.Engine) (map[string]bool, error) {
	results, err := engine.QueryInterface(fmt.Sprintf("PRAGMA table_info(%v)", entity.TableNameTask))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	columns := make(map[string]bool, len(results))
	for _, row := range results {
		switch name := row["name"].(type) {
		case string:
			columns[name] = true
		case []byte:
			columns[string(name)] = true
		}
	}
	return columns, nil
}
