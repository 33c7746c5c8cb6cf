package entity

// ========== 任务表 ==========

const (
	TableNameTask = "task"

	TaskFieldID              = "id"
	TaskFieldTitle           = "title"
	TaskFieldDescription     = "description"
	TaskFieldConductivity    = "conductivity"
	TaskFieldRadius          = "radius"
	TaskFieldDepth           = "depth"
	TaskFieldGeometryFile    = "geometryFile"
	TaskFieldSurfaceTempFile = "surfaceTempFile"
	TaskFieldIsCompleted     = "isCompleted"
)

// Task 任务数据库实体。列名沿用历史 schema（camelCase），由迁移链建表，
// 不使用 xorm 的自动建表。
type Task struct {
	ID              string  `xorm:"pk varchar(64) 'id'" json:"id"`
	Title           string  `xorm:"text 'title'" json:"title"`
	Description     string  `xorm:"text 'description'" json:"description"`
	Conductivity    float64 `xorm:"double 'conductivity'" json:"conductivity"`
	Radius          float64 `xorm:"double 'radius'" json:"radius"`
	Depth           float64 `xorm:"double 'depth'" json:"depth"`
	GeometryFile    *string `xorm:"text null 'geometryFile'" json:"geometry_file"`
	SurfaceTempFile *string `xorm:"text null 'surfaceTempFile'" json:"surface_temp_file"`
	IsCompleted     bool    `xorm:"bool 'isCompleted'" json:"is_completed"`
}

func (e *Task) TableName() string {
	return TableNameTask
}

// HasBothFiles 两个文件引用是否都已设置
func (e *Task) HasBothFiles() bool {
	return e.GeometryFile != nil && *e.GeometryFile != "" &&
		e.SurfaceTempFile != nil && *e.SurfaceTempFile != ""
}

// ========== schema 版本表 ==========

const (
	TableNameSchemaVersion = "schema_version"

	SchemaVersionFieldVersion = "version"
)

// SchemaVersion 单行表，记录 task 表当前的 schema 版本
type SchemaVersion struct {
	Version int `xorm:"int 'version'" json:"version"`
}

func (e *SchemaVersion) TableName() string {
	return TableNameSchemaVersion
}
