package model

// ========== 任务创建/更新条件 ==========

// CreateTaskCondition 创建任务条件，id 由服务层生成
type CreateTaskCondition struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Conductivity    float64 `json:"conductivity"`
	Radius          float64 `json:"radius"`
	Depth           float64 `json:"depth"`
	GeometryFile    *string `json:"geometry_file"`
	SurfaceTempFile *string `json:"surface_temp_file"`
}

// UpdateTaskCondition 更新任务条件，nil 字段不更新
type UpdateTaskCondition struct {
	Title           *string  `json:"title"`
	Description     *string  `json:"description"`
	Conductivity    *float64 `json:"conductivity"`
	Radius          *float64 `json:"radius"`
	Depth           *float64 `json:"depth"`
	GeometryFile    *string  `json:"geometry_file"`
	SurfaceTempFile *string  `json:"surface_temp_file"`
	IsCompleted     *bool    `json:"is_completed"`
}

// ========== 任务列表条件 ==========

// TaskListCondition 任务列表条件
type TaskListCondition struct {
	IsCompleted *bool `json:"is_completed"`
	*Pager
	*Order
}

func (c *TaskListCondition) GetPager() *Pager {
	if c == nil {
		return nil
	}
	return c.Pager
}

func (c *TaskListCondition) GetOrder() *Order {
	if c == nil {
		return nil
	}
	return c.Order
}
