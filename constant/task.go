package constant

// =============================================
// 任务表 schema 常量
// =============================================

const (
	// SchemaVersionTarget task 表当前的目标 schema 版本
	SchemaVersionTarget = 4
)

// =============================================
// PINN 预测请求常量
// =============================================

const (
	// DefaultPredictHost 未配置时的预测服务地址
	DefaultPredictHost = "127.0.0.1:8000"

	// PredictPath 预测服务的请求路径
	PredictPath = "/predict"

	// PredictFieldConductivity 表单字段：导热系数
	PredictFieldConductivity = "conductivity"
	// PredictFieldRadius 表单字段：半径
	PredictFieldRadius = "radius"
	// PredictFieldDepth 表单字段：深度
	PredictFieldDepth = "depth"
	// PredictPartGeometry 文件部分：几何文件
	PredictPartGeometry = "geometry_file"
	// PredictPartSurfaceTemp 文件部分：表面温度文件
	PredictPartSurfaceTemp = "surface_temp_file"

	// PredictStatusSuccess 响应 status 字段的成功值
	PredictStatusSuccess = "success"

	// DefaultPredictTimeoutSeconds 预测请求默认超时（秒）
	DefaultPredictTimeoutSeconds = 30
)
