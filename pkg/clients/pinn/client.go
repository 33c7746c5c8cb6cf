package pinn

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/nurduman/pinn-app/config"
	"github.com/nurduman/pinn-app/constant"
	"github.com/nurduman/pinn-app/pkg/clients/httptool"
	"github.com/nurduman/pinn-app/pkg/file"
	"github.com/nurduman/pinn-app/pkg/str"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	clientName      = "pinn"
	filePartType    = "text/plain"
	defaultFileName = "input.txt"
)

var (
	instance *Client
	once     sync.Once
)

// Client PINN 预测服务客户端。调用之间不保留状态，连接复用交给底层 http.Client。
type Client struct {
	hc *httptool.HTTPClient
}

// GetInstance 获取预测客户端单例
func GetInstance() *Client {
	once.Do(func() {
		cfg := config.GetInstance()
		timeout := time.Duration(cfg.GetIntOrDefault(
			config.ClientPinnTimeout, constant.DefaultPredictTimeoutSeconds)) * time.Second

		instance = NewClient(
			cfg.GetStringOrDefault(config.ClientPinnHost, constant.DefaultPredictHost),
			timeout,
			cfg.GetBool(config.ClientsCommonRequestLog),
		)
	})
	return instance
}

// NewClient 创建预测客户端
func NewClient(host string, timeout time.Duration, requestLog bool) *Client {
	hc := httptool.NewHTTPClient(host, clientName, timeout, nil, requestLog)
	hc.SetHeader("Accept", "application/json")
	return &Client{hc: hc}
}

// Output 预测服务返回的优化结果
type Output struct {
	OptimizedDepth        float64 `json:"optimizedDepth"`
	OptimizedRadius       float64 `json:"optimizedRadius"`
	OptimizedConductivity float64 `json:"optimizedConductivity"`
}

// predictResponse 预测服务的标签化响应体
type predictResponse struct {
	Status string  `json:"status"`
	Output *Output `json:"output"`
}

// errorBody 非 2xx 时服务端可能带的错误体
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NetworkError 传输层失败
type NetworkError struct {
	Message string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("pinn network error: %s", e.Message)
}

// ApiError 服务端拒绝：非 2xx，或 2xx 但响应体不是合法的成功结构
type ApiError struct {
	StatusCode    int
	StatusMessage string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("pinn api error: status=%d message=%s", e.StatusCode, e.StatusMessage)
}

// DecodeError 2xx 响应体无法解析
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("pinn decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Predict 上传三个数值参数和两个文件内容，拿回优化后的三元组。
// 并发去重是调用方的事，这里每次调用就是一次独立请求。
func (c *Client) Predict(ctx context.Context, conductivity, radius, depth float64, geometryPath, surfaceTempPath string) (*Output, error) {
	geometryContent, err := file.GetContent(geometryPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read geometry file %s", geometryPath)
	}
	surfaceTempContent, err := file.GetContent(surfaceTempPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read surface temp file %s", surfaceTempPath)
	}

	fields := map[string]string{
		constant.PredictFieldConductivity: str.FloatToFormValue(conductivity),
		constant.PredictFieldRadius:       str.FloatToFormValue(radius),
		constant.PredictFieldDepth:        str.FloatToFormValue(depth),
	}
	files := []httptool.FilePart{
		{
			FieldName:   constant.PredictPartGeometry,
			FileName:    partFileName(geometryPath),
			ContentType: filePartType,
			Content:     []byte(geometryContent),
		},
		{
			FieldName:   constant.PredictPartSurfaceTemp,
			FileName:    partFileName(surfaceTempPath),
			ContentType: filePartType,
			Content:     []byte(surfaceTempContent),
		},
	}

	resp, err := c.hc.PostMultipartWithContext(ctx, constant.PredictPath, fields, files)
	if err != nil {
		log.Errorf("pinn predict transport failed: %v", err)
		return nil, &NetworkError{Message: err.Error()}
	}

	return decodeResponse(resp)
}

func decodeResponse(resp *httptool.Response) (*Output, error) {
	if resp.StatusCode/100 != 2 {
		message := resp.Status
		body := &errorBody{}
		if err := json.Unmarshal(resp.Body, body); err == nil {
			if body.Error != "" {
				message = body.Error
			} else if body.Message != "" {
				message = body.Message
			}
		}
		return nil, &ApiError{StatusCode: resp.StatusCode, StatusMessage: message}
	}

	parsed := &predictResponse{}
	if err := json.Unmarshal(resp.Body, parsed); err != nil {
		return nil, &DecodeError{Err: err}
	}

	if parsed.Status != constant.PredictStatusSuccess || parsed.Output == nil {
		return nil, &ApiError{
			StatusCode:    resp.StatusCode,
			StatusMessage: fmt.Sprintf("malformed success response, status=%q", parsed.Status),
		}
	}

	return parsed.Output, nil
}

func partFileName(path string) string {
	if name := filepath.Base(path); name != "." && name != string(filepath.Separator) {
		return name
	}
	return defaultFileName
}
