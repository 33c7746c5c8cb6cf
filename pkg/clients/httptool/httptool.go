package httptool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/nurduman/pinn-app/pkg/tools"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	ConnectionRefusedTag = "connection refused"

	HeaderContentType = "Content-Type"
)

var replaceErrorMsg = map[string]string{
	ConnectionRefusedTag: "链接失败",
}

// FilePart multipart 请求里的一个文件部分
type FilePart struct {
	FieldName   string
	FileName    string
	ContentType string
	Content     []byte
}

// Response 原始响应，状态码的分类交给调用方
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

type HTTPClient struct {
	sync.RWMutex
	hc         http.Client
	baseAddr   string
	header     http.Header
	clientName string
	requestLog bool
}

func NewHTTPClient(baseAddr, clientName string, timeout time.Duration, transport *http.Transport, requestLog bool) *HTTPClient {
	hc := &HTTPClient{
		baseAddr: "http://" + baseAddr,
		hc: http.Client{
			Timeout: timeout,
		},
		clientName: clientName,
		requestLog: requestLog,
	}
	// 直接塞 nil *http.Transport 会变成非 nil 的 RoundTripper 接口值，
	// net/http 解引用时崩
	if transport != nil {
		hc.hc.Transport = transport
	}
	return hc
}

func (hc *HTTPClient) SetHeader(key, value string) {
	hc.Lock()
	defer hc.Unlock()

	if hc.header == nil {
		hc.header = http.Header{}
	}

	hc.header.Set(key, value)
}

// PostMultipartWithContext 组装 multipart/form-data 并 POST。
// 传输层失败返回 error；HTTP 层不管状态码，整个响应交给调用方分类。
func (hc *HTTPClient) PostMultipartWithContext(ctx context.Context, url string, fields map[string]string, files []FilePart) (*Response, error) {
	//创建一个模拟的form中的一个选项,这个form项现在是空的
	bodyBuf := &bytes.Buffer{}
	bodyWriter := multipart.NewWriter(bodyBuf)

	for key, value := range fields {
		if err := bodyWriter.WriteField(key, value); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	for _, filePart := range files {
		partWriter, err := createFilePart(bodyWriter, filePart)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if _, err = partWriter.Write(filePart.Content); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	//获取上传文件的类型,multipart/form-data; boundary=...
	contentType := bodyWriter.FormDataContentType()

	//这个很关键,必须这样写关闭,不能使用defer关闭,不然会导致错误
	if err := bodyWriter.Close(); err != nil {
		return nil, errors.WithStack(err)
	}

	return hc.fetchRawWithContext(ctx, http.MethodPost, url, contentType, bodyBuf)
}

func (hc *HTTPClient) fetchRawWithContext(ctx context.Context, method, url, contentType string, body io.Reader) (*Response, error) {
	targetURL := fmt.Sprintf("%v%v", hc.baseAddr, url)
	now := time.Now()

	if hc.requestLog {
		log.Debugf("Sending %v request to %v", method, targetURL)
	}

	req, err := http.NewRequestWithContext(ctx, method, targetURL, body)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	hc.RLock()
	if hc.header != nil {
		req.Header = hc.header.Clone()
	}
	hc.RUnlock()
	if contentType != "" {
		req.Header.Set(HeaderContentType, contentType)
	}

	resp, err := hc.hc.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), ConnectionRefusedTag) {
			return nil, fmt.Errorf("%s模块: %s %s", hc.clientName, req.Host, replaceErrorMsg[ConnectionRefusedTag])
		}
		return nil, errors.WithStack(err)
	}
	defer tools.ErrorWithPrintContext(resp.Body.Close, "close response body")

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if hc.requestLog {
		log.Debugf("Got response from %v %v, status code = %d, body = %v took = %v",
			req.Method, req.URL, resp.StatusCode, string(bodyBytes), time.Since(now))
	}

	if time.Since(now) > 800*time.Millisecond {
		log.Infof("TimeConsuming: from %v %v, status code = %d took = %v\n",
			req.Method, req.URL, resp.StatusCode, time.Since(now))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       bodyBytes,
	}, nil
}

// createFilePart 带显式 Content-Type 的文件部分。
// CreateFormFile 会写死 application/octet-stream，所以手工拼 MIME 头。
func createFilePart(bodyWriter *multipart.Writer, filePart FilePart) (io.Writer, error) {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(
		`form-data; name="%s"; filename="%s"`,
		escapeQuotes(filePart.FieldName), escapeQuotes(filePart.FileName),
	))
	if filePart.ContentType != "" {
		header.Set(HeaderContentType, filePart.ContentType)
	}
	return bodyWriter.CreatePart(header)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
