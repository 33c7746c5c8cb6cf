package model

import (
	"fmt"
	"regexp"

	log "github.com/sirupsen/logrus"
)

const (
	ErrorStorageUnavailable = 200001
	ErrorMigrationFailed    = 200002
	ErrorTaskNotFound       = 200003
	ErrorNetwork            = 200004
	ErrorApi                = 200005
	ErrorDecode             = 200006
	ErrorValidation         = 200007
	ErrorParams             = 200008
	ErrorEmptyId            = 200009
	ErrorNewRepo            = 200010
	ErrorDB                 = 200011
)

var ErrorMessages = map[int]string{
	ErrorStorageUnavailable: "本地存储不可用",
	ErrorMigrationFailed:    "schema 迁移失败",
	ErrorTaskNotFound:       "任务不存在",
	ErrorNetwork:            "网络请求失败",
	ErrorApi:                "预测服务返回错误",
	ErrorDecode:             "预测服务响应解析失败",
	ErrorValidation:         "参数校验失败",
	ErrorParams:             "参数错误",
	ErrorEmptyId:            "id 为空",
	ErrorNewRepo:            "新建 repo 失败",
	ErrorDB:                 "db error",
}

type Error struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	InnerError error  `json:"inner_error"`
}

func (err Error) Error() string {
	return err.Message
}

func (err Error) String() string {
	return err.InnerError.Error()
}

func NewError(code int, innerError error) *Error {
	if innerError != nil {
		var re = regexp.MustCompile(`[\n\t]+`)
		innerErrorString := re.ReplaceAllString(fmt.Sprintf("%+v", innerError), " ")
		log.Errorf("NewError code:%d, message:%s, innerError:%+v\n", code, ErrorMessages[code], innerErrorString)
	}
	return &Error{
		Code:       code,
		Message:    ErrorMessages[code],
		InnerError: nil,
	}
}

func NewErrorWithMessage(code int, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		InnerError: nil,
	}
}
