package str

import (
	"strconv"
)

// 字符串转int
func StringToInt(str string) (int, error) {
	if str == "" {
		return 0, nil
	}

	i, err := strconv.Atoi(str)
	if err != nil {
		return 0, err
	}

	return i, err
}

// @Title FloatToFormValue
// @Description float 转表单字段字符串，最短无损表示
// @params f float64 ""
// @return  - string ""
func FloatToFormValue(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
