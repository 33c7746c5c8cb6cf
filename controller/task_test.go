package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nurduman/pinn-app/constant"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newListContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/v1/tasks?"+rawQuery, nil)
	return ctx
}

func TestParseListConditionDefaults(t *testing.T) {
	condition, err := parseListCondition(newListContext(t, ""))
	require.NoError(t, err)

	assert.Nil(t, condition.IsCompleted)
	assert.Equal(t, constant.DefaultPageLimit, condition.Pager.Limit)
	assert.Equal(t, 0, condition.Pager.Offset)
}

func TestParseListConditionExplicitValues(t *testing.T) {
	condition, err := parseListCondition(newListContext(t, "completed=true&limit=3&offset=6"))
	require.NoError(t, err)

	require.NotNil(t, condition.IsCompleted)
	assert.True(t, *condition.IsCompleted)
	assert.Equal(t, 3, condition.Pager.Limit)
	assert.Equal(t, 6, condition.Pager.Offset)
}

func TestParseListConditionZeroLimitDisablesPaging(t *testing.T) {
	condition, err := parseListCondition(newListContext(t, "limit=0"))
	require.NoError(t, err)
	assert.Equal(t, 0, condition.Pager.Limit)
}

func TestParseListConditionRejectsBadValues(t *testing.T) {
	_, err := parseListCondition(newListContext(t, "completed=maybe"))
	require.Error(t, err)

	_, err = parseListCondition(newListContext(t, "limit=ten"))
	require.Error(t, err)

	_, err = parseListCondition(newListContext(t, "offset=x"))
	require.Error(t, err)
}
