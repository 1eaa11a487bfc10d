package errors

import (
	"fmt"
	"testing"
)

func TestAppError_Wrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, CodeDatabaseError, "保存排课结果失败")

	if !Is(err, CodeDatabaseError) {
		t.Error("expected DATABASE_ERROR code")
	}
	if GetCode(fmt.Errorf("outer: %w", err)) != CodeDatabaseError {
		t.Error("code should survive wrapping")
	}
	if err.Unwrap() != cause {
		t.Error("Unwrap should return cause")
	}
	if err.Error() != "[DATABASE_ERROR] 保存排课结果失败: connection refused" {
		t.Errorf("Error() = %s", err.Error())
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"成功", nil, ExitOK},
		{"无解", NoFeasibleSolution("infeasible"), ExitNoSolution},
		{"配置错误", InvalidConfig("schedule.hard_constraints", "长度必须为 9"), ExitError},
		{"普通错误", fmt.Errorf("boom"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.expected {
				t.Errorf("GetExitCode() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestDataIntegrity(t *testing.T) {
	err := DataIntegrity(2, 1)
	if err.Code != CodeDataIntegrity {
		t.Errorf("code = %s", err.Code)
	}
	if err.Fields["invalid_rows"] != 2 || err.Fields["conflicts"] != 1 {
		t.Errorf("fields = %v", err.Fields)
	}
}

func TestValidationErrors(t *testing.T) {
	var ve ValidationErrors
	if ve.HasErrors() {
		t.Error("expected no errors")
	}
	ve.Add("app.env", "未知环境")
	appErr := ve.ToAppError()
	if appErr.Code != CodeInvalidConfig {
		t.Errorf("code = %s", appErr.Code)
	}
	if appErr.Fields["app.env"] != "未知环境" {
		t.Errorf("fields = %v", appErr.Fields)
	}
}
