package schedules

import (
	"context"

	"github.com/m04kA/SMC-CounselingService/internal/service/schedules/models"
)

type ScheduleService interface {
	GetByID(ctx context.Context, id int64) (*models.ScheduleResponse, error)
	List(ctx context.Context, req *models.ListSchedulesRequest) (*models.ScheduleListResponse, error)
	ChangeStatus(ctx context.Context, id int64, req *models.ChangeStatusRequest) (*models.ScheduleResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
