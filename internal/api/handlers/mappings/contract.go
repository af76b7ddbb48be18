package mappings

import (
	"context"

	"github.com/m04kA/SMC-CounselingService/internal/service/mappings/models"
)

type MappingService interface {
	Create(ctx context.Context, req *models.CreateMappingRequest) (*models.MappingResponse, error)
	Update(ctx context.Context, id int64, req *models.UpdateMappingRequest) (*models.MappingResponse, error)
	ConfirmPayment(ctx context.Context, id int64, req *models.ConfirmPaymentRequest) (*models.MappingResponse, error)
	ConfirmDeposit(ctx context.Context, id int64, req *models.ConfirmDepositRequest) (*models.MappingResponse, error)
	Approve(ctx context.Context, id int64, req *models.ApproveRequest) (*models.MappingResponse, error)
	Terminate(ctx context.Context, id int64, req *models.TerminateRequest) (*models.MappingResponse, error)
	GetByID(ctx context.Context, id int64) (*models.MappingResponse, error)
	List(ctx context.Context, req *models.ListMappingsRequest) (*models.MappingListResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
