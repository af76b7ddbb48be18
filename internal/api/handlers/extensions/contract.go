package extensions

import (
	"context"

	"github.com/m04kA/SMC-CounselingService/internal/service/extensions/models"
	mappingModels "github.com/m04kA/SMC-CounselingService/internal/service/mappings/models"
)

type ExtensionService interface {
	Create(ctx context.Context, req *models.CreateExtensionRequest) (*models.ExtensionResponse, error)
	ConfirmPayment(ctx context.Context, id int64, req *models.ConfirmPaymentRequest) (*models.ExtensionResponse, error)
	Approve(ctx context.Context, id int64, adminID int64, req *models.ApproveRequest) (*models.ExtensionResponse, error)
	Complete(ctx context.Context, id int64) (*models.ExtensionResponse, error)
	Reject(ctx context.Context, id int64, adminID int64, req *models.RejectRequest) (*models.ExtensionResponse, error)
	GetByID(ctx context.Context, id int64) (*models.ExtensionResponse, error)
	List(ctx context.Context, req *models.ListExtensionsRequest) (*models.ExtensionListResponse, error)
	ListEligibleMappings(ctx context.Context, consultantID, clientID *int64) (*mappingModels.MappingListResponse, error)
	Statistics(ctx context.Context, req *models.StatisticsRequest) (*models.StatisticsResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
