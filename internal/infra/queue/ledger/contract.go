package ledger

import (
	"context"

	"github.com/hibiken/asynq"

	ledgerclient "github.com/m04kA/SMC-CounselingService/internal/integrations/ledger"
)

// Poster отправляет проводку во внешнюю учетную систему
type Poster interface {
	Post(ctx context.Context, p ledgerclient.Posting) error
}

// Enqueuer постановка задач в очередь (*asynq.Client)
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Metrics счетчик доставок проводок
type Metrics interface {
	LedgerPosting(kind, status string)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
