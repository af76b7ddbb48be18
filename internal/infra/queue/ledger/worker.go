package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	ledgerclient "github.com/m04kA/SMC-CounselingService/internal/integrations/ledger"
)

// WorkerConfig параметры обработчика очереди
type WorkerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
	Queue         string
}

// Worker забирает задачи доставки проводок из Redis и отправляет их в учетную систему
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    Logger
}

// NewWorker создает обработчик очереди
func NewWorker(cfg WorkerConfig, poster Poster, metrics Metrics, log Logger) *Worker {
	queue := cfg.Queue
	if queue == "" {
		queue = "default"
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				queue: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeLedgerPost, handlePostTask(poster, metrics, log))

	return &Worker{server: server, mux: mux, log: log}
}

// Run запускает обработку и блокируется до отмены ctx
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Starting ledger worker")

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start ledger worker: %w", err)
	}

	<-ctx.Done()

	w.log.Info("Stopping ledger worker")
	w.server.Shutdown()
	return nil
}

func handlePostTask(poster Poster, metrics Metrics, log Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p ledgerclient.Posting
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Error("Ledger task has invalid payload: %v", err)
			return fmt.Errorf("%w: %v: %w", ErrInvalidPayload, err, asynq.SkipRetry)
		}

		err := poster.Post(ctx, p)
		switch {
		case err == nil:
			metrics.LedgerPosting(p.Kind, statusDelivered)
			return nil
		case errors.Is(err, ledgerclient.ErrRejected):
			// Отклоненную проводку повторять бессмысленно
			log.Error("Ledger rejected posting key=%s: %v", p.IdempotencyKey, err)
			metrics.LedgerPosting(p.Kind, statusFailed)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		default:
			log.Warn("Ledger posting key=%s failed, will retry: %v", p.IdempotencyKey, err)
			return err
		}
	}
}
