package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	ledgerclient "github.com/m04kA/SMC-CounselingService/internal/integrations/ledger"
)

// TypeLedgerPost тип задачи доставки проводки
const TypeLedgerPost = "ledger:post"

// Статусы для метрики доставки
const (
	statusQueued    = "queued"
	statusDuplicate = "duplicate"
	statusDelivered = "delivered"
	statusFailed    = "failed"
	statusSkipped   = "skipped"
)

// NewPostTask создает задачу доставки. TaskID равен ключу идемпотентности,
// поэтому повторная постановка той же проводки отклоняется asynq.
func NewPostTask(p ledgerclient.Posting, queue string, maxRetry int) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	opts := []asynq.Option{
		asynq.TaskID(p.IdempotencyKey),
		asynq.MaxRetry(maxRetry),
	}
	if queue != "" {
		opts = append(opts, asynq.Queue(queue))
	}

	return asynq.NewTask(TypeLedgerPost, payload), opts, nil
}

// QueuePublisher ставит проводки в очередь asynq, доставку выполняет Worker
type QueuePublisher struct {
	client   Enqueuer
	queue    string
	maxRetry int
	metrics  Metrics
	log      Logger
}

// NewQueuePublisher создает публикатор поверх очереди
func NewQueuePublisher(client Enqueuer, queue string, maxRetry int, metrics Metrics, log Logger) *QueuePublisher {
	return &QueuePublisher{
		client:   client,
		queue:    queue,
		maxRetry: maxRetry,
		metrics:  metrics,
		log:      log,
	}
}

// Publish ставит проводку в очередь. Уже поставленная проводка не считается ошибкой.
func (p *QueuePublisher) Publish(ctx context.Context, entry domain.LedgerEntry) error {
	posting := ledgerclient.NewPosting(entry)

	task, opts, err := NewPostTask(posting, p.queue, p.maxRetry)
	if err != nil {
		p.metrics.LedgerPosting(posting.Kind, statusFailed)
		return err
	}

	info, err := p.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		p.log.Info("Ledger posting already queued: key=%s", posting.IdempotencyKey)
		p.metrics.LedgerPosting(posting.Kind, statusDuplicate)
		return nil
	}
	if err != nil {
		p.metrics.LedgerPosting(posting.Kind, statusFailed)
		return fmt.Errorf("%w: key=%s: %v", ErrEnqueue, posting.IdempotencyKey, err)
	}

	p.log.Info("Ledger posting queued: key=%s, kind=%s, mapping_id=%d, queue=%s",
		posting.IdempotencyKey, posting.Kind, posting.MappingID, info.Queue)
	p.metrics.LedgerPosting(posting.Kind, statusQueued)
	return nil
}

// DirectPublisher доставляет проводку синхронно, когда очередь выключена
type DirectPublisher struct {
	poster  Poster
	metrics Metrics
	log     Logger
}

// NewDirectPublisher создает синхронный публикатор
func NewDirectPublisher(poster Poster, metrics Metrics, log Logger) *DirectPublisher {
	return &DirectPublisher{poster: poster, metrics: metrics, log: log}
}

// Publish отправляет проводку сразу
func (p *DirectPublisher) Publish(ctx context.Context, entry domain.LedgerEntry) error {
	posting := ledgerclient.NewPosting(entry)

	if err := p.poster.Post(ctx, posting); err != nil {
		p.metrics.LedgerPosting(posting.Kind, statusFailed)
		return fmt.Errorf("%w: key=%s: %v", ErrDelivery, posting.IdempotencyKey, err)
	}

	p.metrics.LedgerPosting(posting.Kind, statusDelivered)
	return nil
}

// DiscardPublisher используется, когда интеграция с учетной системой выключена
type DiscardPublisher struct {
	metrics Metrics
	log     Logger
}

// NewDiscardPublisher создает публикатор, который только логирует проводки
func NewDiscardPublisher(metrics Metrics, log Logger) *DiscardPublisher {
	return &DiscardPublisher{metrics: metrics, log: log}
}

// Publish логирует проводку и ничего не отправляет
func (p *DiscardPublisher) Publish(_ context.Context, entry domain.LedgerEntry) error {
	p.log.Info("Ledger disabled, skipping posting: key=%s, kind=%s, mapping_id=%d, amount=%s",
		entry.IdempotencyKey, entry.Kind, entry.MappingID, entry.Amount.String())
	p.metrics.LedgerPosting(string(entry.Kind), statusSkipped)
	return nil
}
