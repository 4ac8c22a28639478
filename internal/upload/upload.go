// upload — координатор параллельных загрузок объектов.
//
// Батч запускает по одной загрузке на задачу и завершается, когда
// все загрузки «осели» (успех или ошибка). Падение одной загрузки
// не отменяет остальные: в итоговом состоянии есть и успешные URL,
// и индексы неудачных задач, чтобы вызывающий мог повторить только их.
package upload

import (
	"context"
	"time"

	"github.com/pribylovaa/bondia/internal/metrics"
	"github.com/pribylovaa/bondia/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Uploader — то, что умеет положить объект и вернуть его URL.
type Uploader interface {
	Upload(ctx context.Context, obj storage.Object) (string, error)
}

// Task — одна загрузка. Индекс задачи — её позиция во входном срезе.
// Kind используется только как метка метрик (profile, gallery, event).
type Task struct {
	Kind   string
	Object storage.Object
}

// Coordinator запускает батчи загрузок с ограничением параллелизма.
type Coordinator struct {
	uploader Uploader
	limit    int
	metrics  *metrics.Metrics
}

// New создаёт координатор. limit <= 0 — без ограничения параллелизма внутри батча.
// m может быть nil.
func New(uploader Uploader, limit int, m *metrics.Metrics) *Coordinator {
	return &Coordinator{uploader: uploader, limit: limit, metrics: m}
}

// Start запускает загрузки и сразу возвращает батч.
// Каждая загрузка выполняется под ctx; задача, до которой очередь дошла
// после отмены ctx, оседает с ошибкой ctx.Err() без обращения к хранилищу.
// Пустой набор задач даёт уже завершённый батч.
func (c *Coordinator) Start(ctx context.Context, tasks []Task) *Batch {
	b := newBatch(len(tasks))
	if len(tasks) == 0 {
		return b
	}

	go func() {
		var g errgroup.Group
		if c.limit > 0 {
			g.SetLimit(c.limit)
		}

		for i, t := range tasks {
			g.Go(func() error {
				url, err := c.run(ctx, t)
				b.settle(i, url, err)
				return nil
			})
		}

		_ = g.Wait()
	}()

	return b
}

// RunBatch — Start + ожидание, пока осядут все задачи.
// Всегда возвращает полное состояние: даже при отмене ctx
// загрузки дорабатывают (наблюдая отмену) до конца.
func (c *Coordinator) RunBatch(ctx context.Context, tasks []Task) State {
	b := c.Start(ctx, tasks)
	<-b.Done()

	return b.State()
}

func (c *Coordinator) run(ctx context.Context, t Task) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	start := time.Now()
	url, err := c.uploader.Upload(ctx, t.Object)
	c.metrics.ObserveUpload(t.Kind, err, time.Since(start))

	return url, err
}
