package upload

import (
	"context"
	"sort"
	"sync"
)

// Success — успешная загрузка задачи Index.
type Success struct {
	Index int
	URL   string
}

// Failure — неудачная загрузка задачи Index.
type Failure struct {
	Index int
	Err   error
}

// State — снимок состояния батча.
// Succeeded и Failures идут в порядке завершения загрузок.
type State struct {
	Total        int
	Settled      int
	Succeeded    []Success
	Failures     []Failure
	FirstFailure error

	order []int
}

// Done сообщает, что осели все задачи.
func (s State) Done() bool { return s.Settled == s.Total }

// Failed — в батче была хотя бы одна ошибка.
func (s State) Failed() bool { return s.FirstFailure != nil }

// FailedCount — число неудачных задач.
func (s State) FailedCount() int { return len(s.Failures) }

// URLs возвращает успешные URL в порядке входных задач.
func (s State) URLs() []string {
	ok := make([]Success, len(s.Succeeded))
	copy(ok, s.Succeeded)
	sort.Slice(ok, func(i, j int) bool { return ok[i].Index < ok[j].Index })

	out := make([]string, 0, len(ok))
	for _, v := range ok {
		out = append(out, v.URL)
	}

	return out
}

// FailedIndices — индексы неудачных задач по возрастанию.
func (s State) FailedIndices() []int {
	out := make([]int, 0, len(s.Failures))
	for _, f := range s.Failures {
		out = append(out, f.Index)
	}

	sort.Ints(out)

	return out
}

// CompletionOrder — индексы задач в порядке их завершения.
func (s State) CompletionOrder() []int {
	return append([]int(nil), s.order...)
}

// Batch — запущенный набор загрузок.
// Состояние меняется только под mu; done закрывается ровно один раз,
// в том вызове settle, который довёл Settled до Total.
type Batch struct {
	mu    sync.Mutex
	state State
	done  chan struct{}
}

func newBatch(total int) *Batch {
	b := &Batch{
		state: State{Total: total},
		done:  make(chan struct{}),
	}

	if total == 0 {
		close(b.done)
	}

	return b
}

func (b *Batch) settle(index int, url string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state.Settled++
	b.state.order = append(b.state.order, index)

	if err != nil {
		b.state.Failures = append(b.state.Failures, Failure{Index: index, Err: err})
		if b.state.FirstFailure == nil {
			b.state.FirstFailure = err
		}
	} else {
		b.state.Succeeded = append(b.state.Succeeded, Success{Index: index, URL: url})
	}

	if b.state.Settled == b.state.Total {
		close(b.done)
	}
}

// Done закрывается, когда осели все задачи батча.
func (b *Batch) Done() <-chan struct{} { return b.done }

// State возвращает копию текущего состояния.
func (b *Batch) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.state
	s.Succeeded = append([]Success(nil), b.state.Succeeded...)
	s.Failures = append([]Failure(nil), b.state.Failures...)
	s.order = append([]int(nil), b.state.order...)

	return s
}

// Wait ждёт завершения батча или отмены ctx.
// При отмене возвращает частичное состояние и ctx.Err(); загрузки продолжают оседать.
func (b *Batch) Wait(ctx context.Context) (State, error) {
	select {
	case <-b.done:
		return b.State(), nil
	case <-ctx.Done():
		return b.State(), ctx.Err()
	}
}
