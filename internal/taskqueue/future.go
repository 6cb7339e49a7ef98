package taskqueue

import "context"

// Future — результат задачи, поставленной через Submit.
type Future struct {
	done   chan struct{}
	result any
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve завершает Future. Вызывается ровно один раз.
func (f *Future) resolve(result any, err error) {
	f.result = result
	f.err = err
	close(f.done)
}

// Done возвращает канал, закрывающийся по завершении задачи.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait ждёт результат задачи или отмены ctx.
// Отмена ctx не отменяет саму задачу: она будет выполнена потребителем.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Err ждёт завершения и возвращает только ошибку.
func (f *Future) Err(ctx context.Context) error {
	_, err := f.Wait(ctx)
	return err
}
