// Package taskqueue — фоновый исполнитель блокирующих операций записи.
//
// Очередь ограничена по размеру и обслуживается ровно одним потребителем:
// много конкурентных производителей превращаются в одного писателя.
// Это нужно потому, что хранилище не допускает конкурентной записи,
// а блокирующие вызовы не должны выполняться на пути обработки событий.
//
// Две формы отправки:
//   - Submit — возвращает Future; при переполнении Future сразу завершён с ErrQueueFull
//   - SubmitAndForget — при переполнении задача отбрасывается, пишется лог
//     и увеличивается счётчик uvd_taskqueue_dropped_total
//
// Порядок выполнения — FIFO, параллельно две задачи не выполняются никогда.
package taskqueue
