// Package coordinator — точка входа для действий над заявками.
//
// Coordinator владеет всеми реестрами процесса (блокировки, очередь
// задач, хранилище, reconciler): Start инициализирует их при запуске,
// Stop дочитывает очередь при остановке.
//
// TryAction выполняет действие по схеме:
//
//	захват блокировки ключа → проверка перехода → эффекты на платформе →
//	сохранение → событие аудита → освобождение блокировки
//
// Ошибки после применённых эффектов не откатываются: они логируются как
// рассогласование и учитываются метрикой uvd_inconsistencies_total.
package coordinator
