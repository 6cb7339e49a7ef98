// Package mq — обмен событиями с остальными частями бота через RabbitMQ.
//
// Структура:
//   - connection.go   — соединение с автоматическим переподключением
//   - topology.go     — объявление exchanges, queues, bindings
//   - messages.go     — конверт сообщения и payload-типы
//   - publisher.go    — публикация событий о заявках и результатов нажатий
//   - consumer.go     — потребление очереди, обработка каждой доставки в своей горутине
//   - interactions.go — приём нажатий кнопок и передача их координатору
//
// Типы сообщений:
//   - interaction.action — пользователь нажал кнопку (от слоя представления)
//   - interaction.result — исход действия (слою представления)
//   - request.*          — события о заявках для аудита
//
// Exchanges:
//   - uvd.interactions — нажатия и их результаты (direct)
//   - uvd.requests     — события о заявках (topic)
//   - uvd.dlq          — dead letter queue
package mq
