// Package config загружает конфигурацию сервиса и CLI.
//
// Порядок применения (каждый следующий перекрывает предыдущий):
//  1. значения по умолчанию (Default)
//  2. YAML-файл (путь из аргумента или UVD_CONFIG)
//  3. переменные окружения
//
// Переменные окружения:
//
//	LOG_LEVEL, LOG_FORMAT
//	HTTP_PORT
//	STORE_DRIVER, DB_URL, SQLITE_PATH
//	REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REDIS_PREFIX
//	RABBITMQ_URL, RABBITMQ_PREFETCH
//	DISCORD_TOKEN, DISCORD_API_URL
//	CALLER_MAX_ATTEMPTS, CALLER_RATE_LIMIT, CALLER_BURST
//	QUEUE_CAPACITY
//	RECONCILE_SCHEDULE, RECONCILE_RETENTION, RECONCILE_DISABLED
package config
