package error_notificator

import "context"

type Notificator interface {
	// Notify — фиксирует внутреннюю ошибку; пользователю уходит только общее сообщение
	Notify(ctx context.Context, source string, err error, details string) error
}
