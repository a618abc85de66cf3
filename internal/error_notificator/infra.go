package error_notificator

import (
	"context"
	"fmt"

	"github.com/Vovarama1992/go-utils/logger"
)

type Infra struct {
	log *logger.ZapLogger
}

func NewInfra(log *logger.ZapLogger) *Infra {
	return &Infra{log: log}
}

func (i *Infra) Notify(ctx context.Context, source string, err error, details string) error {
	i.log.Log(logger.LogEntry{
		Level:   "error",
		Message: fmt.Sprintf("[%s] %s", source, details),
		Error:   err,
		Service: source,
	})
	return nil
}
