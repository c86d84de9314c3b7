package coupon

import (
	"github.com/kirillmaftuljak/WPKHK/pkg/dbmetrics"
)

// Переиспользуем интерфейсы из dbmetrics для работы с БД
type DBExecutor = dbmetrics.DBExecutor
