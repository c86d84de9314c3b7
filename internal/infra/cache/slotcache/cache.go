package slotcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillmaftuljak/WPKHK/internal/timeslot"
)

// Cache кэш рассчитанных слотов в Redis.
//
// Кэш сглаживает нагрузку от повторных запросов календаря. TTL короткий:
// авторитетная проверка слота все равно выполняется внутри транзакции
// бронирования, поэтому недолгое устаревание безопасно
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New создает кэш слотов поверх подключения к Redis
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Key собирает ключ кэша из параметров запроса слотов. Ключ покрывает все
// параметры, влияющие на карту слотов: опции удлиняют требуемую длительность,
// локация фильтрует сотрудников
func Key(serviceID, providerID, locationID int64, dateFrom, dateTo string, persons int, extras string) string {
	return fmt.Sprintf("slots:%d:%d:%d:%s:%s:%d:%s", serviceID, providerID, locationID, dateFrom, dateTo, persons, extras)
}

// Get возвращает закэшированную карту слотов; (nil, nil) при промахе
func (c *Cache) Get(ctx context.Context, key string) (timeslot.SlotMap, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("slotcache.Get - redis get: %w", err)
	}

	var slots timeslot.SlotMap
	if err := json.Unmarshal(payload, &slots); err != nil {
		return nil, fmt.Errorf("slotcache.Get - decode payload: %w", err)
	}

	return slots, nil
}

// Set сохраняет карту слотов с настроенным TTL
func (c *Cache) Set(ctx context.Context, key string, slots timeslot.SlotMap) error {
	payload, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("slotcache.Set - encode payload: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("slotcache.Set - redis set: %w", err)
	}

	return nil
}

// InvalidateService сбрасывает все закэшированные слоты услуги.
// Вызывается после успешного бронирования, переноса или удаления записи
func (c *Cache) InvalidateService(ctx context.Context, serviceID int64) error {
	pattern := fmt.Sprintf("slots:%d:*", serviceID)

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("slotcache.InvalidateService - scan keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("slotcache.InvalidateService - delete keys: %w", err)
	}

	return nil
}
