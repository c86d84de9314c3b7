package bookingevents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kirillmaftuljak/WPKHK/internal/domain"
)

// Типы доменных событий, публикуемых в Kafka. Подсистема уведомлений
// (письма и SMS клиентам и сотрудникам) подписана на этот топик
const (
	EventReservationCreated = "reservation.created"
	EventAppointmentUpdated = "appointment.updated"
	EventAppointmentDeleted = "appointment.deleted"
	EventBookingCanceled    = "booking.canceled"
)

// Message конверт доменного события
type Message struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	AppointmentID int64 `json:"appointment_id,omitempty"`
	EventID       int64 `json:"event_id,omitempty"`

	// Bookings бронирования, чей статус изменился; получатели уведомлений
	Bookings []BookingRef `json:"bookings,omitempty"`

	// UploadedFiles файлы из полей формы; подсистема уведомлений
	// прикладывает их к письмам и переносит из временного каталога
	UploadedFiles []UploadedFile `json:"uploaded_files,omitempty"`
}

// BookingRef ссылка на бронирование в составе события
type BookingRef struct {
	BookingID  int64                `json:"booking_id"`
	CustomerID int64                `json:"customer_id"`
	Status     domain.BookingStatus `json:"status"`
}

// UploadedFile метаданные файла, загруженного через поле формы
type UploadedFile struct {
	FieldID  string `json:"field_id"`
	FileName string `json:"file_name"`
	TmpPath  string `json:"tmp_path"`
}

// Producer публикует доменные события бронирования.
//
// Публикация выполняется строго после коммита транзакции: событие о
// незакоммиченном бронировании хуже потерянного события
type Producer struct {
	writer *kafka.Writer
}

// NewProducer создает продюсер поверх указанных брокеров
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Publish отправляет событие; ключ партиционирования — id записи/события
func (p *Producer) Publish(ctx context.Context, msg Message) error {
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("bookingevents.Publish - encode message: %w", err)
	}

	key := fmt.Sprintf("%s:%d", domain.EntityAppointment, msg.AppointmentID)
	if msg.EventID != 0 {
		key = fmt.Sprintf("%s:%d", domain.EntityEvent, msg.EventID)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload}); err != nil {
		return fmt.Errorf("bookingevents.Publish - write message: %w", err)
	}

	return nil
}

// BookingRefs собирает ссылки из бронирований с изменившимся статусом
func BookingRefs(bookings []*domain.CustomerBooking) []BookingRef {
	refs := make([]BookingRef, 0, len(bookings))
	for _, b := range bookings {
		refs = append(refs, BookingRef{
			BookingID:  b.ID,
			CustomerID: b.CustomerID,
			Status:     b.Status,
		})
	}
	return refs
}

// UploadedFiles собирает метаданные загруженных файлов для события
func UploadedFiles(files []domain.UploadedFileInfo) []UploadedFile {
	if len(files) == 0 {
		return nil
	}
	out := make([]UploadedFile, 0, len(files))
	for _, f := range files {
		out = append(out, UploadedFile{
			FieldID:  f.FieldID,
			FileName: f.FileName,
			TmpPath:  f.TmpPath,
		})
	}
	return out
}

// Close закрывает продюсер
func (p *Producer) Close() error {
	return p.writer.Close()
}
