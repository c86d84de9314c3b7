package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	bookReservationHandler "github.com/kirillmaftuljak/WPKHK/internal/api/handlers/book_reservation"
	cancelBookingHandler "github.com/kirillmaftuljak/WPKHK/internal/api/handlers/cancel_booking"
	deleteAppointmentHandler "github.com/kirillmaftuljak/WPKHK/internal/api/handlers/delete_appointment"
	getFreeSlotsHandler "github.com/kirillmaftuljak/WPKHK/internal/api/handlers/get_free_slots"
	updateAppointmentHandler "github.com/kirillmaftuljak/WPKHK/internal/api/handlers/update_appointment"
	"github.com/kirillmaftuljak/WPKHK/internal/api/middleware"
	"github.com/kirillmaftuljak/WPKHK/internal/config"
	"github.com/kirillmaftuljak/WPKHK/internal/domain"
	"github.com/kirillmaftuljak/WPKHK/internal/infra/broker/bookingevents"
	"github.com/kirillmaftuljak/WPKHK/internal/infra/cache/slotcache"
	appointmentRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/appointment"
	bookableRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/bookable"
	couponRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/coupon"
	customerRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/customer"
	eventRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/event"
	paymentRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/payment"
	providerRepo "github.com/kirillmaftuljak/WPKHK/internal/infra/storage/provider"
	"github.com/kirillmaftuljak/WPKHK/internal/integrations/googlecalendar"
	"github.com/kirillmaftuljak/WPKHK/internal/integrations/stripegateway"
	appointmentsService "github.com/kirillmaftuljak/WPKHK/internal/service/appointments"
	couponsService "github.com/kirillmaftuljak/WPKHK/internal/service/coupons"
	customersService "github.com/kirillmaftuljak/WPKHK/internal/service/customers"
	paymentsService "github.com/kirillmaftuljak/WPKHK/internal/service/payments"
	bookReservationUC "github.com/kirillmaftuljak/WPKHK/internal/usecase/book_reservation"
	getFreeSlotsUC "github.com/kirillmaftuljak/WPKHK/internal/usecase/get_free_slots"
	"github.com/kirillmaftuljak/WPKHK/pkg/dbmetrics"
	"github.com/kirillmaftuljak/WPKHK/pkg/logger"
	"github.com/kirillmaftuljak/WPKHK/pkg/metrics"
	"github.com/kirillmaftuljak/WPKHK/pkg/simpletxmanager"
	"github.com/kirillmaftuljak/WPKHK/pkg/txmanager"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting WPKHK booking engine...")
	log.Info("Configuration loaded from config.toml")

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	var wrappedDB *dbmetrics.DB
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Инициализируем репозитории (с метриками или без)
	var (
		appointmentRepository *appointmentRepo.Repository
		bookableRepository    *bookableRepo.Repository
		couponRepository      *couponRepo.Repository
		customerRepository    *customerRepo.Repository
		eventRepository       *eventRepo.Repository
		paymentRepository     *paymentRepo.Repository
		providerRepository    *providerRepo.Repository
	)

	type TxManager interface {
		DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	}
	var txMgr TxManager

	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
		log.Info("Database metrics collection started")

		appointmentRepository = appointmentRepo.NewRepository(wrappedDB)
		bookableRepository = bookableRepo.NewRepository(wrappedDB)
		couponRepository = couponRepo.NewRepository(wrappedDB)
		customerRepository = customerRepo.NewRepository(wrappedDB)
		eventRepository = eventRepo.NewRepository(wrappedDB)
		paymentRepository = paymentRepo.NewRepository(wrappedDB)
		providerRepository = providerRepo.NewRepository(wrappedDB)
		txMgr = txmanager.NewTransactionManager(wrappedDB)
	} else {
		appointmentRepository = appointmentRepo.NewRepository(db)
		bookableRepository = bookableRepo.NewRepository(db)
		couponRepository = couponRepo.NewRepository(db)
		customerRepository = customerRepo.NewRepository(db)
		eventRepository = eventRepo.NewRepository(db)
		paymentRepository = paymentRepo.NewRepository(db)
		providerRepository = providerRepo.NewRepository(db)
		txMgr = simpletxmanager.NewTransactionManager(db)
	}

	// Кэш слотов (если включен Redis)
	var (
		slotsCache       getFreeSlotsUC.SlotCache
		bookingCache     bookReservationUC.SlotCache
		appointmentCache appointmentsService.SlotCache
	)
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache := slotcache.New(redisClient, time.Duration(cfg.Redis.SlotCacheTTL)*time.Second)
		slotsCache = cache
		bookingCache = cache
		appointmentCache = cache
		log.Info("Slot cache enabled (redis=%s, ttl=%ds)", cfg.Redis.Addr, cfg.Redis.SlotCacheTTL)
	}

	// Продюсер доменных событий (если включен Kafka)
	var (
		bookingProducer     bookReservationUC.EventProducer
		appointmentProducer appointmentsService.EventProducer
	)
	if cfg.Kafka.Enabled {
		producer := bookingevents.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		bookingProducer = producer
		appointmentProducer = producer
		log.Info("Booking events producer enabled (brokers=%v, topic=%s)", cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}

	// Клиент внешнего календаря (если включен)
	var (
		slotsCalendar       getFreeSlotsUC.CalendarClient
		bookingCalendar     bookReservationUC.CalendarClient
		appointmentCalendar appointmentsService.CalendarClient
	)
	if cfg.GoogleCalendar.Enabled {
		calendarClient := googlecalendar.NewClient(
			cfg.GoogleCalendar.BaseURL,
			cfg.GoogleCalendar.APIKey,
			time.Duration(cfg.GoogleCalendar.Timeout)*time.Second,
			log,
		)
		slotsCalendar = calendarClient
		bookingCalendar = calendarClient
		appointmentCalendar = calendarClient
		log.Info("Google calendar integration enabled (url=%s)", cfg.GoogleCalendar.BaseURL)
	}

	// Платежный шлюз
	stripeClient := stripegateway.NewClient(
		cfg.Stripe.SecretKey,
		time.Duration(cfg.Stripe.Timeout)*time.Second,
		log,
	)

	// Настройки расчета слотов
	defaultStatus := domain.StatusApproved
	if cfg.Scheduling.DefaultAppointmentStatus == string(domain.StatusPending) {
		defaultStatus = domain.StatusPending
	}

	// Часовой пояс компании: клиентское время в UTC переводится в него
	var displayLocation *time.Location
	if cfg.Scheduling.ShowClientTimeZone && cfg.Scheduling.TimeZone != "" {
		displayLocation, err = time.LoadLocation(cfg.Scheduling.TimeZone)
		if err != nil {
			log.Fatal("Failed to load time zone %q: %v", cfg.Scheduling.TimeZone, err)
		}
	}

	slotSettings := getFreeSlotsUC.Settings{
		SlotLength:                   time.Duration(cfg.Scheduling.TimeSlotLength) * time.Second,
		UseServiceDurationAsSlot:     cfg.Scheduling.ServiceDurationAsSlot,
		MinimumTimeBeforeBooking:     time.Duration(cfg.Scheduling.MinimumTimeBeforeBooking) * time.Second,
		DaysAvailableForBooking:      cfg.Scheduling.DaysAvailableForBooking,
		BackendDaysAvailable:         domain.BackendDaysAvailableForBooking,
		AllowBookingIfPending:        cfg.Scheduling.AllowBookingIfPending,
		AllowBookingIfNotMinCapacity: cfg.Scheduling.AllowBookingIfNotMinCapacity,
	}

	// Инициализируем сервисы
	customerSvc := customersService.NewService(customerRepository, log)
	couponSvc := couponsService.NewService(couponRepository, log)
	paymentSvc := paymentsService.NewService(paymentRepository, stripeClient, log)
	appointmentSvc := appointmentsService.NewService(
		appointmentRepository,
		bookableRepository,
		txMgr,
		appointmentCache,
		appointmentProducer,
		appointmentCalendar,
		providerRepository,
		&appointmentsService.RealTimeProvider{},
		time.Duration(cfg.Scheduling.MinimumTimeBeforeCanceling)*time.Second,
		log,
	)

	// Инициализируем use cases
	getFreeSlotsUseCase := getFreeSlotsUC.NewUseCase(
		bookableRepository,
		providerRepository,
		appointmentRepository,
		slotsCalendar,
		slotsCache,
		slotSettings,
		log,
	)

	bookReservationUseCase := bookReservationUC.NewUseCase(
		appointmentRepository,
		eventRepository,
		bookableRepository,
		customerSvc,
		couponSvc,
		paymentSvc,
		getFreeSlotsUseCase,
		txMgr,
		bookingCache,
		bookingProducer,
		bookingCalendar,
		providerRepository,
		log,
		bookReservationUC.Settings{
			DefaultStatus:            defaultStatus,
			MinimumTimeBeforeBooking: time.Duration(cfg.Scheduling.MinimumTimeBeforeBooking) * time.Second,
			DisplayLocation:          displayLocation,
		},
	)

	// Инициализируем handlers
	getFreeSlots := getFreeSlotsHandler.NewHandler(getFreeSlotsUseCase, log)
	bookReservation := bookReservationHandler.NewHandler(bookReservationUseCase, log)
	updateAppointment := updateAppointmentHandler.NewHandler(appointmentSvc, log)
	deleteAppointment := deleteAppointmentHandler.NewHandler(appointmentSvc, log)
	cancelBooking := cancelBookingHandler.NewHandler(appointmentSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector, cfg.Metrics.ServiceName))
		log.Info("HTTP metrics middleware enabled")
	}

	// Metrics endpoint (публичный, без аутентификации)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (клиентская форма бронирования)
	// ============================================================

	// Свободные слоты услуги
	api.HandleFunc("/services/{serviceId}/free-slots",
		getFreeSlots.Handle).Methods(http.MethodGet)

	// Бронирование записи или события
	api.HandleFunc("/reservations", bookReservation.Handle).Methods(http.MethodPost)

	// Отмена бронирования по capability-токену
	api.HandleFunc("/bookings/{bookingId}/cancel", cancelBooking.Handle).Methods(http.MethodPost)

	// ============================================================
	// ADMIN ROUTES (требуют X-User-ID header)
	// ============================================================

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.Auth)

	// Свободные слоты с расширенным горизонтом
	admin.HandleFunc("/services/{serviceId}/free-slots",
		getFreeSlots.HandleBackend).Methods(http.MethodGet)

	// Бронирование из панели администратора
	admin.HandleFunc("/reservations", bookReservation.HandleBackend).Methods(http.MethodPost)

	// Изменение записи: статус, перенос, заметки
	admin.HandleFunc("/appointments/{appointmentId}",
		updateAppointment.Handle).Methods(http.MethodPatch)

	// Удаление записи (перевод в rejected)
	admin.HandleFunc("/appointments/{appointmentId}",
		deleteAppointment.Handle).Methods(http.MethodDelete)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
