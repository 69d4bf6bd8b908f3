package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tolga/reserva/internal/auth"
	"github.com/tolga/reserva/internal/clock"
	"github.com/tolga/reserva/internal/config"
	"github.com/tolga/reserva/internal/handler"
	"github.com/tolga/reserva/internal/lock"
	"github.com/tolga/reserva/internal/repository"
	"github.com/tolga/reserva/internal/scheduler"
	"github.com/tolga/reserva/internal/service"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("configuration error")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	calendar, err := cfg.Calendar()
	if err != nil {
		logger.Fatal().Err(err).Msg("calendar error")
	}

	db, err := repository.Open(cfg.DBDriver, cfg.DBConnection, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	if err := repository.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("database migration failed")
	}

	clk := clock.System{}
	locks := lock.NewRoomLock()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, clk)
	resets := auth.NewResetTokenStore(0, clk)
	resets.StartJanitor(0)
	defer resets.Close()

	reservationRepo := repository.NewReservationRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	userRepo := repository.NewUserRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	reportRepo := repository.NewReportRepository(db)
	jobRunRepo := repository.NewJobRunRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	notifier := service.NewLogNotifier(logger)
	bookings := service.NewBookingService(db, reservationRepo, roomRepo, userRepo, locks, clk, calendar, notifier, logger)
	rooms := service.NewRoomService(roomRepo, reservationRepo, departmentRepo)
	users := service.NewUserService(userRepo, tokens, resets, logger)
	departments := service.NewDepartmentService(departmentRepo, userRepo)
	reports := service.NewReportService(reportRepo, calendar)

	jobs := scheduler.NewJobs(reservationRepo, reminderRepo, locks, clk, notifier, logger,
		cfg.AutoApproveAfter, cfg.ArchiveAfter)
	sched := scheduler.New(calendar.Location(), jobRunRepo, clk, logger)
	if err := sched.RegisterDefaults(jobs); err != nil {
		logger.Fatal().Err(err).Msg("scheduler registration failed")
	}
	sched.Start()
	defer sched.Stop()

	router := handler.NewRouter(handler.RouterDeps{
		Auth:         handler.NewAuthHandler(users),
		Reservations: handler.NewReservationHandler(bookings),
		Rooms:        handler.NewRoomHandler(rooms),
		Departments:  handler.NewDepartmentHandler(departments),
		Users:        handler.NewUserHandler(users),
		Reports:      handler.NewReportHandler(reports),
		Tokens:       tokens,
		Logger:       logger,
		CORSOrigins:  cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
