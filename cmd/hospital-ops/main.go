package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hospital-ops/internal/config"
	"hospital-ops/internal/database"
	httpapi "hospital-ops/internal/http"
	"hospital-ops/internal/logger"
	"hospital-ops/internal/repository"
	"hospital-ops/internal/service"
	"hospital-ops/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "hospital-ops")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	kv := store.NewRedisKV(redisClient)

	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for hospital-ops")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}

	var (
		shiftsRepo     repository.ShiftsRepository
		tasksRepo      repository.TasksRepository
		rxRepo         repository.PrescriptionsRepository
		admissionsRepo repository.AdmissionsRepository
		wardsRepo      repository.WardsRepository
		patientsRepo   repository.PatientsRepository
		dischargesRepo repository.DischargesRepository
		auditRepo      repository.AuditRepository
	)
	if db != nil {
		shiftsRepo = repository.NewPostgresShiftsRepository(db)
		tasksRepo = repository.NewPostgresTasksRepository(db)
		rxRepo = repository.NewPostgresPrescriptionsRepository(db)
		admissionsRepo = repository.NewPostgresAdmissionsRepository(db)
		wardsRepo = repository.NewPostgresWardsRepository(db)
		patientsRepo = repository.NewPostgresPatientsRepository(db)
		dischargesRepo = repository.NewPostgresDischargesRepository(db)
		auditRepo = repository.NewPostgresAuditRepository(db)
	} else {
		// Memory repos keep the service usable in local dev without Postgres.
		shiftsRepo = repository.NewMemoryShiftsRepo()
		tasksRepo = repository.NewMemoryTasksRepo()
		rxRepo = repository.NewMemoryPrescriptionsRepo()
		admissionsRepo = repository.NewMemoryAdmissionsRepo()
		wardsRepo = repository.NewMemoryWardsRepo()
		patientsRepo = repository.NewMemoryPatientsRepo()
		dischargesRepo = repository.NewMemoryDischargesRepo()
		auditRepo = repository.NewMemoryAuditRepo()
	}

	// Prescriptions come from the pharmacy feed when it is enabled, from our
	// own DB otherwise.
	var prescriptions service.PrescriptionSource = rxRepo
	if cfg.Pharmacy.Enabled {
		prescriptions = service.NewPharmacyClient(
			cfg.Pharmacy.HTTPAddress,
			cfg.Pharmacy.AppID,
			cfg.Pharmacy.SecretKey,
			kv,
			time.Duration(cfg.Pharmacy.CacheTTL)*time.Second,
			log,
		)
		log.Info("Pharmacy feed enabled", zap.String("address", cfg.Pharmacy.HTTPAddress))
	}

	gate := service.NewPermissionGate()
	audit := service.NewAuditRecorder(auditRepo, redisClient, cfg.Audit.Stream, cfg.Audit.StreamEnabled, log)

	shiftService := service.NewShiftService(shiftsRepo, gate, audit, log)
	taskService := service.NewTaskService(tasksRepo, shiftsRepo, patientsRepo, prescriptions, gate, audit, log)
	admissionService := service.NewAdmissionService(admissionsRepo, wardsRepo, patientsRepo, dischargesRepo, gate, audit, log)

	router := httpapi.NewRouter(log)
	router.RegisterOpsRoutes(
		httpapi.NewShiftHandler(shiftService, log),
		httpapi.NewTaskHandler(taskService, log),
		httpapi.NewAdmissionHandler(admissionService, log),
	)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}
