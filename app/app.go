package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"

	adapterhttp "github.com/Patricklolilol/ffmpeg-service/ddd/adapter/http"
	app "github.com/Patricklolilol/ffmpeg-service/ddd/application/app"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/gateway"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/port"
	"github.com/Patricklolilol/ffmpeg-service/ddd/domain/service"
	"github.com/Patricklolilol/ffmpeg-service/ddd/infrastructure/event"
	"github.com/Patricklolilol/ffmpeg-service/ddd/infrastructure/persistence"
	"github.com/Patricklolilol/ffmpeg-service/ddd/infrastructure/queue"
	"github.com/Patricklolilol/ffmpeg-service/ddd/infrastructure/stage"
	"github.com/Patricklolilol/ffmpeg-service/ddd/infrastructure/storage"
	"github.com/Patricklolilol/ffmpeg-service/ddd/infrastructure/worker"
	"github.com/Patricklolilol/ffmpeg-service/internal/resource"
	"github.com/Patricklolilol/ffmpeg-service/pkg/config"
	"github.com/Patricklolilol/ffmpeg-service/pkg/logger"
	"github.com/Patricklolilol/ffmpeg-service/pkg/manager"
	"github.com/Patricklolilol/ffmpeg-service/pkg/observability"
	"github.com/Patricklolilol/ffmpeg-service/pkg/registry"
	"github.com/Patricklolilol/ffmpeg-service/pkg/task"
)

// Run starts the API server. When worker mode is enabled the same process
// also drains the job queue with its own worker pool.
func Run() {
	fmt.Println("[STARTUP] Starting ffmpeg service...")

	cfg, logService := bootstrap()
	defer logService.Close()

	checkExternalTools(cfg)

	logger.Infof("Initializing resource manager...")
	manager.MustInitResources()
	defer manager.CloseResources()
	logger.Infof("Resource manager initialized")

	wiring := assemble(cfg)
	defer wiring.Close()

	if cfg.Worker.Enabled {
		registerWorkerTasks(cfg, wiring)
	}

	taskCtx, taskCancel := context.WithCancel(context.Background())
	defer taskCancel()
	if err := task.StartAll(taskCtx); err != nil {
		logger.Fatalf("Failed to start background tasks error=%v", err)
	}

	if cfg.Profiling.Enabled {
		observability.StartProfilingAt("ffmpeg-service", cfg.Profiling.ServerAddress)
	}

	// HTTP surface.
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	engine := gin.New()
	router := adapterhttp.NewRouter(wiring.mediaApp, cfg.Auth)
	router.SetupMiddleware(engine)
	router.SetupRoutes(engine)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start HTTP server error=%v", err)
		}
	}()
	logger.Infof("HTTP server started addr=%s service=%s", addr, "ffmpeg-service")

	// Optional etcd registration for API-node discovery.
	var serviceRegistry *registry.ServiceRegistry
	if cfg.ServiceRegistry.Enabled {
		registerAddr := fmt.Sprintf("%s:%d", cfg.ServiceRegistry.RegisterHost, cfg.Server.Port)
		sr, err := registry.NewServiceRegistry(cfg.ServiceRegistry, registerAddr)
		if err != nil {
			logger.Fatalf("Failed to create service registry error=%v", err)
		}
		if err := sr.Register(); err != nil {
			logger.Fatalf("Failed to register service error=%v", err)
		}
		serviceRegistry = sr
	}

	waitForShutdown()

	logger.Infof("Received shutdown signal, shutting down...")

	if serviceRegistry != nil {
		if err := serviceRegistry.Deregister(); err != nil {
			logger.Warnf("Service deregistration failed error=%v", err)
		}
	}

	task.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to close error=%v", err)
	}

	logger.Infof("Server exited safely")
	fmt.Println("[SHUTDOWN] Ffmpeg service exited safely")
}

// RunWorker starts a worker-only process that drains the shared queue
// without exposing the HTTP surface.
func RunWorker() {
	fmt.Println("[STARTUP] Starting ffmpeg worker...")

	cfg, logService := bootstrap()
	defer logService.Close()

	checkExternalTools(cfg)

	logger.Infof("Initializing resource manager...")
	manager.MustInitResources()
	defer manager.CloseResources()

	wiring := assemble(cfg)
	defer wiring.Close()

	registerWorkerTasks(cfg, wiring)

	taskCtx, taskCancel := context.WithCancel(context.Background())
	defer taskCancel()
	if err := task.StartAll(taskCtx); err != nil {
		logger.Fatalf("Failed to start background tasks error=%v", err)
	}

	if cfg.Profiling.Enabled {
		observability.StartProfilingAt("ffmpeg-service-worker", cfg.Profiling.ServerAddress)
	}

	logger.Infof("Worker running worker_id=%s count=%d backend=%s", cfg.Worker.WorkerID, cfg.Worker.Count, cfg.Worker.QueueBackend)

	waitForShutdown()

	logger.Infof("Received shutdown signal, stopping worker...")
	task.StopAll()
	fmt.Println("[SHUTDOWN] Ffmpeg worker exited safely")
}

// wiring holds the assembled object graph shared by API and worker modes.
type wiring struct {
	mediaApp app.MediaApp
	jobQueue queue.JobQueue
	executor service.PipelineExecutor
	redisQ   *queue.RedisJobQueue
}

func (w *wiring) Close() {
	if w.jobQueue != nil {
		_ = w.jobQueue.Close()
	}
}

func assemble(cfg *config.Config) *wiring {
	jobs := persistence.NewRedisJobRepository(resource.DefaultRedisResource().Wrapped(), cfg.Jobs)

	var jobQueue queue.JobQueue
	var redisQ *queue.RedisJobQueue
	if cfg.Worker.QueueBackend == "memory" {
		jobQueue = queue.NewMemoryJobQueue(cfg.Worker.QueueCapacity)
	} else {
		redisQ = queue.NewRedisJobQueue(resource.DefaultRedisResource().Wrapped(), cfg.Worker.LeaseDuration, cfg.Worker.QueueCapacity)
		jobQueue = redisQ
	}

	var store gateway.StorageGateway
	if cfg.Minio.Enabled {
		store = storage.NewMinioStorage(resource.DefaultMinioResource())
	}

	var reporter gateway.JobEventReporter
	if cfg.Kafka.Enabled {
		reporter = event.NewKafkaJobReporter(resource.DefaultKafkaResource().Client(), cfg.Kafka.Topics.JobEvents)
	}

	executor := service.NewPipelineExecutor(jobs, buildStages(cfg, store), reporter, service.ExecutorOptions{
		OutputRoot: cfg.Pipeline.OutputDir,
	})

	return &wiring{
		mediaApp: app.NewMediaApp(jobs, jobQueue, cfg.Pipeline.OutputDir, cfg.Public),
		jobQueue: jobQueue,
		executor: executor,
		redisQ:   redisQ,
	}
}

// buildStages assembles the ordered pipeline.
func buildStages(cfg *config.Config, store gateway.StorageGateway) []port.Stage {
	runner := stage.NewExecRunner()
	stages := []port.Stage{
		stage.NewFetchStage(cfg.Pipeline, runner),
		stage.NewProbeStage(cfg.Pipeline, runner),
		stage.NewConvertStage(cfg.Pipeline, runner),
		stage.NewClipStage(cfg.Pipeline, runner),
		stage.NewThumbnailStage(cfg.Pipeline, runner),
	}
	if cfg.Pipeline.TranscribeEnable {
		stages = append(stages,
			stage.NewTranscribeStage(cfg.Pipeline, runner),
			stage.NewCaptionStage(cfg.Pipeline, runner),
		)
	}
	stages = append(stages, stage.NewPublishStage(store))
	return stages
}

func registerWorkerTasks(cfg *config.Config, w *wiring) {
	renewInterval := cfg.Worker.LeaseRenewInterval
	if cfg.Worker.QueueBackend == "memory" {
		renewInterval = 0
	}

	dispatcher := worker.NewDispatcher(worker.Options{
		WorkerID:           workerID(cfg),
		Count:              cfg.Worker.Count,
		LeaseRenewInterval: renewInterval,
	}, w.jobQueue, w.executor)
	task.Register(dispatcher)

	if w.redisQ != nil {
		task.Register(queue.NewReclaimTask(w.redisQ, cfg.Worker.ReclaimInterval))
	}
}

func workerID(cfg *config.Config) string {
	if cfg.Worker.WorkerID != "" {
		return cfg.Worker.WorkerID
	}
	host, err := os.Hostname()
	if err != nil {
		return "worker"
	}
	return host
}

// bootstrap loads configuration and installs the global logger.
func bootstrap() (*config.Config, *logger.Logger) {
	fmt.Println("[STARTUP] Loading config file...")
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	config.SetGlobalConfig(cfg)
	fmt.Printf("[STARTUP] Config file loaded: %s\n", cfgPath)

	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	logger.Debug("Logger initialized", map[string]interface{}{
		"level":  cfg.Log.Level,
		"format": cfg.Log.Format,
		"output": cfg.Log.Output,
	})

	return cfg, logService
}

// checkExternalTools fails fast when a required pipeline binary is missing.
func checkExternalTools(cfg *config.Config) {
	required := []string{cfg.Pipeline.YtdlpPath, cfg.Pipeline.FFmpegPath, cfg.Pipeline.FFprobePath}
	for _, bin := range required {
		if _, err := exec.LookPath(bin); err != nil {
			logger.Fatalf("Required tool not found binary=%s error=%v", bin, err)
		}
	}
	if cfg.Pipeline.TranscribeEnable {
		if _, err := exec.LookPath(cfg.Pipeline.WhisperPath); err != nil {
			logger.Warnf("Transcription enabled but whisper binary not found binary=%s error=%v", cfg.Pipeline.WhisperPath, err)
		}
	}
}

func waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

// resolveConfigPath picks the config file; CONFIG_PATH overrides, CONFIG_ENV
// selects between environments.
func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := strings.ToLower(strings.TrimSpace(os.Getenv("CONFIG_ENV")))
	if env == "" {
		env = "dev"
	}

	switch env {
	case "prod", "production":
		return "configs/config.prod.yaml"
	case "dev", "development":
		return "configs/config.dev.yaml"
	default:
		return fmt.Sprintf("configs/config.%s.yaml", env)
	}
}
