// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joho/godotenv"

	"github.com/gurkanbulca/storeflow/internal/config"
	"github.com/gurkanbulca/storeflow/internal/database"
	"github.com/gurkanbulca/storeflow/internal/dispatch"
	"github.com/gurkanbulca/storeflow/internal/middleware"
	"github.com/gurkanbulca/storeflow/internal/repository"
	"github.com/gurkanbulca/storeflow/internal/service"
	"github.com/gurkanbulca/storeflow/internal/settings"
	"github.com/gurkanbulca/storeflow/pkg/auth"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	location, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid store timezone: %v", err)
	}

	log.Printf("Connecting to %s...", cfg.Database.Driver)
	db, err := database.Open(database.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Debug:           cfg.IsDevelopment(),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}()

	if cfg.Server.AutoMigrate {
		if err := runAutoMigration(context.Background(), db); err != nil {
			log.Fatalf("Failed to run auto migration: %v", err)
		}
	}

	tokenManager := auth.NewTokenManager(cfg.JWT.AccessSecret, cfg.JWT.AccessTokenDuration, cfg.JWT.Issuer)

	actorRepo := repository.NewActorRepository(db)
	flags := settings.NewFlags(
		repository.NewParameterRepository(db),
		cfg.Dispatch.ParameterCacheTTL,
		map[string]bool{settings.AutoTaskAssignment: cfg.Dispatch.AutoTaskAssignment},
	)

	engine := dispatch.New(
		repository.NewTaskRepository(db),
		actorRepo,
		repository.NewTaskTypeRepository(db),
		flags,
		dispatch.WithLocation(location),
		dispatch.WithPageSizes(cfg.Dispatch.DefaultPageSize, cfg.Dispatch.MaxPageSize),
		dispatch.WithLimits(cfg.Validation),
	)
	securityLogger := middleware.NewSecurityLogger(repository.NewSecurityEventRepository(db))
	taskService := service.NewTaskService(engine, securityLogger)

	metadataExtractor := middleware.NewMetadataExtractorInterceptor()
	authInterceptor := middleware.NewAuthInterceptor(tokenManager, actorRepo, securityLogger)
	validationInterceptor := middleware.NewValidationInterceptor(cfg.Validation, cfg.Dispatch.MaxPageSize)
	if cfg.Server.EnableReflection {
		authInterceptor.AllowMethod("/grpc.reflection.v1.ServerReflection/ServerReflectionInfo")
		authInterceptor.AllowMethod("/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo")
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			metadataExtractor.Unary(),
			validationInterceptor.Unary(),
			authInterceptor.Unary(),
			loggingInterceptor,
		),
		grpc.ChainStreamInterceptor(
			metadataExtractor.Stream(),
			authInterceptor.Stream(),
		),
	)

	service.RegisterTaskServiceServer(grpcServer, taskService)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(service.TaskServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	if cfg.Server.EnableReflection {
		reflection.Register(grpcServer)
		log.Println("gRPC reflection enabled (disable in production)")
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Server.GRPCPort))
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}

	go func() {
		log.Printf("StoreFlow gRPC server listening on port %s (store timezone %s)", cfg.Server.GRPCPort, location)
		if err := grpcServer.Serve(listener); err != nil {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	healthServer.Shutdown()
	grpcServer.GracefulStop()
	log.Println("Server shutdown complete")
}

func runAutoMigration(ctx context.Context, db *database.DB) error {
	log.Println("Running auto migration...")
	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("run auto migration: %w", err)
	}
	log.Println("Auto migration completed")
	return nil
}

// loggingInterceptor logs incoming requests
func loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	clientInfo := middleware.GetClientInfoFromContext(ctx)
	resp, err := handler(ctx, req)
	duration := time.Since(start)
	logLevel := "INFO"
	if err != nil {
		logLevel = "ERROR"
	}
	log.Printf("[%s] %s completed in %v (actor: %s, role: %s, ip: %s)",
		logLevel, info.FullMethod, duration, clientInfo.ActorID, clientInfo.ActorRole, clientInfo.IPAddress)
	if err != nil {
		log.Printf("[ERROR] %s error: %v", info.FullMethod, err)
	}
	return resp, err
}
