package container

import (
	"context"
	"log"

	episoderepositories "github.com/sesamyab/audiopipeline/modules/episode/domain/repositories"
	episodeinfra "github.com/sesamyab/audiopipeline/modules/episode/infrastructure/repositories"
	"github.com/sesamyab/audiopipeline/modules/processing/application/cleanup"
	"github.com/sesamyab/audiopipeline/modules/processing/application/commands"
	"github.com/sesamyab/audiopipeline/modules/processing/application/enhance"
	"github.com/sesamyab/audiopipeline/modules/processing/application/progress"
	"github.com/sesamyab/audiopipeline/modules/processing/application/runner"
	"github.com/sesamyab/audiopipeline/modules/processing/application/steps"
	processingrepositories "github.com/sesamyab/audiopipeline/modules/processing/domain/repositories"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/llm"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/objectstore"
	processinginfra "github.com/sesamyab/audiopipeline/modules/processing/infrastructure/repositories"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/stt"
	"github.com/sesamyab/audiopipeline/modules/processing/infrastructure/transcoder"
	processinghandlers "github.com/sesamyab/audiopipeline/modules/processing/interfaces/http/handlers"
	processingroutes "github.com/sesamyab/audiopipeline/modules/processing/interfaces/http/routes"
	taskrepositories "github.com/sesamyab/audiopipeline/seedwork/domain/repositories"
	"github.com/sesamyab/audiopipeline/seedwork/infrastructure/config"
	"github.com/sesamyab/audiopipeline/seedwork/infrastructure/events"
	"github.com/sesamyab/audiopipeline/seedwork/infrastructure/firebase"
	taskinfra "github.com/sesamyab/audiopipeline/seedwork/infrastructure/repositories"
)

// Container holds all application dependencies: the pipeline's clients,
// repositories, the Pipeline Driver, and the command handlers/HTTP surface
// that drive it.
type Container struct {
	Config *config.Config

	FirebaseClient *firebase.Client
	EventBus       events.EventBus

	TaskRepository    taskrepositories.TaskRepository
	EpisodeRepository episoderepositories.EpisodeRepository

	ObjectStore *objectstore.Client
	Driver      *steps.Driver
	Registry    *runner.Registry

	StartProcessingHandler  *commands.StartProcessingHandler
	CancelProcessingHandler *commands.CancelProcessingHandler
	ProcessingHandlers      *processinghandlers.ProcessingHandlers
	ProcessingRoutes        *processingroutes.ProcessingRoutes
}

// NewContainer loads configuration and wires every pipeline dependency:
// object store, transcoder, STT and (optional) LLM clients, the Task/
// Episode/step-log repositories for the configured backend, the Pipeline
// Driver, and the command handlers that drive it.
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	eventBus := events.NewMemoryEventBus()

	var firebaseClient *firebase.Client
	if cfg.Processing.RepositoryType == "firebase" {
		firebaseClient, err = firebase.NewClient(cfg)
		if err != nil {
			return nil, err
		}
	}

	taskRepo, episodeRepo, stepLogRepo, err := buildRepositories(cfg.Processing.RepositoryType, firebaseClient)
	if err != nil {
		return nil, err
	}

	objectStore, err := objectstore.NewClient(context.Background(), objectstore.Config{
		Bucket:          cfg.Processing.ObjectStore.Bucket,
		Endpoint:        cfg.Processing.ObjectStore.Endpoint,
		Region:          cfg.Processing.ObjectStore.Region,
		AccessKeyID:     cfg.Processing.ObjectStore.AccessKeyID,
		SecretAccessKey: cfg.Processing.ObjectStore.SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}

	transcoderClient := transcoder.NewClient(cfg.Processing.Transcoder.BaseURL)
	sttClient := stt.NewClient(cfg.Processing.STT.BaseURL, cfg.Processing.STT.APIKey)

	var enhancer *enhance.Enhancer
	if cfg.Processing.LLM.Provider != "" {
		llmClient, err := llm.NewClient(cfg.Processing.LLM.Provider, cfg.Processing.LLM.Model)
		if err != nil {
			log.Printf("container: LLM client unavailable, enhancement disabled: %v", err)
		} else {
			enhancer = enhance.NewEnhancer(llmClient)
		}
	}

	cleaner := cleanup.NewCleaner(objectStore)
	progressReporter := progress.NewReporter(taskRepo)
	registry := runner.NewRegistry()

	driver := steps.NewDriver(
		objectStore,
		transcoderClient,
		sttClient,
		enhancer,
		cleaner,
		progressReporter,
		episodeRepo,
		stepLogRepo,
		cfg.Processing.RetryBudget,
		cfg.Processing.ObjectStore.PublicEndpoint,
	)

	startHandler := commands.NewStartProcessingHandler(taskRepo, driver, registry, eventBus)
	cancelHandler := commands.NewCancelProcessingHandler(registry)
	httpHandlers := processinghandlers.NewProcessingHandlers(cancelHandler)
	httpRoutes := processingroutes.NewProcessingRoutes(httpHandlers)

	return &Container{
		Config:                  cfg,
		FirebaseClient:          firebaseClient,
		EventBus:                eventBus,
		TaskRepository:          taskRepo,
		EpisodeRepository:       episodeRepo,
		ObjectStore:             objectStore,
		Driver:                  driver,
		Registry:                registry,
		StartProcessingHandler:  startHandler,
		CancelProcessingHandler: cancelHandler,
		ProcessingHandlers:      httpHandlers,
		ProcessingRoutes:        httpRoutes,
	}, nil
}

// buildRepositories selects the Task/Episode/step-log repository backend
// (gorm, memory, or firebase), mirroring the teacher's UserRepositoryType
// switch.
func buildRepositories(repositoryType string, firebaseClient *firebase.Client) (
	taskrepositories.TaskRepository,
	episoderepositories.EpisodeRepository,
	processingrepositories.StepLogRepository,
	error,
) {
	switch repositoryType {
	case "firebase":
		taskRepo, err := taskinfra.NewFirebaseTaskRepository(firebaseClient)
		if err != nil {
			return nil, nil, nil, err
		}
		episodeRepo, err := episodeinfra.NewFirebaseEpisodeRepository(firebaseClient)
		if err != nil {
			return nil, nil, nil, err
		}
		// No Firestore-backed step log is wired: the Step Kernel's durable
		// output log is a GORM-only concern even on the Firebase repository
		// backing, since resumability is scoped to the Postgres deployment.
		return taskRepo, episodeRepo, processinginfra.NewGormStepLogRepository(), nil
	case "memory":
		return taskinfra.NewMemoryTaskRepository(), episodeinfra.NewMemoryEpisodeRepository(), processinginfra.NewMemoryStepLogRepository(), nil
	case "gorm", "":
		return taskinfra.NewGormTaskRepository(), episodeinfra.NewGormEpisodeRepository(), processinginfra.NewGormStepLogRepository(), nil
	default:
		return taskinfra.NewGormTaskRepository(), episodeinfra.NewGormEpisodeRepository(), processinginfra.NewGormStepLogRepository(), nil
	}
}

// GetConfig returns the configuration.
func (c *Container) GetConfig() *config.Config {
	return c.Config
}
