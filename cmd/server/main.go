package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/sesamyab/audiopipeline/seedwork/application/middleware"
	"github.com/sesamyab/audiopipeline/seedwork/infrastructure/container"
	"github.com/sesamyab/audiopipeline/seedwork/infrastructure/database"
)

func main() {
	cont, err := container.NewContainer()
	if err != nil {
		log.Fatalf("failed to initialize container: %v", err)
	}

	if cont.Config.Processing.RepositoryType == "gorm" || cont.Config.Processing.RepositoryType == "" {
		if err := database.Initialize(); err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
	}

	router := gin.Default()
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	api := router.Group("/api")
	cont.ProcessingRoutes.SetupRoutes(api)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	log.Printf("starting server on port %s", cont.Config.Server.Port)
	if err := router.Run(":" + cont.Config.Server.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
