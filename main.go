package main

import (
	"log"
	"os"

	"atelier_back/authorization"
	"atelier_back/gallery"
	"atelier_back/generation"
	"atelier_back/persist"
	"atelier_back/settings"
	"atelier_back/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func mustLoadEnv() {
	_ = godotenv.Load()
}

func main() {
	mustLoadEnv()

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
	}))

	guard := authorization.NewGuardFromEnv()

	kv, err := persist.OpenFromEnv()
	if err != nil {
		log.Fatalf("open persistence: %v", err)
	}

	galleryModule, err := gallery.RegisterRoutes(r, guard, kv)
	if err != nil {
		log.Fatalf("register gallery routes: %v", err)
	}

	settingsModule, err := settings.RegisterRoutes(r, kv)
	if err != nil {
		log.Fatalf("register settings routes: %v", err)
	}

	if _, err := generation.RegisterRoutes(r, guard, galleryModule.Store(), settingsModule); err != nil {
		log.Fatalf("register generation routes: %v", err)
	}

	if _, err := storage.RegisterRoutes(r, guard); err != nil {
		log.Fatalf("register upload routes: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("start server: %v", err)
	}
}
