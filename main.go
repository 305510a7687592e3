package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/openshelf/elibrary/backend/config"
	"github.com/openshelf/elibrary/backend/handlers"
	"github.com/openshelf/elibrary/backend/middleware"
	"github.com/openshelf/elibrary/backend/service"
	"github.com/openshelf/elibrary/backend/store"
)

func main() {
	_ = godotenv.Load()
	config.ValidateEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}

	ctx := context.Background()
	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatal("mongodb:", err)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			log.Println("mongodb disconnect:", err)
		}
	}()
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Println("warning: ensure indexes:", err)
	}

	var s3Service *service.S3Service
	if cfg.S3Bucket != "" {
		s3Service, err = service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			log.Fatal("s3:", err)
		}
	} else {
		log.Println("warning: AWS_S3_BUCKET not set; uploads will fail")
	}

	authHandler := &handlers.AuthHandler{DB: db, JWTSecret: cfg.JWTSecret}
	booksHandler := &handlers.BooksHandler{DB: db, S3: s3Service}
	categoriesHandler := &handlers.CategoriesHandler{DB: db}
	usersHandler := &handlers.UsersHandler{DB: db}
	uploadHandler := &handlers.UploadHandler{
		S3:       s3Service,
		MaxBytes: cfg.MaxUploadMB * 1024 * 1024,
	}
	adminHandler := &handlers.AdminHandler{DB: db}

	r := chi.NewRouter()
	r.Use(middleware.AllowAll())
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	// Every storage call runs under the request context, so this bounds
	// all document-store operations.
	r.Use(chimw.Timeout(15 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		r.Get("/books", booksHandler.List)
		r.Get("/books/{id}", booksHandler.Get)
		r.Get("/books/{id}/related", booksHandler.Related)
		r.Get("/categories", categoriesHandler.List)
		r.Get("/categories/{id}", categoriesHandler.Get)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Get("/auth/me", authHandler.Me)
			r.Put("/auth/profile", authHandler.UpdateProfile)
			r.Post("/books/{id}/reviews", booksHandler.AddReview)
			r.Get("/books/{id}/download", booksHandler.Download)
			r.Post("/users/favorites/{bookId}", usersHandler.AddFavorite)
			r.Delete("/users/favorites/{bookId}", usersHandler.RemoveFavorite)
			r.Put("/users/reading-history/{bookId}", usersHandler.UpdateReadingProgress)

			// Admin routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Post("/books", booksHandler.Create)
				r.Put("/books/{id}", booksHandler.Update)
				r.Delete("/books/{id}", booksHandler.Delete)
				r.Post("/categories", categoriesHandler.Create)
				r.Put("/categories/{id}", categoriesHandler.Update)
				r.Delete("/categories/{id}", categoriesHandler.Delete)
				r.Get("/users", usersHandler.List)
				r.Get("/users/{id}", usersHandler.Get)
				r.Put("/users/{id}", usersHandler.Update)
				r.Delete("/users/{id}", usersHandler.Delete)
				r.Post("/upload", uploadHandler.Upload)
				r.Post("/admin/reconcile", adminHandler.Reconcile)
			})
		})
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Println("server listening on :" + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("shutdown:", err)
	}
}
