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
	"github.com/serranojoyas/backend/config"
	"github.com/serranojoyas/backend/handlers"
	"github.com/serranojoyas/backend/middleware"
	"github.com/serranojoyas/backend/service"
	"github.com/serranojoyas/backend/store"
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
	db.EncKey = cfg.CredentialEncryptionKey
	if err := db.EnsureAccountIndexes(ctx); err != nil {
		log.Fatal("indexes:", err)
	}
	if err := db.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		log.Fatal("admin bootstrap:", err)
	}

	var s3Service *service.S3Service
	if cfg.S3Bucket != "" {
		s3Service, err = service.NewS3Service(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3AccessKeyID, cfg.S3SecretKey)
		if err != nil {
			log.Fatal("s3:", err)
		}
	} else {
		log.Println("warning: AWS_S3_BUCKET not set; avatar uploads will fail")
	}

	tokens := service.NewTokenService(cfg.JWTSecret)
	mailer := service.NewMailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	secure := cfg.Production()

	auth := &handlers.AuthHandler{Store: db, Tokens: tokens, Secure: secure}
	signup := &handlers.SignupHandler{Store: db, Tokens: tokens, Mail: mailer, Secure: secure}
	recovery := &handlers.RecoveryHandler{Store: db, Tokens: tokens, Mail: mailer, Secure: secure}
	profile := &handlers.ProfileHandler{
		Store:    db,
		MaxBytes: cfg.MaxUploadMB * 1024 * 1024,
	}
	if s3Service != nil {
		profile.Avatars = s3Service
	}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"welcome to joyeria serrano."}`))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", auth.Login)
		r.Post("/logout", auth.Logout)
		r.Post("/signup", signup.Employee)
		r.Post("/signupCustomer", signup.Customer)
		r.Post("/signupCustomer/verifyCode", signup.VerifyCodeEmail)
		r.Route("/recoveryPassword", func(r chi.Router) {
			r.Post("/requestCode", recovery.RequestCode)
			r.Post("/verifyCode", recovery.VerifyCode)
			r.Post("/changePassword", recovery.ChangePassword)
		})
		// Any authenticated principal
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokens))
			r.Post("/validateAuthToken", auth.ValidateAuthToken)
			r.Post("/validatePassword", auth.ValidatePassword)
			r.Get("/profile", profile.Profile)
			r.Get("/profile/avatar", profile.Avatar)
			r.Post("/profile/avatar", profile.UploadAvatar)
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
