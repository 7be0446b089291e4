package cmd

import (
	"context"
	"database/sql"
	"net"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/loop-hq/loop-api/app/controller"
	"github.com/loop-hq/loop-api/app/middleware"
	"github.com/loop-hq/loop-api/app/repository"
	"github.com/loop-hq/loop-api/app/service"
	"github.com/loop-hq/loop-api/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	userRepo := repository.NewUserRepository(db)
	verificationRepo := repository.NewVerificationTokenRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	mailer := service.NewMailer(cfg)

	authService := service.NewAuthService(db, userRepo, verificationRepo, refreshTokenRepo, mailer, cfg)
	userService := service.NewUserService(db, userRepo, verificationRepo, refreshTokenRepo)

	go sweepExpiredTokens(cfg, verificationRepo, refreshTokenRepo)

	startHTTPServer(cfg, authService, userService)
}

func startHTTPServer(cfg *config.Config, authService service.AuthService, userService service.UserService) {
	e := echo.New()
	defer e.Close()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	authController := controller.NewAuthController(authService)
	userController := controller.NewUserController(userService)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	auth := e.Group("/auth")
	auth.GET("/check-email", authController.CheckEmail)
	auth.POST("/signup", authController.Signup)
	auth.GET("/verify", authController.VerifyEmail)
	auth.POST("/login", authController.Login)
	auth.POST("/refresh", authController.RefreshToken)
	auth.POST("/logout", authController.Logout)

	users := e.Group("/users", authMiddleware.RequireAuth)
	users.GET("/:id", userController.GetUserByID)
	users.PUT("/:id", userController.UpdateUserProfile)
	users.DELETE("/:id", userController.DeleteUser)

	httpAddr := net.JoinHostPort("", cfg.HTTPPort)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}

// sweepExpiredTokens periodically removes expired verification and refresh
// tokens for the lifetime of the process.
func sweepExpiredTokens(cfg *config.Config, verificationRepo *repository.VerificationTokenRepository, refreshTokenRepo *repository.RefreshTokenRepository) {
	ticker := time.NewTicker(cfg.TokenSweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		now := time.Now()

		if deleted, err := verificationRepo.DeleteExpired(ctx, now); err != nil {
			logrus.WithError(err).Error("Failed to sweep expired verification tokens")
		} else if deleted > 0 {
			logrus.WithField("deleted", deleted).Info("Swept expired verification tokens")
		}

		if deleted, err := refreshTokenRepo.DeleteExpired(ctx, now); err != nil {
			logrus.WithError(err).Error("Failed to sweep expired refresh tokens")
		} else if deleted > 0 {
			logrus.WithField("deleted", deleted).Info("Swept expired refresh tokens")
		}

		cancel()
	}
}
