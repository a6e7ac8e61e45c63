package cmd

import (
	"context"
	"database/sql"
	"net"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pricewatch-io/pricewatch/app/controller"
	"github.com/pricewatch-io/pricewatch/app/mail"
	appmiddleware "github.com/pricewatch-io/pricewatch/app/middleware"
	"github.com/pricewatch-io/pricewatch/app/repository"
	"github.com/pricewatch-io/pricewatch/app/service"
	"github.com/pricewatch-io/pricewatch/app/session"
	"github.com/pricewatch-io/pricewatch/app/token"
	"github.com/pricewatch-io/pricewatch/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the HTTP server backing the price-tracking web application.`,
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
	configureLogging(cfg)

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	sessions, err := session.NewRedisStore(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to redis")
	}
	defer sessions.Close()

	userRepo := repository.NewUserRepository(db)
	storeRepo := repository.NewStoreRepository(db)
	productRepo := repository.NewProductRepository(db)
	priceRepo := repository.NewPriceHistoryRepository(db)

	tokens := token.NewGenerator([]byte(cfg.SecretKey), cfg.ConfirmTimeoutDays)
	sender := mail.NewSMTPSender(cfg)

	accountService := service.NewAccountService(userRepo, cfg)
	confirmationService := service.NewConfirmationService(userRepo, sessions, tokens, sender, cfg)
	catalogService := service.NewCatalogService(storeRepo, productRepo, priceRepo)

	startHTTPServer(cfg, accountService, confirmationService, catalogService)
}

func startHTTPServer(
	cfg *config.Config,
	accountService *service.AccountService,
	confirmationService *service.ConfirmationService,
	catalogService *service.CatalogService,
) {
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

	accountController := controller.NewAccountController(accountService, confirmationService)
	confirmController := controller.NewConfirmController(confirmationService)
	catalogController := controller.NewCatalogController(catalogService)
	authMiddleware := appmiddleware.NewAuthMiddleware(accountService)

	accounts := e.Group("/accounts", appmiddleware.Session)
	accounts.POST("/register", accountController.Register)
	accounts.POST("/login", accountController.Login)
	accounts.POST("/resend_activation", accountController.ResendActivation)
	accounts.POST("/password_reset", accountController.RequestPasswordReset)
	accounts.GET("/register_confirm/:uid/:token", confirmController.RegisterConfirm)
	accounts.GET("/email_change_confirm/:uid/:token/:email", confirmController.EmailChangeConfirm)
	accounts.GET("/password_reset_confirm/:uid/:token", confirmController.PasswordResetConfirm)
	accounts.POST("/password_reset_confirm/:uid/:token", confirmController.PasswordResetComplete)

	accountsProtected := accounts.Group("")
	accountsProtected.Use(authMiddleware.RequireAuth)
	accountsProtected.POST("/email_change", accountController.RequestEmailChange)
	accountsProtected.POST("/password_change", accountController.ChangePassword)
	accountsProtected.GET("/profile", accountController.GetProfile)
	accountsProtected.PUT("/profile", accountController.UpdateProfile)

	e.GET("/stores", catalogController.ListStores)
	e.GET("/stores/:id/products", catalogController.GetStoreProducts)
	e.GET("/products/:id", catalogController.GetProductHistory)
	e.POST("/products/:id/prices", catalogController.RecordPrice, authMiddleware.RequireAuth)

	httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}

func configureLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
