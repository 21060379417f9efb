package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/societyhub/internal/api"
	"github.com/MarkoPoloResearchLab/societyhub/internal/auth"
	"github.com/MarkoPoloResearchLab/societyhub/internal/storage"
)

const (
	commandUseName               = "server"
	commandShortDescription      = "Run the society website API"
	commandLongDescription       = "Launch the HTTP API behind the society website: contact inbox, events, blog and gallery"
	hashPasswordCommandUse       = "hash-password <password>"
	hashPasswordShortDescription = "Print a bcrypt hash for the admin password setting"
	missingConfigurationMessage  = "missing required configuration"
	invalidConfigurationMessage  = "invalid configuration"
	loggerCreationErrorMessage   = "logger"
	logEventListening            = "listening"
	logEventShuttingDown         = "shutting_down"
	logFieldAddress              = "addr"
	loggerContextOpenDatabase    = "open_db"
	loggerContextAutoMigrate     = "migrate"
	loggerContextServer          = "server"
	unexpectedArgumentsMessage   = "unexpected command arguments"
	commandInitializationFailure = "failed to configure command"
	flagNotDefinedMessage        = "flag %s not defined"
	environmentConfigurationErr  = "failed to apply environment configuration"
	environmentDevelopment       = "development"
	environmentProduction        = "production"
	readHeaderTimeout            = 5 * time.Second
	shutdownTimeout              = 10 * time.Second
)

const (
	flagNameApplicationAddress  = "app-addr"
	flagNameDatabaseDriver      = "db-driver"
	flagNameDatabaseDSN         = "db-dsn"
	flagNameJWTSecret           = "jwt-secret"
	flagNameJWTTTL              = "jwt-ttl"
	flagNameAdminUsername       = "admin-username"
	flagNameAdminPasswordHash   = "admin-password-hash"
	flagNameEnvironment         = "environment"
	flagNameCORSOrigins         = "cors-origins"
	flagNameSMTPHost            = "smtp-host"
	flagNameSMTPPort            = "smtp-port"
	flagNameSMTPUsername        = "smtp-username"
	flagNameSMTPPassword        = "smtp-password"
	flagNameNotificationFrom    = "notification-from"
	flagNameNotificationTo      = "notification-to"
	flagNameNotificationTimeout = "notification-timeout"
	flagNameContactRateLimit    = "contact-rate-limit"
	flagNameContactRateWindow   = "contact-rate-window"
)

type configurationFlag struct {
	name           string
	environmentKey string
	defaultValue   string
	usage          string
}

var configurationFlags = []configurationFlag{
	{name: flagNameApplicationAddress, environmentKey: "APP_ADDR", defaultValue: ":8080", usage: "address for the HTTP server to listen on"},
	{name: flagNameDatabaseDriver, environmentKey: "DB_DRIVER", defaultValue: storage.DriverNamePostgres, usage: "database driver (postgres or sqlite)"},
	{name: flagNameDatabaseDSN, environmentKey: "DB_DSN", usage: "database connection string"},
	{name: flagNameJWTSecret, environmentKey: "JWT_SECRET", usage: "secret used to sign admin tokens"},
	{name: flagNameJWTTTL, environmentKey: "JWT_TTL", defaultValue: "24h", usage: "lifetime of issued admin tokens"},
	{name: flagNameAdminUsername, environmentKey: "ADMIN_USERNAME", defaultValue: "admin", usage: "admin login username"},
	{name: flagNameAdminPasswordHash, environmentKey: "ADMIN_PASSWORD_HASH", usage: "bcrypt hash of the admin password; login is disabled when empty"},
	{name: flagNameEnvironment, environmentKey: "APP_ENV", defaultValue: environmentProduction, usage: "runtime environment (development or production)"},
	{name: flagNameCORSOrigins, environmentKey: "CORS_ORIGINS", defaultValue: "*", usage: "allowed CORS origins, comma separated"},
	{name: flagNameSMTPHost, environmentKey: "SMTP_HOST", usage: "SMTP relay host; notifications are disabled when empty"},
	{name: flagNameSMTPPort, environmentKey: "SMTP_PORT", defaultValue: "587", usage: "SMTP relay port"},
	{name: flagNameSMTPUsername, environmentKey: "SMTP_USERNAME", usage: "SMTP username"},
	{name: flagNameSMTPPassword, environmentKey: "SMTP_PASSWORD", usage: "SMTP password"},
	{name: flagNameNotificationFrom, environmentKey: "NOTIFICATION_FROM", usage: "sender address for staff notifications"},
	{name: flagNameNotificationTo, environmentKey: "NOTIFICATION_TO", usage: "staff address that receives contact notifications"},
	{name: flagNameNotificationTimeout, environmentKey: "NOTIFICATION_TIMEOUT", defaultValue: "10s", usage: "upper bound on one notification attempt"},
	{name: flagNameContactRateLimit, environmentKey: "CONTACT_RATE_LIMIT", defaultValue: "3", usage: "contact submissions allowed per address per window"},
	{name: flagNameContactRateWindow, environmentKey: "CONTACT_RATE_WINDOW", defaultValue: "1h", usage: "contact rate limit window"},
}

// ServerConfig captures configuration needed to run the server.
type ServerConfig struct {
	ApplicationAddress  string
	DatabaseDriver      string
	DatabaseDSN         string
	JWTSecret           string
	JWTTTL              time.Duration
	AdminUsername       string
	AdminPasswordHash   string
	Environment         string
	CORSOrigins         []string
	SMTPHost            string
	SMTPPort            int
	SMTPUsername        string
	SMTPPassword        string
	NotificationFrom    string
	NotificationTo      string
	NotificationTimeout time.Duration
	ContactRateLimit    int
	ContactRateWindow   time.Duration
}

// Development reports whether the server runs with development diagnostics.
func (configuration ServerConfig) Development() bool {
	return configuration.Environment == environmentDevelopment
}

// DatabaseOpener opens a database connection using the provided configuration.
type DatabaseOpener func(storage.Config) (*gorm.DB, error)

// ServerApplication constructs and executes the server command.
type ServerApplication struct {
	configurationLoader *viper.Viper
	databaseOpener      DatabaseOpener
}

// NewServerApplication creates a ServerApplication with default dependencies.
func NewServerApplication() *ServerApplication {
	return &ServerApplication{
		configurationLoader: viper.New(),
		databaseOpener:      storage.OpenDatabase,
	}
}

// WithDatabaseOpener overrides the database opener dependency.
func (application *ServerApplication) WithDatabaseOpener(databaseOpener DatabaseOpener) *ServerApplication {
	application.databaseOpener = databaseOpener
	return application
}

// Command builds the Cobra command for the server.
func (application *ServerApplication) Command() (*cobra.Command, error) {
	rootCommand := &cobra.Command{
		Use:   commandUseName,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		RunE:  application.runCommand,
	}

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}
	rootCommand.AddCommand(newHashPasswordCommand())

	return rootCommand, nil
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   hashPasswordCommandUse,
		Short: hashPasswordShortDescription,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			hash, hashErr := auth.HashPassword(arguments[0])
			if hashErr != nil {
				return hashErr
			}
			_, writeErr := fmt.Fprintln(command.OutOrStdout(), hash)
			return writeErr
		},
	}
}

func (application *ServerApplication) configureCommand(command *cobra.Command) error {
	application.configurationLoader.AutomaticEnv()

	commandFlags := command.Flags()
	for _, flagDefinition := range configurationFlags {
		application.configurationLoader.SetDefault(flagDefinition.environmentKey, flagDefinition.defaultValue)
		commandFlags.String(flagDefinition.name, flagDefinition.defaultValue, flagDefinition.usage)
	}

	for _, flagDefinition := range configurationFlags {
		if bindErr := application.bindFlag(commandFlags, flagDefinition.environmentKey, flagDefinition.name); bindErr != nil {
			return bindErr
		}
		if environmentErr := application.applyEnvironmentConfiguration(commandFlags, flagDefinition.environmentKey, flagDefinition.name); environmentErr != nil {
			return environmentErr
		}
	}

	return nil
}

func (application *ServerApplication) bindFlag(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}

	if bindErr := application.configurationLoader.BindPFlag(environmentKey, flag); bindErr != nil {
		return bindErr
	}

	return nil
}

func (application *ServerApplication) applyEnvironmentConfiguration(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	environmentValue, environmentFound := os.LookupEnv(environmentKey)
	if !environmentFound {
		return nil
	}

	if setErr := flagSet.Set(flagName, environmentValue); setErr != nil {
		return fmt.Errorf("%s: %w", environmentConfigurationErr, setErr)
	}

	return nil
}

func (application *ServerApplication) configurationValue(flagName string) string {
	for _, flagDefinition := range configurationFlags {
		if flagDefinition.name == flagName {
			return strings.TrimSpace(application.configurationLoader.GetString(flagDefinition.environmentKey))
		}
	}
	return ""
}

func (application *ServerApplication) loadServerConfig() (ServerConfig, error) {
	configuration := ServerConfig{
		ApplicationAddress: application.configurationValue(flagNameApplicationAddress),
		DatabaseDriver:     strings.ToLower(application.configurationValue(flagNameDatabaseDriver)),
		DatabaseDSN:        application.configurationValue(flagNameDatabaseDSN),
		JWTSecret:          application.configurationValue(flagNameJWTSecret),
		AdminUsername:      application.configurationValue(flagNameAdminUsername),
		AdminPasswordHash:  application.configurationValue(flagNameAdminPasswordHash),
		Environment:        strings.ToLower(application.configurationValue(flagNameEnvironment)),
		CORSOrigins:        api.ParseAllowedOrigins(application.configurationValue(flagNameCORSOrigins)),
		SMTPHost:           application.configurationValue(flagNameSMTPHost),
		SMTPUsername:       application.configurationValue(flagNameSMTPUsername),
		SMTPPassword:       application.configurationValue(flagNameSMTPPassword),
		NotificationFrom:   application.configurationValue(flagNameNotificationFrom),
		NotificationTo:     application.configurationValue(flagNameNotificationTo),
	}

	var invalidParameters []string
	parseDuration := func(flagName string, target *time.Duration) {
		parsed, parseErr := time.ParseDuration(application.configurationValue(flagName))
		if parseErr != nil || parsed <= 0 {
			invalidParameters = append(invalidParameters, flagName)
			return
		}
		*target = parsed
	}
	parseInteger := func(flagName string, target *int) {
		parsed, parseErr := strconv.Atoi(application.configurationValue(flagName))
		if parseErr != nil || parsed <= 0 {
			invalidParameters = append(invalidParameters, flagName)
			return
		}
		*target = parsed
	}
	parseDuration(flagNameJWTTTL, &configuration.JWTTTL)
	parseDuration(flagNameNotificationTimeout, &configuration.NotificationTimeout)
	parseDuration(flagNameContactRateWindow, &configuration.ContactRateWindow)
	parseInteger(flagNameSMTPPort, &configuration.SMTPPort)
	parseInteger(flagNameContactRateLimit, &configuration.ContactRateLimit)

	switch configuration.Environment {
	case environmentDevelopment, environmentProduction:
	default:
		invalidParameters = append(invalidParameters, flagNameEnvironment)
	}

	if len(invalidParameters) > 0 {
		return ServerConfig{}, fmt.Errorf("%s: %s", invalidConfigurationMessage, strings.Join(invalidParameters, ", "))
	}
	return configuration, nil
}

func (application *ServerApplication) runCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	serverConfig, loadErr := application.loadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	if validationErr := application.ensureRequiredConfiguration(serverConfig); validationErr != nil {
		return validationErr
	}
	command.SilenceUsage = true

	logger, loggerErr := newLogger(serverConfig)
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	database, databaseErr := application.databaseOpener(storage.Config{
		DriverName:     serverConfig.DatabaseDriver,
		DataSourceName: serverConfig.DatabaseDSN,
	})
	if databaseErr != nil {
		logger.Error(loggerContextOpenDatabase, zap.Error(databaseErr))
		return databaseErr
	}

	if migrateErr := storage.AutoMigrate(database); migrateErr != nil {
		logger.Error(loggerContextAutoMigrate, zap.Error(migrateErr))
		return migrateErr
	}

	if !serverConfig.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	dependencies, buildErr := buildRouterDependencies(serverConfig, logger, database, time.Now)
	if buildErr != nil {
		return buildErr
	}

	httpServer := &http.Server{
		Addr:              serverConfig.ApplicationAddress,
		Handler:           buildRouter(dependencies),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	signalContext, stop := signal.NotifyContext(commandContext(command), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErrors := make(chan error, 1)
	go func() {
		logger.Info(logEventListening, zap.String(logFieldAddress, serverConfig.ApplicationAddress))
		serveErrors <- httpServer.ListenAndServe()
	}()

	select {
	case serveErr := <-serveErrors:
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error(loggerContextServer, zap.Error(serveErr))
			return serveErr
		}
		return nil
	case <-signalContext.Done():
	}

	logger.Info(logEventShuttingDown)
	shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownContext)
}

func commandContext(command *cobra.Command) context.Context {
	if command.Context() != nil {
		return command.Context()
	}
	return context.Background()
}

func newLogger(configuration ServerConfig) (*zap.Logger, error) {
	if configuration.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func (application *ServerApplication) ensureRequiredConfiguration(configuration ServerConfig) error {
	var missingParameters []string

	if configuration.DatabaseDSN == "" {
		missingParameters = append(missingParameters, flagNameDatabaseDSN)
	}

	if configuration.JWTSecret == "" {
		missingParameters = append(missingParameters, flagNameJWTSecret)
	}

	if len(missingParameters) == 0 {
		return nil
	}

	return fmt.Errorf("%s: %s", missingConfigurationMessage, strings.Join(missingParameters, ", "))
}

func main() {
	_ = godotenv.Load()

	application := NewServerApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.Execute(); executeErr != nil {
		os.Exit(1)
	}
}
