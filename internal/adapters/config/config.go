package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	postgresStorage "github.com/meetingday/notifier/internal/adapters/database/postgres"
	"github.com/meetingday/notifier/internal/adapters/database/redis"
	"github.com/meetingday/notifier/internal/domain/common/errorz"
	"github.com/meetingday/notifier/internal/domain/entity"
	"github.com/meetingday/notifier/internal/domain/service"
	"github.com/meetingday/notifier/pkg/logger"
	"github.com/meetingday/notifier/pkg/mailer"
	"github.com/meetingday/notifier/pkg/push"
)

const (
	MailDriverSMTP   = "smtp"
	MailDriverResend = "resend"
)

type Config struct {
	Database *gorm.DB
	// Redis is nil when the sweep lock is disabled
	Redis *redis.Client

	Mail service.MailSender
	Push service.PushSender

	Notifications service.NotificationConfig
	Trigger       Trigger
	Alerts        Alerts
	MetricsListen string
}

type Trigger struct {
	Schedule string
	LockTTL  time.Duration
	DryRun   bool
}

type Alerts struct {
	URLs    []string
	Level   zapcore.Level
	Timeout time.Duration
}

func setDefaults() {
	viper.SetDefault("settings.timezone", "UTC")
	viper.SetDefault("settings.alerts.level", "error")
	viper.SetDefault("settings.alerts.timeout", "10s")

	viper.SetDefault("service.database.port", 5432)
	viper.SetDefault("service.database.sslmode", "disable")
	viper.SetDefault("service.database.auto-migrate", true)
	viper.SetDefault("service.redis.port", "6379")
	viper.SetDefault("service.smtp.port", 587)
	viper.SetDefault("service.brand", mailer.DefaultBrand)

	viper.SetDefault("notifications.schedule", "@every 1m")
	viper.SetDefault("notifications.lock-ttl", "10m")
	viper.SetDefault("notifications.mail-driver", MailDriverSMTP)

	viper.SetDefault("metrics.listen", ":9090")
}

func initConfig(path string) error {
	setDefaults()
	viper.SetEnvPrefix("NOTIFIER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func initLogger() error {
	location, err := time.LoadLocation(viper.GetString("settings.timezone"))
	if err != nil {
		return fmt.Errorf("invalid settings.timezone: %w", err)
	}
	return logger.Init(logger.Config{
		Debug:        viper.GetBool("settings.debug"),
		TimeLocation: location,
		LogToFile:    viper.GetBool("settings.log-to-file"),
		LogsDir:      viper.GetString("settings.logs-dir"),
		JSONConsole:  viper.GetBool("settings.json-logs"),
	})
}

// Get reads the config file at path (config.yaml in the working directory when
// empty), initializes the logger and connects every configured backend.
func Get(ctx context.Context, path string) (*Config, error) {
	if err := initConfig(path); err != nil {
		return nil, err
	}
	if err := initLogger(); err != nil {
		return nil, err
	}

	database, err := openDatabase()
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Successfully connected to the database")

	var redisClient *redis.Client
	if viper.GetBool("service.redis.enabled") {
		redisClient, err = redis.New(ctx, redis.Options{
			Host:      viper.GetString("service.redis.host"),
			Port:      viper.GetString("service.redis.port"),
			Password:  viper.GetString("service.redis.password"),
			DB:        viper.GetInt("service.redis.db"),
			KeyPrefix: viper.GetString("service.redis.key-prefix"),
		})
		if err != nil {
			return nil, err
		}
		logger.Log.Info("Successfully connected to redis")
	}

	notifications, err := NotificationConfig()
	if err != nil {
		return nil, err
	}

	mail, err := mailSender()
	if err != nil {
		return nil, err
	}
	pushSender, err := newPushSender(ctx)
	if err != nil {
		return nil, err
	}
	notifications = disableMissing(notifications, mail != nil, pushSender != nil)

	alertLevel, err := zapcore.ParseLevel(viper.GetString("settings.alerts.level"))
	if err != nil {
		return nil, fmt.Errorf("invalid settings.alerts.level: %w", err)
	}

	return &Config{
		Database:      database,
		Redis:         redisClient,
		Mail:          mail,
		Push:          pushSender,
		Notifications: notifications,
		Trigger: Trigger{
			Schedule: viper.GetString("notifications.schedule"),
			LockTTL:  viper.GetDuration("notifications.lock-ttl"),
			DryRun:   viper.GetBool("notifications.dry-run"),
		},
		Alerts: Alerts{
			URLs:    viper.GetStringSlice("settings.alerts.urls"),
			Level:   alertLevel,
			Timeout: viper.GetDuration("settings.alerts.timeout"),
		},
		MetricsListen: viper.GetString("metrics.listen"),
	}, nil
}

func openDatabase() (*gorm.DB, error) {
	gormConfig := &gorm.Config{TranslateError: true}
	if viper.GetBool("settings.debug") {
		gormConfig.Logger = gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold: time.Second,
				LogLevel:      gormLogger.Info,
				Colorful:      true,
			},
		)
	}

	dsn := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%d sslmode=%s timezone=UTC",
		viper.GetString("service.database.user"),
		viper.GetString("service.database.password"),
		viper.GetString("service.database.name"),
		viper.GetString("service.database.host"),
		viper.GetInt("service.database.port"),
		viper.GetString("service.database.sslmode"),
	)

	database, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        dsn,
	}), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	if viper.GetBool("service.database.auto-migrate") {
		if err = database.AutoMigrate(postgresStorage.Migrations...); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return database, nil
}

// NotificationConfig builds the notification settings from the notifications.* keys.
// Channel entries are keyed by type name or number and may set push, mail or both.
func NotificationConfig() (service.NotificationConfig, error) {
	cfg := service.NotificationConfig{
		CreatorRemindersEnabled: viper.GetBool("notifications.creator-reminders-enabled"),
		AutoCancelEnabled:       viper.GetBool("notifications.auto-cancel-enabled"),
		Channels:                map[entity.NotificationType]entity.Channels{},
	}

	for key := range viper.GetStringMap("notifications.channels") {
		t, ok := entity.ParseNotificationType(key)
		if !ok {
			return cfg, fmt.Errorf("notifications.channels.%s: %w", key, errorz.UnknownNotificationType)
		}

		channels := cfg.ChannelsFor(t)
		prefix := "notifications.channels." + key
		if viper.IsSet(prefix + ".push") {
			channels.Push = viper.GetBool(prefix + ".push")
		}
		if viper.IsSet(prefix + ".mail") {
			channels.Mail = viper.GetBool(prefix + ".mail")
		}
		cfg.Channels[t] = channels
	}
	return cfg, nil
}

// disableMissing turns a channel off for every type when its transport is not configured
func disableMissing(cfg service.NotificationConfig, hasMail, hasPush bool) service.NotificationConfig {
	if hasMail && hasPush {
		return cfg
	}
	channels := make(map[entity.NotificationType]entity.Channels, len(entity.NotificationTypes()))
	for _, t := range entity.NotificationTypes() {
		ch := cfg.ChannelsFor(t)
		ch.Mail = ch.Mail && hasMail
		ch.Push = ch.Push && hasPush
		channels[t] = ch
	}
	cfg.Channels = channels
	return cfg
}

// mailSender returns nil when no mail transport is configured
func mailSender() (service.MailSender, error) {
	layout := mailer.NewLayout(viper.GetString("service.brand"))

	switch driver := strings.ToLower(viper.GetString("notifications.mail-driver")); driver {
	case MailDriverSMTP:
		if viper.GetString("service.smtp.host") == "" {
			return nil, nil
		}
		return mailer.NewSMTP(mailer.SMTPOptions{
			Host:     viper.GetString("service.smtp.host"),
			Port:     viper.GetInt("service.smtp.port"),
			Username: viper.GetString("service.smtp.username"),
			Password: viper.GetString("service.smtp.password"),
			From:     viper.GetString("service.smtp.email"),
			Domain:   viper.GetString("service.smtp.domain"),
		}, layout), nil
	case MailDriverResend:
		apiKey := viper.GetString("service.resend.api-key")
		if apiKey == "" {
			return nil, fmt.Errorf("service.resend.api-key is required by the resend mail driver")
		}
		return mailer.NewResend(apiKey, viper.GetString("service.resend.from"), nil, layout), nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown notifications.mail-driver %q", driver)
	}
}

// newPushSender returns nil when FCM is not configured
func newPushSender(ctx context.Context) (service.PushSender, error) {
	projectID := viper.GetString("service.fcm.project-id")
	if projectID == "" {
		return nil, nil
	}
	sender, err := push.NewFCM(ctx, push.Options{
		ProjectID:       projectID,
		CredentialsFile: viper.GetString("service.fcm.credentials-file"),
	})
	if err != nil {
		return nil, err
	}
	return sender, nil
}
