package configuration

import (
	"fmt"
	"os"
	"strconv"

	"social-publisher/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	LinkedIn    LinkedIn    `json:"linkedin"`
	ContentGen  ContentGen  `json:"contentGen"`
	Publish     Publish     `json:"publish"`
}

type App struct {
	Port      int    `json:"port"`
	SecretKey string `json:"secretKey"`
}

type Database struct {
	Psql  Db `json:"psql"`
	MySql Db `json:"mysql"`
	Mongo Db `json:"mongo"`
	Mssql Db `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID      string `json:"projectID"`
	PublishedTopic string `json:"publishedTopic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

// LinkedIn holds the OAuth client and API settings for the platform.
type LinkedIn struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	Scopes       []string `json:"scopes"`
	APIBaseURL   string   `json:"apiBaseURL"`
	AuthBaseURL  string   `json:"authBaseURL"`
}

type ContentGen struct {
	Host   string `json:"host"`
	APIKey string `json:"apiKey"`
}

// Publish tunes the orchestrator: token safety margin, remote call timeout
// and the retry scan batch size.
type Publish struct {
	SafetyMarginMinutes int `json:"safetyMarginMinutes"`
	HTTPTimeoutSeconds  int `json:"httpTimeoutSeconds"`
	RetryBatchSize      int `json:"retryBatchSize"`
	RetryIntervalSecs   int `json:"retryIntervalSecs"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initLinkedIn(&C)
	initPublish(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
}

func getConfig() string {
	name := "config"
	if env := os.Getenv("ENV"); env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}

	if v := os.Getenv("MSSQL_DB_NAME"); v != "" && C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = v
	}
	if v := os.Getenv("MSSQL_HOST"); v != "" && C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = v
	}
	if v := os.Getenv("MSSQL_USER"); v != "" && C.Database.Mssql.User == "" {
		C.Database.Mssql.User = v
	}
	if v := os.Getenv("MSSQL_PASSWORD"); v != "" && C.Database.Mssql.Password == "" {
		C.Database.Mssql.Password = v
	}
	if C.Database.Mssql.Port == "" {
		C.Database.Mssql.Port = "1433"
	}
}

func initApp(C *Config) {
	// SECRET_KEY from environment wins over the config file.
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
}

func initLinkedIn(C *Config) {
	if v := os.Getenv("LINKEDIN_CLIENT_ID"); v != "" {
		C.LinkedIn.ClientID = v
	}
	if v := os.Getenv("LINKEDIN_CLIENT_SECRET"); v != "" {
		C.LinkedIn.ClientSecret = v
	}
	if v := os.Getenv("LINKEDIN_REDIRECT_URI"); v != "" {
		C.LinkedIn.RedirectURI = v
	}
	if C.LinkedIn.APIBaseURL == "" {
		C.LinkedIn.APIBaseURL = "https://api.linkedin.com"
	}
	if C.LinkedIn.AuthBaseURL == "" {
		C.LinkedIn.AuthBaseURL = "https://www.linkedin.com"
	}
	if len(C.LinkedIn.Scopes) == 0 {
		C.LinkedIn.Scopes = []string{"openid", "profile", "w_member_social"}
	}
}

func initPublish(C *Config) {
	if C.Publish.SafetyMarginMinutes == 0 {
		C.Publish.SafetyMarginMinutes = 5
	}
	if C.Publish.HTTPTimeoutSeconds == 0 {
		C.Publish.HTTPTimeoutSeconds = 30
	}
	if C.Publish.RetryBatchSize == 0 {
		C.Publish.RetryBatchSize = 10
	}
	if C.Publish.RetryIntervalSecs == 0 {
		C.Publish.RetryIntervalSecs = 60
	}
}
