// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек сервиса валидации чеков
type Config struct {
	Env                     string `yaml:"env"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQConnection      `yaml:"rabbitmq_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	AppStore                `yaml:"appstore"`
	GooglePlay              `yaml:"googleplay"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQConnection структура для настройки подключения к rabbitmq
type RabbitMQConnection struct {
	URLRabbitMQ string        `yaml:"url"`
	Exchange    string        `yaml:"exchange" env-default:"entitlements"`
	Retries     int           `yaml:"retries" env-default:"5"`
	RetryDelay  time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// AppStore структура для настройки проверки чеков через Apple App Store.
// SharedSecret обязателен для legacy-чеков, RootCertificatePath — для
// проверки подписи signed-токенов.
type AppStore struct {
	SharedSecret        string        `yaml:"shared_secret"`
	ProductionURL       string        `yaml:"production_url" env-default:"https://buy.itunes.apple.com/verifyReceipt"`
	SandboxURL          string        `yaml:"sandbox_url" env-default:"https://sandbox.itunes.apple.com/verifyReceipt"`
	RootCertificatePath string        `yaml:"root_certificate_path"`
	TimeoutAppStore     time.Duration `yaml:"timeout" env-default:"15s"`
}

// GooglePlay структура для настройки проверки покупок через Google Play.
// Сервисный аккаунт обменивается на access token по протоколу OAuth2
// jwt-bearer, затем выполняется запрос к purchases API.
type GooglePlay struct {
	PackageName         string        `yaml:"package_name"`
	ServiceAccountEmail string        `yaml:"service_account_email"`
	PrivateKeyPath      string        `yaml:"private_key_path"`
	TokenURL            string        `yaml:"token_url" env-default:"https://oauth2.googleapis.com/token"`
	APIURL              string        `yaml:"api_url" env-default:"https://androidpublisher.googleapis.com"`
	TimeoutGooglePlay   time.Duration `yaml:"timeout" env-default:"15s"`
}

// MustLoad функция для загрузки конфига, путь берётся из переменной окружения CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
