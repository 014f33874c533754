package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"`
	} `yaml:"jwt"`

	Realtime struct {
		Channel string `yaml:"channel"` // имя NOTIFY-канала Postgres
	} `yaml:"realtime"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
		Enabled      bool   `yaml:"enabled"`
	} `yaml:"email"`

	Inbox struct {
		PreviewLength int `yaml:"preview_length"` // обрезка превью последнего сообщения
	} `yaml:"inbox"`
}

var AppConfig *Config

func LoadConfig() {
	var cfg Config

	// .env подхватывается молча: в контейнере его обычно нет
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	serverEnv := os.Getenv("SERVER_ENV")
	portStr := os.Getenv("SERVER_PORT")
	jwtSecret := os.Getenv("JWT_SECRET")

	if dbURL == "" {
		log.Println("Загрузка из config.yaml")

		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	log.Println("Загрузка конфигурации из переменных окружения")

	cfg.Database.DSN = dbURL
	cfg.Server.Env = serverEnv
	cfg.Server.Port, _ = strconv.Atoi(portStr)
	cfg.JWT.Secret = jwtSecret
	cfg.JWT.TTL = 60

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4000
	}
	if cfg.Realtime.Channel == "" {
		cfg.Realtime.Channel = "support_changes"
	}
	if cfg.Inbox.PreviewLength == 0 {
		cfg.Inbox.PreviewLength = 50
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
