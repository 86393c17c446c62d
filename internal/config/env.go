package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Env struct {
	AppPort string `mapstructure:"APP_PORT"`
	AppEnv  string `mapstructure:"APP_ENV"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	DBDriver string `mapstructure:"DB_DRIVER"`
	DBDSN    string `mapstructure:"DB_DSN"`

	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	RedisAddress  string        `mapstructure:"REDIS_ADDRESS"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	HistoryTTL    time.Duration `mapstructure:"HISTORY_CACHE_TTL"`

	StorageDriver      string `mapstructure:"STORAGE_DRIVER"`
	UploadDir          string `mapstructure:"UPLOAD_DIR"`
	AWSRegion          string `mapstructure:"AWS_REGION"`
	AWSBucketName      string `mapstructure:"AWS_BUCKET_NAME"`
	AWSAccessKeyID     string `mapstructure:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `mapstructure:"AWS_SECRET_ACCESS_KEY"`
	AWSEndpoint        string `mapstructure:"AWS_ENDPOINT"`

	MQTTEnabled     bool   `mapstructure:"MQTT_ENABLED"`
	MQTTBroker      string `mapstructure:"MQTT_BROKER"`
	MQTTPort        int    `mapstructure:"MQTT_PORT"`
	MQTTClientID    string `mapstructure:"MQTT_CLIENT_ID"`
	MQTTUsername    string `mapstructure:"MQTT_USERNAME"`
	MQTTPassword    string `mapstructure:"MQTT_PASSWORD"`
	MQTTTopicPrefix string `mapstructure:"MQTT_TOPIC_PREFIX"`

	DetectionProvider string        `mapstructure:"DETECTION_PROVIDER"`
	InferenceWSURL    string        `mapstructure:"INFERENCE_WS_URL"`
	GeminiAPIKey      string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel       string        `mapstructure:"GEMINI_MODEL"`
	CascadeFile       string        `mapstructure:"CASCADE_FILE"`
	ProviderMaxWidth  int           `mapstructure:"PROVIDER_MAX_WIDTH"`
	ProviderTimeout   time.Duration `mapstructure:"PROVIDER_TIMEOUT"`
	LiveFPS           int           `mapstructure:"LIVE_FPS"`
}

var envKeys = []string{
	"APP_PORT", "APP_ENV", "JWT_SECRET", "DB_DRIVER", "DB_DSN", "MONGO_URI", "MONGO_DATABASE",
	"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB", "HISTORY_CACHE_TTL",
	"STORAGE_DRIVER", "UPLOAD_DIR", "AWS_REGION", "AWS_BUCKET_NAME", "AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY", "AWS_ENDPOINT",
	"MQTT_ENABLED", "MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_USERNAME", "MQTT_PASSWORD",
	"MQTT_TOPIC_PREFIX",
	"DETECTION_PROVIDER", "INFERENCE_WS_URL", "GEMINI_API_KEY", "GEMINI_MODEL", "CASCADE_FILE",
	"PROVIDER_MAX_WIDTH", "PROVIDER_TIMEOUT", "LIVE_FPS",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "5000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "facevision")
	v.SetDefault("REDIS_ADDRESS", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("HISTORY_CACHE_TTL", 5*time.Minute)
	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MQTT_ENABLED", false)
	v.SetDefault("MQTT_PORT", 1883)
	v.SetDefault("MQTT_CLIENT_ID", "facevision")
	v.SetDefault("MQTT_TOPIC_PREFIX", "facevision")
	v.SetDefault("DETECTION_PROVIDER", "none")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("PROVIDER_MAX_WIDTH", 640)
	v.SetDefault("PROVIDER_TIMEOUT", 5*time.Second)
	v.SetDefault("LIVE_FPS", 10)
}

// LoadEnv reads .env when present and then the process environment, which
// wins over the file.
func LoadEnv(files ...string) (*Env, error) {
	_ = godotenv.Load(files...)

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var env Env
	if err := v.Unmarshal(&env); err != nil {
		return nil, err
	}

	return &env, nil
}
