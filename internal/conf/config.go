package conf

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	MinIO    MinIOConfig
	Log      LogConfig
	Auth     AuthConfig
	Optimize OptimizeConfig
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// PublicBaseURL is the externally reachable base for public object
	// URLs. Falls back to the endpoint when empty.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type LogConfig struct {
	Level            string        `mapstructure:"level"`
	Format           string        `mapstructure:"format"`
	Output           string        `mapstructure:"output"`
	File             FileLogConfig `mapstructure:"file"`
	EnableCaller     bool          `mapstructure:"enablecaller"`
	EnableStacktrace bool          `mapstructure:"enablestacktrace"`
}

type FileLogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	JWTIssuer string `mapstructure:"jwt_issuer"`
}

type OptimizeConfig struct {
	MaxUploadBytes   int64         `mapstructure:"max_upload_bytes"`
	MaxDimension     int           `mapstructure:"max_dimension"`
	JPEGQuality      int           `mapstructure:"jpeg_quality"`
	Passthrough      bool          `mapstructure:"passthrough"`
	TransformWorkers int           `mapstructure:"transform_workers"`
	TransformTimeout time.Duration `mapstructure:"transform_timeout"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	Retention        time.Duration `mapstructure:"retention"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	StartingCredits  int64         `mapstructure:"starting_credits"`
}

func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.setDefaults()
	return &config, nil
}

func (c *Config) setDefaults() {
	if c.Optimize.MaxUploadBytes == 0 {
		c.Optimize.MaxUploadBytes = 5 << 20
	}
	if c.Optimize.MaxDimension == 0 {
		c.Optimize.MaxDimension = 1920
	}
	if c.Optimize.JPEGQuality == 0 {
		c.Optimize.JPEGQuality = 80
	}
	if c.Optimize.TransformWorkers == 0 {
		c.Optimize.TransformWorkers = 4
	}
	if c.Optimize.TransformTimeout == 0 {
		c.Optimize.TransformTimeout = 5 * time.Second
	}
	if c.Optimize.RequestTimeout == 0 {
		c.Optimize.RequestTimeout = 30 * time.Second
	}
	if c.Optimize.SweepInterval == 0 {
		c.Optimize.SweepInterval = 10 * time.Minute
	}
	if c.Optimize.StartingCredits == 0 {
		c.Optimize.StartingCredits = 10
	}
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
