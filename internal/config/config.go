// Package config handles service and edge configuration
package config

import (
	"os"
	"strconv"
	"time"
)

// Server holds the inference service configuration.
type Server struct {
	HTTPAddr         string        `yaml:"http_addr"`
	ModelPath        string        `yaml:"model_path"`
	ORTLibPath       string        `yaml:"ort_lib_path"`
	WhisperModelPath string        `yaml:"whisper_model_path"`
	ModelName        string        `yaml:"model_name"`
	ModelVariant     string        `yaml:"model_variant"`
	Threshold        float64       `yaml:"threshold"`
	MaxConcurrent    int           `yaml:"max_concurrent"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
}

// Edge holds the edge device configuration. Pin numbers are BCM offsets
// on the given gpiochip, matching the original wiring: button on 17 with
// pull-up, red LED on 23, green LED on 24.
type Edge struct {
	ServiceURL     string        `yaml:"service_url"`
	GPIOChip       string        `yaml:"gpio_chip"`
	TriggerPin     int           `yaml:"trigger_pin"`
	RedLEDPin      int           `yaml:"red_led_pin"`
	GreenLEDPin    int           `yaml:"green_led_pin"`
	SampleRate     int           `yaml:"sample_rate"`
	Debounce       time.Duration `yaml:"debounce"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	TempDir        string        `yaml:"temp_dir"`
}

// LoadServer reads service configuration from the environment.
func LoadServer() *Server {
	return &Server{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8000"),
		ModelPath:        getEnv("MODEL_PATH", "models/aasist-l.onnx"),
		ORTLibPath:       getEnv("ORT_LIB_PATH", ""),
		WhisperModelPath: getEnv("WHISPER_MODEL_PATH", ""),
		ModelName:        getEnv("MODEL_NAME", "AASIST"),
		ModelVariant:     getEnv("MODEL_VARIANT", "L"),
		Threshold:        getEnvFloat("SCORE_THRESHOLD", 0.0),
		MaxConcurrent:    getEnvInt("MAX_CONCURRENT", 4),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_BYTES", 16<<20)),
		ShutdownTimeout:  getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
	}
}

// LoadEdge reads edge configuration from the environment.
func LoadEdge() *Edge {
	return &Edge{
		ServiceURL:     getEnv("SERVICE_URL", "http://localhost:8000"),
		GPIOChip:       getEnv("GPIO_CHIP", "gpiochip0"),
		TriggerPin:     getEnvInt("TRIGGER_PIN", 17),
		RedLEDPin:      getEnvInt("RED_LED_PIN", 23),
		GreenLEDPin:    getEnvInt("GREEN_LED_PIN", 24),
		SampleRate:     getEnvInt("SAMPLE_RATE", 16000),
		Debounce:       getEnvDuration("TRIGGER_DEBOUNCE", 10*time.Millisecond),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		TempDir:        getEnv("TEMP_DIR", os.TempDir()),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
