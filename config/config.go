// config/config.go
package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

var (
	Port          string
	BaseURL       string
	PushURL       string
	Token         string
	Timeout       time.Duration
	JWTKey        []byte
	JWTExpiration time.Duration
)

func LoadConfig() {
	// Optional .env for local development
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it")
	}

	Port = os.Getenv("PORT")
	if Port == "" {
		Port = "8080"
	}

	BaseURL = os.Getenv("CAPATRACK_BASE_URL")
	if BaseURL == "" {
		BaseURL = "http://localhost:" + Port
	}

	PushURL = os.Getenv("CAPATRACK_PUSH_URL")
	if PushURL == "" {
		PushURL = "ws://localhost:" + Port + "/ws"
	}

	Token = os.Getenv("CAPATRACK_TOKEN")

	Timeout = 15 * time.Second
	if raw := os.Getenv("CAPATRACK_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			log.Printf("Invalid CAPATRACK_TIMEOUT: %s, using 15s", raw)
		} else {
			Timeout = d
		}
	}

	JWTKey = []byte(os.Getenv("JWT_SECRET"))
	if len(JWTKey) == 0 {
		JWTKey = []byte("secret")
	}

	expireStr := os.Getenv("JWT_EXPIRE")
	dur := 24 * time.Hour
	if expireStr != "" {
		var err error
		dur, err = time.ParseDuration(expireStr)
		if err != nil {
			log.Printf("Invalid JWT_EXPIRE: %s, using 24h", expireStr)
			dur = 24 * time.Hour
		}
	}
	JWTExpiration = dur
}
