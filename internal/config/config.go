package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/ini.v1"

	"pingboard/internal/models"
)

// Load returns the server configuration from environment variables,
// optionally merged with an INI file when configFile is non-empty.
// File values are applied first, environment variables override them.
func Load(configFile string) models.Config {
	cfg := defaults()
	if configFile != "" {
		loadFile(&cfg, configFile)
	}
	loadEnv(&cfg)
	return cfg
}

func defaults() models.Config {
	return models.Config{
		Port:         "7000",
		DBPath:       "pingboard.db",
		DevicesPath:  "devices.json",
		LogPath:      "monitoring_log.txt",
		AdminUser:    "admin",
		AdminPass:    "",
		AuthEnabled:  true,
		PollInterval: 5 * time.Second,
	}
}

func loadFile(cfg *models.Config, filename string) {
	file, err := ini.LoadSources(ini.LoadOptions{Insensitive: true}, filename)
	if err != nil {
		log.Printf("⚠️ Skipping config file %s: %v", filename, err)
		return
	}

	section := file.Section("")
	cfg.Port = section.Key("port").MustString(cfg.Port)
	cfg.DBPath = section.Key("dbpath").MustString(cfg.DBPath)
	cfg.DevicesPath = section.Key("devicesfile").MustString(cfg.DevicesPath)
	cfg.LogPath = section.Key("logfile").MustString(cfg.LogPath)
	cfg.AdminUser = section.Key("adminuser").MustString(cfg.AdminUser)
	cfg.AdminPass = section.Key("adminpass").MustString(cfg.AdminPass)
	cfg.AuthEnabled = section.Key("authenabled").MustBool(cfg.AuthEnabled)
	if secs := section.Key("pollinterval").MustInt(0); secs > 0 {
		cfg.PollInterval = time.Duration(secs) * time.Second
	}
}

func loadEnv(cfg *models.Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.DevicesPath = getEnv("DEVICES_PATH", cfg.DevicesPath)
	cfg.LogPath = getEnv("LOG_PATH", cfg.LogPath)
	cfg.AdminUser = getEnv("ADMIN_USER", cfg.AdminUser)
	cfg.AdminPass = getEnv("ADMIN_PASS", cfg.AdminPass)
	if v, ok := os.LookupEnv("AUTH_ENABLED"); ok {
		cfg.AuthEnabled = v == "true"
	}
	if v, ok := os.LookupEnv("POLL_INTERVAL"); ok {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.PollInterval = time.Duration(secs) * time.Second
		}
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
