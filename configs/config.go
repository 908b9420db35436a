package config

import (
	"log"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	conf     *viper.Viper
	loadOnce sync.Once
)

func load() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	conf = viper.New()
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("APP_ENV", "development")
	conf.SetDefault("PORT", "8080")
	conf.SetDefault("DB_DEBUG", false)
	conf.SetDefault("REALLOCATION_CRON", "0 3 * * *")
	conf.SetDefault("RENOTIFY_CRON", "*/30 * * * *")
	conf.SetDefault("ROLLBAR_TOKEN", "")
	conf.SetDefault("CODE_VERSION", "dev")
	conf.AutomaticEnv()
}

func get() *viper.Viper {
	loadOnce.Do(load)
	return conf
}

func Config(key string) string {
	return get().GetString(key)
}

func Bool(key string) bool {
	return get().GetBool(key)
}

// Set overrides a value for the life of the process. Used by tests.
func Set(key string, value interface{}) {
	get().Set(key, value)
}
