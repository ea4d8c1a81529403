package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"restaurant-inventory/src/logger"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Costing  CostingConfig
	Recipe   RecipeConfig
}

type ServerConfig struct {
	Port     string
	Mode     string
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

// CostingConfig carries the tunables of the replenishment planner and the
// count/waste workflow.
type CostingConfig struct {
	HoldingCostRate          float64 // fraction of unit cost per year
	OrderingCost             float64 // fixed cost per purchase order
	DemandSampleDays         int     // trailing window for demand extrapolation
	WasteWindowDays          int     // trailing window for waste percentage
	VarianceApprovalPercent  float64 // cycle-count variance requiring approval
	ApprovalLevels           int     // purchase-order approval levels required
	PaymentTermsDays         int
	PriceVolatilityThreshold float64 // coefficient of variation flagged as volatile
}

type RecipeConfig struct {
	HourlyLaborRate       float64
	OverheadPercentage    float64
	TargetFoodCostPercent float64
	YieldVariancePercent  float64 // rolling variance triggering effective-yield adjustment
	YieldWindowRuns       int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "restaurant_inventory")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_REPORT_TTL_SECONDS", 60)
		viper.SetDefault("HOLDING_COST_RATE", 0.25)
		viper.SetDefault("ORDERING_COST", 50.0)
		viper.SetDefault("DEMAND_SAMPLE_DAYS", 90)
		viper.SetDefault("WASTE_WINDOW_DAYS", 90)
		viper.SetDefault("VARIANCE_APPROVAL_PERCENT", 5.0)
		viper.SetDefault("PO_APPROVAL_LEVELS", 1)
		viper.SetDefault("PAYMENT_TERMS_DAYS", 30)
		viper.SetDefault("PRICE_VOLATILITY_THRESHOLD", 0.15)
		viper.SetDefault("HOURLY_LABOR_RATE", 18.0)
		viper.SetDefault("OVERHEAD_PERCENTAGE", 0.10)
		viper.SetDefault("TARGET_FOOD_COST_PERCENT", 0.30)
		viper.SetDefault("YIELD_VARIANCE_PERCENT", 5.0)
		viper.SetDefault("YIELD_WINDOW_RUNS", 10)

		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:     viper.GetString("SERVER_PORT"),
				Mode:     viper.GetString("SERVER_MODE"),
				LogLevel: viper.GetString("LOG_LEVEL"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:          viper.GetBool("CACHE_ENABLED"),
				RedisURL:         viper.GetString("REDIS_URL"),
				RedisHost:        viper.GetString("REDIS_HOST"),
				RedisPort:        viper.GetString("REDIS_PORT"),
				RedisPassword:    viper.GetString("REDIS_PASSWORD"),
				RedisDB:          viper.GetInt("REDIS_DB"),
				ReportTTLSeconds: viper.GetInt("CACHE_REPORT_TTL_SECONDS"),
			},
			Costing: CostingConfig{
				HoldingCostRate:          viper.GetFloat64("HOLDING_COST_RATE"),
				OrderingCost:             viper.GetFloat64("ORDERING_COST"),
				DemandSampleDays:         viper.GetInt("DEMAND_SAMPLE_DAYS"),
				WasteWindowDays:          viper.GetInt("WASTE_WINDOW_DAYS"),
				VarianceApprovalPercent:  viper.GetFloat64("VARIANCE_APPROVAL_PERCENT"),
				ApprovalLevels:           viper.GetInt("PO_APPROVAL_LEVELS"),
				PaymentTermsDays:         viper.GetInt("PAYMENT_TERMS_DAYS"),
				PriceVolatilityThreshold: viper.GetFloat64("PRICE_VOLATILITY_THRESHOLD"),
			},
			Recipe: RecipeConfig{
				HourlyLaborRate:       viper.GetFloat64("HOURLY_LABOR_RATE"),
				OverheadPercentage:    viper.GetFloat64("OVERHEAD_PERCENTAGE"),
				TargetFoodCostPercent: viper.GetFloat64("TARGET_FOOD_COST_PERCENT"),
				YieldVariancePercent:  viper.GetFloat64("YIELD_VARIANCE_PERCENT"),
				YieldWindowRuns:       viper.GetInt("YIELD_WINDOW_RUNS"),
			},
		}

		logger.SetLevel(instance.Server.LogLevel)
	})

	return instance
}

// InitDB opens the postgres connection with gorm.
func InitDB(cfg DatabaseConfig) *gorm.DB {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to connect database")
	}

	return db
}
