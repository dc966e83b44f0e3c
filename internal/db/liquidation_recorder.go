// Package db provides the MetricsReporter's audit-log sink: every
// TraderLiquidated and LiquidationError event is appended as a row, purely
// for after-the-fact inspection. The bot never reads this table back to
// reconstruct pipeline state — that is rebuilt from chain history on every
// restart (spec §1 non-goal).
package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	lb "github.com/liquidation-bot/liquidation-bot"
)

// LiquidationRecord is the database model for one liquidation attempt's
// outcome, adapted from the teacher's AssetSnapshotRecord — same
// timestamped-row-per-event shape, same big.Int-as-string convention for
// any future numeric field.
type LiquidationRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time `gorm:"index;not null"`
	Trader    string    `gorm:"type:varchar(42);index;not null"`
	Succeeded bool      `gorm:"not null"`
	TxHash    string    `gorm:"type:varchar(66)"`
	Cause     string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (LiquidationRecord) TableName() string {
	return "liquidation_records"
}

// MySQLRecorder persists liquidation outcomes via GORM and MySQL.
type MySQLRecorder struct {
	db *gorm.DB
}

// NewMySQLRecorder opens a MySQL connection and migrates the schema.
// dsn format: "user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
func NewMySQLRecorder(dsn string) (*MySQLRecorder, error) {
	database, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}

	if err := database.AutoMigrate(&LiquidationRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &MySQLRecorder{db: database}, nil
}

// NewMySQLRecorderWithDB wraps an already-open GORM DB instance, migrating
// the schema if needed.
func NewMySQLRecorderWithDB(database *gorm.DB) (*MySQLRecorder, error) {
	if err := database.AutoMigrate(&LiquidationRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &MySQLRecorder{db: database}, nil
}

// RecordLiquidated appends a successful liquidation row.
func (r *MySQLRecorder) RecordLiquidated(trader lb.Address, txHash string) error {
	record := LiquidationRecord{
		Timestamp: time.Now(),
		Trader:    trader.String(),
		Succeeded: true,
		TxHash:    txHash,
	}
	if result := r.db.Create(&record); result.Error != nil {
		return fmt.Errorf("record liquidation: %w", result.Error)
	}
	return nil
}

// RecordError appends a failed-attempt row.
func (r *MySQLRecorder) RecordError(trader lb.Address, cause error) error {
	record := LiquidationRecord{
		Timestamp: time.Now(),
		Trader:    trader.String(),
		Succeeded: false,
		Cause:     cause.Error(),
	}
	if result := r.db.Create(&record); result.Error != nil {
		return fmt.Errorf("record liquidation error: %w", result.Error)
	}
	return nil
}

// GetDB returns the underlying GORM DB instance for advanced queries.
func (r *MySQLRecorder) GetDB() *gorm.DB {
	return r.db
}

// Close closes the database connection.
func (r *MySQLRecorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get underlying db: %w", err)
	}
	return sqlDB.Close()
}

// CountRecords returns the total number of rows recorded, successes and
// failures combined.
func (r *MySQLRecorder) CountRecords() (int64, error) {
	var count int64
	if result := r.db.Model(&LiquidationRecord{}).Count(&count); result.Error != nil {
		return 0, fmt.Errorf("count records: %w", result.Error)
	}
	return count, nil
}

// RecordsForTrader retrieves every recorded attempt for one trader, most
// recent first.
func (r *MySQLRecorder) RecordsForTrader(trader lb.Address) ([]LiquidationRecord, error) {
	var records []LiquidationRecord
	result := r.db.Where("trader = ?", trader.String()).
		Order("timestamp DESC").
		Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("query records for trader: %w", result.Error)
	}
	return records, nil
}
