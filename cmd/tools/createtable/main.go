package main

import (
	"log"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Creates the audit tables. The workflow itself is stateless; these only
// back the interaction dedupe and the intake audit trail.

func main() {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sql := `
	CREATE TABLE IF NOT EXISTS interaction_events (
	  id CHAR(36) NOT NULL,
	  source VARCHAR(32) NOT NULL,
	  event_key VARCHAR(255) NOT NULL,
	  kind VARCHAR(64) NOT NULL,
	  payload_json JSON NOT NULL,
	  received_at DATETIME(3) NOT NULL,
	  PRIMARY KEY (id),
	  UNIQUE KEY ux_interaction_events_source_key (source, event_key)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS refund_request_logs (
	  id CHAR(36) NOT NULL,
	  order_number VARCHAR(64) NOT NULL,
	  email VARCHAR(255) NOT NULL,
	  refund_type VARCHAR(16) NOT NULL,
	  outcome VARCHAR(32) NOT NULL,
	  message_ts VARCHAR(32),
	  payload_json JSON NOT NULL,
	  created_at DATETIME(3) NOT NULL,
	  PRIMARY KEY (id),
	  KEY ix_refund_request_logs_order_number (order_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	if err := db.Exec(sql).Error; err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	log.Println("Audit tables ready.")
}
