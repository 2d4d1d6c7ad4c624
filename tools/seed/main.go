package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/crypto/bcrypt"
)

type config struct {
	dsn            string
	equipmentCount int
	days           int
	perDay         int
	startDate      string
	demoEmail      string
	demoPassword   string
	demoFullName   string
}

func main() {
	cfg := parseConfig()
	if cfg.dsn == "" {
		log.Fatal("PG_DSN or DATABASE_URL is required")
	}
	if cfg.equipmentCount <= 0 {
		log.Fatal("equipment-count must be > 0")
	}
	if cfg.days <= 0 || cfg.perDay <= 0 {
		log.Fatal("days and per-day must be > 0")
	}

	start, err := time.Parse("2006-01-02", cfg.startDate)
	if err != nil {
		log.Fatalf("invalid start-date: %v", err)
	}

	db, err := sql.Open("pgx", cfg.dsn)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("db ping error: %v", err)
	}

	inserted, err := seedReadings(db, cfg, start)
	if err != nil {
		log.Fatalf("seed readings error: %v", err)
	}
	log.Printf("seeded %d readings for %d equipment", inserted, cfg.equipmentCount)

	if cfg.demoEmail != "" {
		if err := seedDemoUser(db, cfg); err != nil {
			log.Fatalf("seed demo user error: %v", err)
		}
		log.Printf("seeded demo user %s", cfg.demoEmail)
	}
}

func parseConfig() config {
	cfg := config{}
	flag.StringVar(&cfg.dsn, "dsn", envDefault("PG_DSN", os.Getenv("DATABASE_URL")), "postgres dsn")
	flag.IntVar(&cfg.equipmentCount, "equipment-count", 10, "number of equipment ids to seed")
	flag.IntVar(&cfg.days, "days", 7, "number of days to seed")
	flag.IntVar(&cfg.perDay, "per-day", 24, "readings per equipment per day")
	flag.StringVar(&cfg.startDate, "start-date", time.Now().UTC().AddDate(0, 0, -7).Format("2006-01-02"), "first day to seed (YYYY-MM-DD)")
	flag.StringVar(&cfg.demoEmail, "demo-email", "", "seed a demo user with this email")
	flag.StringVar(&cfg.demoPassword, "demo-password", "demo-password", "demo user password")
	flag.StringVar(&cfg.demoFullName, "demo-fullname", "Demo User", "demo user full name")
	flag.Parse()
	return cfg
}

func seedReadings(db *sql.DB, cfg config, start time.Time) (int, error) {
	const query = `
INSERT INTO equipment_readings (equipment_id, ts, value)
VALUES ($1, $2, $3)
ON CONFLICT (equipment_id, ts)
DO UPDATE SET value = EXCLUDED.value`

	step := 24 * time.Hour / time.Duration(cfg.perDay)
	inserted := 0
	for e := 1; e <= cfg.equipmentCount; e++ {
		equipmentID := fmt.Sprintf("EQ-%04d", e)
		for day := 0; day < cfg.days; day++ {
			ts := start.AddDate(0, 0, day)
			for i := 0; i < cfg.perDay; i++ {
				value := rand.Float64() * 100
				if _, err := db.Exec(query, equipmentID, ts.UTC(), value); err != nil {
					return inserted, err
				}
				inserted++
				ts = ts.Add(step)
			}
		}
	}
	return inserted, nil
}

func seedDemoUser(db *sql.DB, cfg config) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
INSERT INTO users (email, pwd, fullname, activated)
VALUES ($1, $2, $3, TRUE)
ON CONFLICT (email) DO NOTHING`, cfg.demoEmail, string(hash), cfg.demoFullName)
	return err
}

func envDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
