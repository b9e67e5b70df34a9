// seed inserts development sample readings for local dashboard testing.
// Idempotent: skips inserts if any motion reading already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"vehicle-sensor-platform/backend/internal/config"
	"vehicle-sensor-platform/backend/internal/db"
	"vehicle-sensor-platform/backend/internal/reading/domain"
	"vehicle-sensor-platform/backend/internal/reading/query"
	"vehicle-sensor-platform/backend/internal/reading/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := repository.NewPostgresRepository(sqlDB)

	existing, err := repo.CountMotion(ctx, query.Filter{})
	if err != nil {
		log.Fatalf("count: %v", err)
	}
	if existing > 0 {
		fmt.Println("seed: readings already present, skipping")
		return
	}

	now := time.Now().UTC()
	sessions := []domain.SessionID{
		domain.NumericSession(1),
		domain.TextualSession("test-drive"),
	}

	var motions, positions int
	for si, session := range sessions {
		base := now.Add(-time.Duration(si*24) * time.Hour)
		for i := 0; i < 60; i++ {
			at := base.Add(-time.Duration(i) * time.Second)
			m := &domain.MotionReading{
				SourceTime: strconv.FormatInt(at.Unix(), 10),
				Session:    session,
				Ax:         0.1 * float64(i%7),
				Ay:         -0.05 * float64(i%5),
				Az:         9.81 + 0.02*float64(i%3),
				Gx:         0.01 * float64(i%4),
				Gy:         0,
				Gz:         -0.01 * float64(i%6),
				ReceivedAt: at,
			}
			if err := repo.InsertMotion(ctx, m); err != nil {
				log.Fatalf("insert motion: %v", err)
			}
			motions++
		}
		for i := 0; i < 12; i++ {
			at := base.Add(-time.Duration(i*5) * time.Second)
			p := &domain.PositionReading{
				SourceTime: strconv.FormatInt(at.Unix(), 10),
				Session:    session,
				Lat:        50.0755 + 0.0001*float64(i),
				Lon:        14.4378 - 0.0001*float64(i),
				ReceivedAt: at,
			}
			if err := repo.InsertPosition(ctx, p); err != nil {
				log.Fatalf("insert position: %v", err)
			}
			positions++
		}
	}

	fmt.Printf("seed: inserted %d motion and %d position readings across %d sessions\n",
		motions, positions, len(sessions))
}
