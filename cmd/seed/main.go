package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindwell/clinic-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	professionals, err := seedProfessionals(context.Background(), pool, 50)
	if err != nil {
		log.Fatalf("seed professionals: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, professionals); err != nil {
		log.Fatalf("seed availability: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedProfessionals(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d professionals", count)

	specializations := []string{
		"Clinical Psychology",
		"Child and Adolescent",
		"Couples Therapy",
		"Cognitive Behavioral Therapy",
		"Neuropsychology",
		"Addiction",
		"Anxiety and Depression",
		"Trauma and PTSD",
	}
	cities := []string{"La Paz", "Santa Cruz", "Cochabamba", "Sucre", "El Alto"}
	durations := []int{45, 50, 60}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		name := gofakeit.Name()
		email := gofakeit.Email()
		spec := specializations[gofakeit.Number(0, len(specializations)-1)]
		city := cities[gofakeit.Number(0, len(cities)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO professionals (id, name, email, specialization, city, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, now(), now())
		`, id, name, email, spec, city)
		if err != nil {
			return nil, err
		}

		// Most professionals carry a session policy; a few rely on the
		// defaults, which the booking path must handle.
		if gofakeit.Number(0, 9) > 1 {
			duration := durations[gofakeit.Number(0, len(durations)-1)]
			fee := float64(gofakeit.Number(150, 500))
			_, err := tx.Exec(ctx, `
				INSERT INTO session_policies (professional_id, duration_minutes, fee, updated_at)
				VALUES ($1, $2, $3, now())
			`, id, duration, fee)
			if err != nil {
				return nil, err
			}
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("professionals seeded")
	return ids, nil
}

func seedAvailability(ctx context.Context, pool *pgxpool.Pool, professionals []uuid.UUID) error {
	log.Printf("seeding availability for %d professionals", len(professionals))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, professionalID := range professionals {
		// Mon-Fri split shifts: morning and afternoon blocks.
		for weekday := 0; weekday < 5; weekday++ {
			shifts := [][2]int{{9 * 60, 13 * 60}, {14 * 60, 18 * 60}}
			for _, shift := range shifts {
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_rules (id, professional_id, weekday, start_minute, end_minute, active, blocked_dates, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, TRUE, '[]', now(), now())
				`, uuid.New(), professionalID, weekday, shift[0], shift[1])
				if err != nil {
					return err
				}
			}
		}

		// Some offer Saturday mornings.
		if gofakeit.Bool() {
			_, err := tx.Exec(ctx, `
				INSERT INTO availability_rules (id, professional_id, weekday, start_minute, end_minute, active, blocked_dates, created_at, updated_at)
				VALUES ($1, $2, 5, $3, $4, TRUE, '[]', now(), now())
			`, uuid.New(), professionalID, 9*60, 12*60)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
