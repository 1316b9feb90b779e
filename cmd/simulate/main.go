package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mindwell/clinic-scheduling/internal/auth"
	"github.com/mindwell/clinic-scheduling/internal/config"
	"github.com/mindwell/clinic-scheduling/internal/db"
	"github.com/mindwell/clinic-scheduling/internal/scheduling"
)

// The simulator hammers the booking API with concurrent patients fighting
// over the same slots, then reports success/conflict/error rates. With a
// correct per-professional lock the conflict rate climbs while overlapping
// bookings never succeed.

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	BookingRatio  float64
	ConfirmRatio  float64
	ScheduleRatio float64
	PatientLimit  int
	HorizonDays   int
	PostgresDSN   string
	JWTSecret     string
}

type actorCred struct {
	ID    uuid.UUID
	Token string
}

// bookingTarget is a concrete (professional, date, start) candidate derived
// from the seeded availability rules.
type bookingTarget struct {
	ProfessionalIdx int
	Date            string
	StartTime       string
}

type createdAppointment struct {
	ID              uuid.UUID
	ProfessionalIdx int
}

type DataPool struct {
	Patients      []actorCred
	Professionals []actorCred
	Targets       []bookingTarget
	mu            sync.RWMutex
	appointments  []createdAppointment
}

func (dp *DataPool) AddAppointment(a createdAppointment) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, a)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (createdAppointment, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return createdAppointment{}, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	Booking  OperationMetrics
	Confirm  OperationMetrics
	Schedule OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d booking=%.2f confirm=%.2f schedule=%.2f",
		cfg.Duration, cfg.Workers, cfg.BookingRatio, cfg.ConfirmRatio, cfg.ScheduleRatio)

	// Load data from Postgres
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d patients, %d professionals, %d booking targets",
		len(dataPool.Patients), len(dataPool.Professionals), len(dataPool.Targets))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	// Run simulation
	sim.Run()

	// Print report
	sim.PrintReport()
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:    getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		BookingRatio:  getFloat("SIM_BOOKING_RATIO", 0.5),
		ConfirmRatio:  getFloat("SIM_CONFIRM_RATIO", 0.2),
		ScheduleRatio: getFloat("SIM_SCHEDULE_RATIO", 0.3),
		PatientLimit:  getInt("SIM_PATIENT_LIMIT", 1000),
		HorizonDays:   getInt("SIM_HORIZON_DAYS", 14),
		PostgresDSN:   baseCfg.PostgresDSN,
		JWTSecret:     baseCfg.JWTSecret,
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.ConfirmRatio + cfg.ScheduleRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ConfirmRatio /= total
		cfg.ScheduleRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.HorizonDays <= 1 {
		return fmt.Errorf("SIM_HORIZON_DAYS must be > 1")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	// Load patients and mint their tokens
	rows, err := pool.Query(ctx, `
		SELECT id, name FROM patients LIMIT $1
	`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		token, err := auth.NewToken(cfg.JWTSecret, id, scheduling.RolePatient, name, 2*time.Hour)
		if err != nil {
			return nil, fmt.Errorf("mint patient token: %w", err)
		}
		dataPool.Patients = append(dataPool.Patients, actorCred{ID: id, Token: token})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Load professionals and their availability; turn each rule into
	// concrete (date, start) targets inside the booking horizon.
	proIdx := make(map[uuid.UUID]int)
	rows, err = pool.Query(ctx, `
		SELECT p.id, p.name, r.weekday, r.start_minute, r.end_minute,
		       COALESCE(sp.duration_minutes, 60)
		FROM professionals p
		JOIN availability_rules r ON r.professional_id = p.id AND r.active
		LEFT JOIN session_policies sp ON sp.professional_id = p.id
		WHERE p.active
	`)
	if err != nil {
		return nil, fmt.Errorf("load professionals: %w", err)
	}
	defer rows.Close()

	tomorrow := time.Now().AddDate(0, 0, 1)
	for rows.Next() {
		var id uuid.UUID
		var name string
		var weekday int
		var start, end int16
		var duration int
		if err := rows.Scan(&id, &name, &weekday, &start, &end, &duration); err != nil {
			return nil, err
		}

		idx, ok := proIdx[id]
		if !ok {
			token, err := auth.NewToken(cfg.JWTSecret, id, scheduling.RoleProfessional, name, 2*time.Hour)
			if err != nil {
				return nil, fmt.Errorf("mint professional token: %w", err)
			}
			idx = len(dataPool.Professionals)
			proIdx[id] = idx
			dataPool.Professionals = append(dataPool.Professionals, actorCred{ID: id, Token: token})
		}

		for day := 0; day < cfg.HorizonDays; day++ {
			date := tomorrow.AddDate(0, 0, day)
			if scheduling.WeekdayIndex(date) != weekday {
				continue
			}
			for t := int(start); t+duration <= int(end); t += duration {
				dataPool.Targets = append(dataPool.Targets, bookingTarget{
					ProfessionalIdx: idx,
					Date:            scheduling.DateKey(date),
					StartTime:       scheduling.MinuteOfDay(t).String(),
				})
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(dataPool.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}
	if len(dataPool.Targets) == 0 {
		return nil, fmt.Errorf("no booking targets loaded")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng)
			case r < s.config.BookingRatio+s.config.ConfirmRatio:
				s.doConfirm(ctx, rng)
			default:
				s.doSchedule(ctx, rng)
			}
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	target := s.pool.Targets[rng.Intn(len(s.pool.Targets))]
	patient := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	professional := s.pool.Professionals[target.ProfessionalIdx]

	start := time.Now()

	reqBody := map[string]string{
		"professional_id": professional.ID.String(),
		"date":            target.Date,
		"start_time":      target.StartTime,
	}
	body, _ := json.Marshal(reqBody)

	req, _ := http.NewRequestWithContext(ctx, "POST", s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+patient.Token)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusCreated {
			success = true
			var apptResp struct {
				ID uuid.UUID `json:"id"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if len(bodyBytes) > 0 {
				json.Unmarshal(bodyBytes, &apptResp)
				if apptResp.ID != uuid.Nil {
					s.pool.AddAppointment(createdAppointment{
						ID:              apptResp.ID,
						ProfessionalIdx: target.ProfessionalIdx,
					})
				}
			}
		} else if resp.StatusCode == http.StatusConflict {
			conflict = true
		}
	}

	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	professional := s.pool.Professionals[appt.ProfessionalIdx]

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/appointments/%s/confirm", s.config.APIBaseURL, appt.ID.String()), nil)
	req.Header.Set("Authorization", "Bearer "+professional.Token)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			success = true
		} else if resp.StatusCode == http.StatusConflict {
			conflict = true
		}
	}

	s.metrics.Confirm.Record(latency, success, conflict)
}

func (s *Simulator) doSchedule(ctx context.Context, rng *rand.Rand) {
	if len(s.pool.Professionals) == 0 || len(s.pool.Patients) == 0 {
		return
	}

	professional := s.pool.Professionals[rng.Intn(len(s.pool.Professionals))]
	patient := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	weekStart := time.Now().AddDate(0, 0, 1+rng.Intn(s.config.HorizonDays-1))

	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/psychologists/%s/schedule?week_start=%s",
			s.config.APIBaseURL, professional.ID.String(), scheduling.DateKey(weekStart)), nil)
	req.Header.Set("Authorization", "Bearer "+patient.Token)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.Schedule.Record(latency, success, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Weekly schedule", &s.metrics.Schedule)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failures := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failures > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failures, float64(failures)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
