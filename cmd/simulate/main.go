package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/elumia/wellness-api/internal/auth"
	"github.com/elumia/wellness-api/internal/logging"
)

type SimConfig struct {
	APIBaseURL     string
	Secret         string
	Slots          int
	BookersPerSlot int
	Timeout        time.Duration
}

type target struct {
	ProfessionalUID string
	SlotID          string
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
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	pct := func(p int) time.Duration {
		idx := len(latencies) * p / 100
		if idx >= len(latencies) {
			idx = len(latencies) - 1
		}
		return latencies[idx]
	}

	return sum / time.Duration(len(latencies)), latencies[0], latencies[len(latencies)-1], pct(50), pct(95)
}

// slotResult counts outcomes for one contested slot.
type slotResult struct {
	target
	successes     int64
	conflicts     int64
	errors        int64
	appointmentID string
}

type Simulator struct {
	config   SimConfig
	client   *http.Client
	log      zerolog.Logger
	booking  OperationMetrics
	decision OperationMetrics
	results  []*slotResult
}

func main() {
	_ = godotenv.Load()
	log := logging.New(getEnv("APP_ENV", "dev"), "simulate")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	log.Info().
		Str("api", cfg.APIBaseURL).
		Int("slots", cfg.Slots).
		Int("bookers_per_slot", cfg.BookersPerSlot).
		Msg("simulator starting")

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	targets, err := sim.loadTargets(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("load free slots")
	}
	log.Info().Int("slots", len(targets)).Msg("loaded free slots")

	patients, err := sim.registerPatients(ctx, cfg.BookersPerSlot)
	if err != nil {
		log.Fatal().Err(err).Msg("register patients")
	}

	for _, t := range targets {
		sim.results = append(sim.results, sim.contest(ctx, t, patients))
	}

	sim.decideAndVerify(ctx)
	sim.PrintReport()
}

func loadConfig() SimConfig {
	return SimConfig{
		APIBaseURL:     strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:5000"), "/"),
		Secret:         os.Getenv("AUTH_DEV_SECRET"),
		Slots:          getInt("SIM_SLOTS", 10),
		BookersPerSlot: getInt("SIM_BOOKERS_PER_SLOT", 20),
		Timeout:        getDuration("SIM_HTTP_TIMEOUT", 10*time.Second),
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.Secret == "" {
		return fmt.Errorf("AUTH_DEV_SECRET is required; the server must accept dev tokens")
	}
	if cfg.Slots <= 0 {
		return fmt.Errorf("SIM_SLOTS must be > 0")
	}
	if cfg.BookersPerSlot < 2 {
		return fmt.Errorf("SIM_BOOKERS_PER_SLOT must be >= 2")
	}
	return nil
}

func (s *Simulator) token(uid string) string {
	tok, err := auth.MakeDevToken(uid, uid+"@sim.elumia.local", s.config.Secret, time.Hour)
	if err != nil {
		s.log.Fatal().Err(err).Msg("mint dev token")
	}
	return tok
}

func (s *Simulator) call(ctx context.Context, method, path, uid string, body any) (int, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, &buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(uid))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, data, err
}

type professionalView struct {
	FirebaseUID  string `json:"firebaseUid"`
	Availability []struct {
		ID       string `json:"id"`
		IsBooked bool   `json:"isBooked"`
	} `json:"availability"`
}

func (s *Simulator) loadTargets(ctx context.Context) ([]target, error) {
	status, body, err := s.call(ctx, http.MethodGet, "/api/professionals", "", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("list professionals: status %d", status)
	}

	var profiles []professionalView
	if err := json.Unmarshal(body, &profiles); err != nil {
		return nil, fmt.Errorf("decode professionals: %w", err)
	}

	var out []target
	for _, p := range profiles {
		for _, slot := range p.Availability {
			if slot.IsBooked {
				continue
			}
			out = append(out, target{ProfessionalUID: p.FirebaseUID, SlotID: slot.ID})
			if len(out) == s.config.Slots {
				return out, nil
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no free slots; run the seed command first")
	}
	return out, nil
}

func (s *Simulator) registerPatients(ctx context.Context, n int) ([]string, error) {
	uids := make([]string, n)
	for i := range uids {
		uid := fmt.Sprintf("sim-patient-%03d", i)
		status, body, err := s.call(ctx, http.MethodPost, "/api/auth/register-profile", uid, map[string]string{"role": "patient"})
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK && status != http.StatusCreated {
			return nil, fmt.Errorf("register %s: status %d: %s", uid, status, body)
		}
		uids[i] = uid
	}
	return uids, nil
}

// contest fires one booking per patient at the same slot, released
// together.
func (s *Simulator) contest(ctx context.Context, t target, patients []string) *slotResult {
	res := &slotResult{target: t}
	startGate := make(chan struct{})

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, uid := range patients {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			<-startGate

			start := time.Now()
			status, body, err := s.call(ctx, http.MethodPost, "/api/appointments/book", uid, map[string]string{
				"professionalId": t.ProfessionalUID,
				"slotId":         t.SlotID,
				"notes":          "load test booking",
			})
			latency := time.Since(start)

			switch {
			case err != nil:
				atomic.AddInt64(&res.errors, 1)
				s.booking.Record(latency, false, false)
			case status == http.StatusCreated:
				atomic.AddInt64(&res.successes, 1)
				s.booking.Record(latency, true, false)

				var out struct {
					Appointment struct {
						ID string `json:"id"`
					} `json:"appointment"`
				}
				if json.Unmarshal(body, &out) == nil {
					mu.Lock()
					res.appointmentID = out.Appointment.ID
					mu.Unlock()
				}
			case status == http.StatusConflict:
				atomic.AddInt64(&res.conflicts, 1)
				s.booking.Record(latency, false, true)
			default:
				atomic.AddInt64(&res.errors, 1)
				s.booking.Record(latency, false, false)
				s.log.Warn().Int("status", status).Str("slot_id", t.SlotID).Msg("unexpected booking response")
			}
		}(uid)
	}

	close(startGate)
	wg.Wait()
	return res
}

// decideAndVerify confirms even and rejects odd winners, then checks the
// public availability reflects each decision.
func (s *Simulator) decideAndVerify(ctx context.Context) {
	for i, res := range s.results {
		if res.appointmentID == "" {
			continue
		}
		status := "confirmed"
		if i%2 == 1 {
			status = "rejected"
		}

		start := time.Now()
		code, _, err := s.call(ctx, http.MethodPut, "/api/appointments/"+res.appointmentID+"/status", res.ProfessionalUID,
			map[string]string{"status": status})
		s.decision.Record(time.Since(start), err == nil && code == http.StatusOK, code == http.StatusConflict)
		if err != nil || code != http.StatusOK {
			s.log.Warn().Err(err).Int("status", code).Str("appointment_id", res.appointmentID).Msg("decision failed")
			continue
		}

		booked, err := s.slotBooked(ctx, res.target)
		if err != nil {
			s.log.Warn().Err(err).Str("slot_id", res.SlotID).Msg("availability check failed")
			continue
		}
		if booked != (status == "confirmed") {
			s.log.Error().Str("slot_id", res.SlotID).Str("decision", status).Bool("is_booked", booked).Msg("slot state does not match decision")
		}
	}
}

func (s *Simulator) slotBooked(ctx context.Context, t target) (bool, error) {
	code, body, err := s.call(ctx, http.MethodGet, "/api/professionals/"+t.ProfessionalUID+"/availability", "", nil)
	if err != nil {
		return false, err
	}
	if code != http.StatusOK {
		return false, fmt.Errorf("availability: status %d", code)
	}
	var slots []struct {
		ID       string `json:"id"`
		IsBooked bool   `json:"isBooked"`
	}
	if err := json.Unmarshal(body, &slots); err != nil {
		return false, err
	}
	for _, sl := range slots {
		if sl.ID == t.SlotID {
			return sl.IsBooked, nil
		}
	}
	return false, fmt.Errorf("slot %s no longer listed", t.SlotID)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Slots contested: %d\n", len(s.results))
	fmt.Printf("Bookers per slot: %d\n", s.config.BookersPerSlot)
	fmt.Println()

	violations := 0
	for _, res := range s.results {
		marker := ""
		if res.successes > 1 {
			violations++
			marker = "  <-- DOUBLE BOOKED"
		}
		fmt.Printf("  slot %s  success=%d conflict=%d error=%d%s\n", res.SlotID, res.successes, res.conflicts, res.errors, marker)
	}
	fmt.Println()

	printOperationReport("Booking", &s.booking)
	printOperationReport("Decision", &s.decision)

	if violations > 0 {
		fmt.Printf("FAIL: %d slot(s) accepted more than one booking\n", violations)
		os.Exit(1)
	}
	fmt.Println("OK: every slot accepted at most one booking")
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errs := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if errs > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errs, float64(errs)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

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
