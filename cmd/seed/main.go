// seed inserts a test user, a workflow and a few schedules into the local
// dev database, then prints a JWT for calling the API.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/ErlanBelekov/workflow-scheduler/config"
	"github.com/ErlanBelekov/workflow-scheduler/internal/domain"
	"github.com/ErlanBelekov/workflow-scheduler/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/workflow-scheduler/internal/schedule"
	"github.com/golang-jwt/jwt/v5"
)

const (
	seedUserID     = "seed-user"
	seedEmail      = "seed@test.local"
	seedWorkflowID = "seed-workflow"
)

func intp(n int) *int { return &n }

var seeds = []struct {
	blockID string
	values  schedule.Values
}{
	{"every-5-minutes", schedule.Values{ScheduleType: schedule.TypeMinutes, MinutesInterval: intp(5)}},
	{"hourly-at-zero", schedule.Values{ScheduleType: schedule.TypeHourly, HourlyMinute: intp(0)}},
	{"weekdays-nine-ny", schedule.Values{
		ScheduleType:   schedule.TypeCustom,
		CronExpression: "0 9 * * 1-5",
		Timezone:       "America/New_York",
	}},
	{"monthly-last-day", schedule.Values{
		ScheduleType: schedule.TypeMonthly,
		MonthlyDay:   intp(31),
		MonthlyTime:  schedule.TimeOfDay{Hour: intp(23), Minute: intp(0)},
		Timezone:     "Asia/Tokyo",
	}},
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO "user" (id, email) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email`,
		seedUserID, seedEmail,
	); err != nil {
		log.Fatalf("upsert user: %v", err)
	}

	if _, err := pool.Exec(ctx, `
		INSERT INTO workflow (id, user_id, name) VALUES ($1, $2, 'Seed workflow')
		ON CONFLICT (id) DO NOTHING`,
		seedWorkflowID, seedUserID,
	); err != nil {
		log.Fatalf("insert workflow: %v", err)
	}

	repo := postgres.NewScheduleRepository(pool, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	now := time.Now()

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  User:     %s (%s)\n", seedUserID, seedEmail)
	fmt.Printf("  Workflow: %s\n", seedWorkflowID)
	fmt.Println()
	fmt.Println("  Schedules:")

	for _, seed := range seeds {
		plan, err := schedule.Compute(seed.values, now)
		if err != nil {
			log.Fatalf("compute %s: %v", seed.blockID, err)
		}
		saved, err := repo.Upsert(ctx, &domain.Schedule{
			WorkflowID:     seedWorkflowID,
			BlockID:        seed.blockID,
			CronExpression: plan.CronExpression,
			Timezone:       plan.Timezone,
			TriggerType:    domain.TriggerTypeSchedule,
			NextRunAt:      plan.NextRunAt,
			Status:         domain.ScheduleActive,
		})
		if err != nil {
			log.Fatalf("upsert %s: %v", seed.blockID, err)
		}
		fmt.Printf("    %-18s %-14q %-18s next %s\n",
			seed.blockID, saved.CronExpression, saved.Timezone, saved.NextRunAt.Format(time.RFC3339))
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": seedUserID,
		"iat": now.Unix(),
		"exp": now.Add(24 * time.Hour).Unix(),
	}).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		log.Fatalf("sign jwt: %v", err)
	}

	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Printf("    export JWT=%s\n", token)
	fmt.Println()
	fmt.Printf("    curl -s 'http://localhost:%s/schedules?workflowId=%s&blockId=hourly-at-zero' \\\n", cfg.Port, seedWorkflowID)
	fmt.Println("      -H \"Authorization: Bearer $JWT\"")
	fmt.Println()
	fmt.Println("  Save a trigger block:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:%s/schedules \\\n", cfg.Port)
	fmt.Println("      -H \"Authorization: Bearer $JWT\" -H 'Content-Type: application/json' \\")
	fmt.Printf("      -d '{\"workflowId\":\"%s\",\"state\":{\"blocks\":{\"t1\":{\"type\":\"schedule\",\"subBlocks\":{\n", seedWorkflowID)
	fmt.Println("            \"scheduleType\":{\"value\":\"weekly\"},\"weeklyDay\":{\"value\":\"MON\"},")
	fmt.Println("            \"weeklyTime\":{\"value\":\"09:00\"},\"timezone\":{\"value\":\"Europe/Berlin\"}}}}}}'")
	fmt.Println()
	fmt.Println("  The scheduler process triggers due schedules against EXECUTE_BASE_URL.")
}
