package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendaflow/clinic-scheduler/internal/db"
	"github.com/agendaflow/clinic-scheduler/internal/scheduling"
	"github.com/agendaflow/clinic-scheduler/internal/tenant"
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

	pool, err := db.ConnectPostgres(ctx, dsn, db.PoolOptions{})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	seedCtx := context.Background()

	if err := seedTemplates(seedCtx, pool); err != nil {
		log.Fatalf("seed notification templates: %v", err)
	}

	clinics := []*tenant.Tenant{
		{
			ID:          uuid.New(),
			Name:        "Clinica Central",
			Slug:        "default",
			TablePrefix: "clinica_central",
			Address:     gofakeit.Street() + ", " + gofakeit.City(),
			Phone:       gofakeit.Phone(),
			Active:      true,
		},
		{
			ID:          uuid.New(),
			Name:        "Clinica Sul",
			Slug:        "clinica-sul",
			TablePrefix: "clinica_sul",
			Address:     gofakeit.Street() + ", " + gofakeit.City(),
			Phone:       gofakeit.Phone(),
			Active:      true,
		},
	}

	store := tenant.NewPgStore(pool)
	prov := tenant.NewProvisioner(pool)

	for _, t := range clinics {
		if err := store.Insert(seedCtx, t); err != nil {
			log.Fatalf("insert tenant %s: %v", t.Slug, err)
		}
		if err := prov.Provision(seedCtx, t); err != nil {
			log.Fatalf("provision tenant %s: %v", t.Slug, err)
		}
		part := tenant.NewPartition(t)
		if err := seedPartition(seedCtx, pool, part); err != nil {
			log.Fatalf("seed tenant %s: %v", t.Slug, err)
		}
		log.Printf("tenant %s seeded", t.Slug)
	}

	log.Println("seed complete")
}

func seedTemplates(ctx context.Context, pool *pgxpool.Pool) error {
	templates := []struct {
		typ  string
		body string
	}{
		{"48h", "Ola {{.PatientName}}! Lembrete: sua consulta com {{.DoctorName}} ({{.ServiceName}}) e em {{.Date}} as {{.Time}} na {{.ClinicName}}."},
		{"24h", "Ola {{.PatientName}}! Sua consulta com {{.DoctorName}} e amanha, {{.Date}} as {{.Time}}. Endereco: {{.ClinicAddress}}."},
		{"2h", "Ola {{.PatientName}}! Sua consulta com {{.DoctorName}} e hoje as {{.Time}}. Ate logo!"},
		{"confirmacao", "{{.PatientName}}, sua consulta em {{.Date}} as {{.Time}} com {{.DoctorName}} esta confirmada. {{.ClinicName}} - {{.ClinicPhone}}"},
		{"cancelamento", "{{.PatientName}}, sua consulta de {{.Date}} as {{.Time}} com {{.DoctorName}} foi cancelada. Fale conosco: {{.ClinicPhone}}"},
	}

	for _, t := range templates {
		_, err := pool.Exec(ctx, `
			INSERT INTO notification_templates (id, type, subject, body, active)
			VALUES ($1, $2, '', $3, TRUE)
			ON CONFLICT (type) DO UPDATE SET body = EXCLUDED.body, active = TRUE
		`, uuid.New(), t.typ, t.body)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedPartition(ctx context.Context, pool *pgxpool.Pool, part tenant.Partition) error {
	specialties := []string{
		"Dermatologia",
		"Cardiologia",
		"Clinica Geral",
		"Ortopedia",
		"Pediatria",
	}
	insurers := []string{"Unimed", "Bradesco Saude", "SulAmerica", "Amil", "particular"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < 5; i++ {
		doctorID := uuid.New()
		template := weeklyTemplate()
		tmplJSON, err := json.Marshal(template)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, name, specialty, active, insurances, weekly_template, created_at, updated_at)
			VALUES ($1, $2, $3, TRUE, $4, $5, now(), now())
		`, part.Doctors()), doctorID, "Dr. "+gofakeit.Name(), specialties[i], insurers[:gofakeit.Number(1, len(insurers))], tmplJSON)
		if err != nil {
			return err
		}

		services := []struct {
			name     string
			price    int64
			duration int
		}{
			{"Consulta", 25000, 30},
			{"Retorno", 0, 20},
			{"Avaliacao completa", 45000, 60},
		}
		for _, svc := range services {
			_, err = tx.Exec(ctx, fmt.Sprintf(`
				INSERT INTO %s (id, doctor_id, name, price_cents, duration_minutes, online_bookable, active, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, TRUE, TRUE, now(), now())
			`, part.Services()), uuid.New(), doctorID, svc.name, svc.price, svc.duration)
			if err != nil {
				return err
			}
		}
	}

	for i := 0; i < 50; i++ {
		birth := gofakeit.DateRange(
			time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC),
		).Format("2006-01-02")

		_, err = tx.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, full_name, birth_date, phone, cell, insurance, created_at, updated_at)
			VALUES ($1, $2, $3::date, $4, $5, $6, now(), now())
		`, part.Patients()), uuid.New(), gofakeit.Name(), birth, gofakeit.Phone(), gofakeit.Phone(),
			insurers[gofakeit.Number(0, len(insurers)-1)])
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func weeklyTemplate() []scheduling.TemplateWindow {
	var windows []scheduling.TemplateWindow
	for wd := time.Monday; wd <= time.Friday; wd++ {
		windows = append(windows, scheduling.TemplateWindow{
			Weekday:     wd,
			Start:       "08:00",
			End:         "12:00",
			SlotMinutes: 30,
			Capacity:    1,
		})
		windows = append(windows, scheduling.TemplateWindow{
			Weekday:     wd,
			Start:       "14:00",
			End:         "18:00",
			SlotMinutes: 30,
			Capacity:    1,
			Biweekly:    wd == time.Friday,
		})
	}
	return windows
}
