// Package testdata generates realistic platform snapshots for tests
// and local pipeline runs without touching a production database.
package testdata

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/mentorlane/insights/pkg/models"
)

// SnapshotConfig configures snapshot generation parameters
type SnapshotConfig struct {
	Seed            int64
	Students        int
	Admins          int
	Courses         int
	LiveSessions    int
	Products        int
	Leads           int
	AttendChance    float64 // 0.0-1.0 (probability an assigned student attends)
	PurchaseChance  float64 // probability an attendee buys a product
	PlanChance      float64 // probability a purchase runs on a payment plan
	HorizonDays     int     // how far back generated activity reaches
	Anchor          time.Time
}

// DefaultSnapshotConfig returns a mid-sized cohort ending at anchor.
func DefaultSnapshotConfig(anchor time.Time) SnapshotConfig {
	return SnapshotConfig{
		Seed:           1,
		Students:       40,
		Admins:         3,
		Courses:        4,
		LiveSessions:   6,
		Products:       8,
		Leads:          15,
		AttendChance:   0.7,
		PurchaseChance: 0.4,
		PlanChance:     0.3,
		HorizonDays:    90,
		Anchor:         anchor,
	}
}

var sessionTitles = []string{
	"Open Day: Breaking Into Tech",
	"Cybersecurity Career Webinar",
	"Intro to Cloud Engineering",
	"Data Analytics Masterclass",
	"Mentor Office Hours",
	"Capstone Review Workshop",
	"Orientation Week Kickoff",
	"Mock Interview Clinic",
}

var productTitles = []string{
	"Career Starter Trial",
	"Intro Webinar Pass",
	"Cybersecurity Bootcamp",
	"Data Analytics Program",
	"Cloud Engineering Track",
	"1:1 Mentorship Program",
	"Premium Mentorship Bundle",
	"Interview Prep Sprint",
}

var careerGoals = []string{
	"Become a SOC analyst within a year",
	"Move from accounting into data analytics",
	"Land a cloud engineering role at a product company",
	"Transition into cybersecurity from IT support",
	"Get my first developer job",
}

// Generator produces snapshots from a seeded source so runs are
// reproducible.
type Generator struct {
	cfg  SnapshotConfig
	fake *gofakeit.Faker
	rng  *rand.Rand
}

// NewGenerator creates a generator seeded from cfg.Seed.
func NewGenerator(cfg SnapshotConfig) *Generator {
	return &Generator{
		cfg:  cfg,
		fake: gofakeit.New(cfg.Seed),
		rng:  rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate builds one internally consistent snapshot: every payment,
// access and attendance row references a generated user and product.
func (g *Generator) Generate() *models.Snapshot {
	snap := &models.Snapshot{
		Roles: []models.Role{
			{ID: "1", Name: "admin"},
			{ID: "2", Name: "student"},
		},
	}

	for i := 0; i < g.cfg.Admins; i++ {
		snap.Users = append(snap.Users, g.user(fmt.Sprintf("admin-%d", i+1), "1"))
	}
	for i := 0; i < g.cfg.Students; i++ {
		snap.Users = append(snap.Users, g.user(fmt.Sprintf("user-%d", i+1), "2"))
	}

	g.courses(snap)
	g.products(snap)
	g.liveSessions(snap)
	g.purchases(snap)
	g.leads(snap)
	return snap
}

func (g *Generator) user(id, roleID string) models.User {
	created := g.pastTime(g.cfg.HorizonDays)
	return models.User{
		ID:        id,
		RoleID:    roleID,
		Email:     g.fake.Email(),
		CreatedAt: &created,
	}
}

func (g *Generator) courses(snap *models.Snapshot) {
	for i := 0; i < g.cfg.Courses; i++ {
		courseID := fmt.Sprintf("course-%d", i+1)
		snap.Courses = append(snap.Courses, models.Course{
			ID:    courseID,
			Title: g.fake.JobTitle() + " Track",
		})
		moduleID := fmt.Sprintf("module-%d", i+1)
		snap.Modules = append(snap.Modules, models.Module{ID: moduleID, CourseID: courseID})

		for j := 0; j < 3; j++ {
			published := g.pastTime(g.cfg.HorizonDays)
			due := published.AddDate(0, 0, 7)
			snap.Assignments = append(snap.Assignments, models.Assignment{
				ID:          fmt.Sprintf("assignment-%d-%d", i+1, j+1),
				ModuleID:    moduleID,
				PublishedAt: &published,
				DueDate:     &due,
			})
		}
	}
}

func (g *Generator) products(snap *models.Snapshot) {
	for i := 0; i < g.cfg.Products; i++ {
		title := productTitles[i%len(productTitles)]
		price := float64(g.rng.Intn(50)+1) * 100
		snap.Products = append(snap.Products, models.Product{
			ID:    fmt.Sprintf("product-%d", i+1),
			Title: title,
			Price: &price,
		})
		if len(snap.Courses) > 0 {
			snap.ProductAssets = append(snap.ProductAssets, models.ProductAsset{
				ProductID: fmt.Sprintf("product-%d", i+1),
				CourseID:  snap.Courses[i%len(snap.Courses)].ID,
			})
		}
	}
}

func (g *Generator) liveSessions(snap *models.Snapshot) {
	for i := 0; i < g.cfg.LiveSessions; i++ {
		scheduled := g.pastTime(g.cfg.HorizonDays)
		sessionID := fmt.Sprintf("session-%d", i+1)
		snap.LiveSessions = append(snap.LiveSessions, models.LiveSession{
			ID:          sessionID,
			Title:       sessionTitles[i%len(sessionTitles)],
			ScheduledAt: &scheduled,
			CreatedByID: "admin-1",
		})

		for s := 0; s < g.cfg.Students; s++ {
			if g.rng.Float64() > 0.5 {
				continue
			}
			userID := fmt.Sprintf("user-%d", s+1)
			snap.SessionAssignments = append(snap.SessionAssignments, models.SessionAssignment{
				LiveSessionID: sessionID,
				UserID:        userID,
			})
			if g.rng.Float64() < g.cfg.AttendChance {
				at := scheduled
				snap.SessionAttendance = append(snap.SessionAttendance, models.SessionAttendance{
					LiveSessionID: sessionID,
					StudentID:     userID,
					AttendedAt:    &at,
				})
			}
		}
	}
}

func (g *Generator) purchases(snap *models.Snapshot) {
	attended := map[string]time.Time{}
	for _, a := range snap.SessionAttendance {
		if a.AttendedAt == nil {
			continue
		}
		if first, ok := attended[a.StudentID]; !ok || a.AttendedAt.Before(first) {
			attended[a.StudentID] = *a.AttendedAt
		}
	}

	for s := 0; s < g.cfg.Students; s++ {
		userID := fmt.Sprintf("user-%d", s+1)
		firstSeen, ok := attended[userID]
		if !ok {
			continue
		}
		if g.rng.Float64() >= g.cfg.PurchaseChance {
			continue
		}
		product := snap.Products[g.rng.Intn(len(snap.Products))]
		paid := firstSeen.AddDate(0, 0, g.rng.Intn(21)+1)
		if paid.After(g.cfg.Anchor) {
			paid = g.cfg.Anchor
		}
		payment := models.Payment{
			ID:        fmt.Sprintf("payment-%s", userID),
			UserID:    userID,
			ProductID: product.ID,
			Status:    models.PaymentSucceeded,
			Amount:    *product.Price,
			PaidAt:    &paid,
		}
		snap.Payments = append(snap.Payments, payment)
		snap.ProductAccesses = append(snap.ProductAccesses, models.ProductAccess{
			UserID:    userID,
			ProductID: product.ID,
			StartDate: &paid,
			IsActive:  true,
		})
		for d := 0; d < 5; d++ {
			at := paid.AddDate(0, 0, g.rng.Intn(30))
			if at.After(g.cfg.Anchor) {
				continue
			}
			snap.LoginHistory = append(snap.LoginHistory, models.LoginEvent{
				UserID:    userID,
				Status:    models.LoginSuccess,
				Timestamp: &at,
			})
		}

		if g.rng.Float64() < g.cfg.PlanChance {
			agreementID := fmt.Sprintf("agreement-%s", userID)
			snap.PaymentAgreements = append(snap.PaymentAgreements, models.PaymentAgreement{
				ID:     agreementID,
				UserID: userID,
				Reason: "installments",
			})
			installments := g.rng.Intn(3) + 2
			for n := 0; n < installments; n++ {
				snap.PaymentCommitments = append(snap.PaymentCommitments, models.PaymentCommitment{
					ID:                 fmt.Sprintf("commitment-%s-%d", userID, n+1),
					UserID:             userID,
					ProductID:          product.ID,
					PaymentAgreementID: agreementID,
					Status:             models.PaymentSucceeded,
					Amount:             payment.Amount / float64(installments),
				})
			}
		}
	}
}

func (g *Generator) leads(snap *models.Snapshot) {
	snap.Forms = append(snap.Forms, models.Form{ID: "form-1", Title: "Career Intake"})

	for i := 0; i < g.cfg.Leads; i++ {
		submitted := g.pastTime(g.cfg.HorizonDays)
		payload := map[string]any{
			"contactInfo": map[string]any{
				"email":              g.fake.Email(),
				"firstname":          g.fake.FirstName(),
				"lastname":           g.fake.LastName(),
				"yourwhatsappnumber": g.fake.Phone(),
			},
			"sections": []map[string]any{
				{
					"fields": map[string]any{
						"What do you precisely need today?":             g.fake.RandomString([]string{"A course to learn cybersecurity", "Mentorship and career guidance", "Interview prep for cloud roles"}),
						"How much time can you invest weekly?":          fmt.Sprintf("%d hours", g.rng.Intn(30)+1),
						"Are you transitioning careers?":                g.fake.RandomString([]string{"Yes", "No", "Maybe"}),
						"What is your ultimate career goal?":            careerGoals[i%len(careerGoals)],
						"Describe your current skills":                  g.fake.JobDescriptor() + " " + g.fake.JobTitle(),
						"Have you researched job opportunities?":        g.fake.RandomString([]string{"Yes", "Not yet"}),
						"Are you financially and mentally prepared?":    g.fake.RandomString([]string{"Yes", "No"}),
						"What are your top 3 dream roles?":              g.fake.JobTitle(),
					},
				},
			},
		}
		data, _ := json.Marshal(payload)
		snap.FormSubmissions = append(snap.FormSubmissions, models.FormSubmission{
			ID:          fmt.Sprintf("submission-%d", i+1),
			FormID:      "form-1",
			SubmittedAt: &submitted,
			Data:        string(data),
		})
	}
}

// pastTime returns a UTC time up to days before the anchor.
func (g *Generator) pastTime(days int) time.Time {
	offset := time.Duration(g.rng.Intn(days*24)) * time.Hour
	return g.cfg.Anchor.Add(-offset).UTC()
}
