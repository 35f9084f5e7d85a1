// Package store loads platform snapshot relations from a SQL database
// into the in-memory model the analytics engines consume. Postgres
// serves production snapshots, SQLite serves local fixtures.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mentorlane/insights/pkg/models"
)

// Store reads snapshot relations from an open database.
type Store struct {
	db *sql.DB
}

// Open connects to the snapshot database. driver is "postgres" or
// "sqlite3".
func Open(driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping snapshot db: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle, mainly for tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads every snapshot relation into memory.
func (s *Store) Load(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{}

	loaders := []func(context.Context, *models.Snapshot) error{
		s.loadUsers,
		s.loadRoles,
		s.loadCourses,
		s.loadModules,
		s.loadAssignments,
		s.loadSubmissions,
		s.loadAgreements,
		s.loadSessions,
		s.loadSessionAssignments,
		s.loadAttendance,
		s.loadProducts,
		s.loadProductAssets,
		s.loadProductAccesses,
		s.loadPayments,
		s.loadCommitments,
		s.loadPaymentAgreements,
		s.loadExceptions,
		s.loadCustomProducts,
		s.loadForms,
		s.loadFormSubmissions,
		s.loadLogins,
	}
	for _, load := range loaders {
		if err := load(ctx, snap); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// rowView exposes one scanned row by case-insensitive column name.
type rowView struct {
	idx map[string]int
	raw []any
}

func (r *rowView) value(col string) any {
	i, ok := r.idx[strings.ToLower(col)]
	if !ok {
		return nil
	}
	return *(r.raw[i].(*any))
}

func (r *rowView) String(col string) string {
	switch v := r.value(col).(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func (r *rowView) Float(col string) *float64 {
	switch v := r.value(col).(type) {
	case nil:
		return nil
	case float64:
		return &v
	case int64:
		f := float64(v)
		return &f
	case []byte:
		if f, err := strconv.ParseFloat(string(v), 64); err == nil {
			return &f
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}

func (r *rowView) Int(col string) *int {
	if f := r.Float(col); f != nil {
		n := int(*f)
		return &n
	}
	return nil
}

// timeLayouts covers Postgres timestamps and the text forms SQLite
// stores.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (r *rowView) Time(col string) *time.Time {
	switch v := r.value(col).(type) {
	case nil:
		return nil
	case time.Time:
		return &v
	case []byte:
		return parseTime(string(v))
	case string:
		return parseTime(v)
	}
	return nil
}

func parseTime(s string) *time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func (r *rowView) Bool(col string) bool {
	switch v := r.value(col).(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case []byte:
		return string(v) == "true" || string(v) == "1" || string(v) == "t"
	case string:
		return v == "true" || v == "1" || v == "t"
	}
	return false
}

// forEachRow scans a whole relation, checking required columns before
// the first row.
func (s *Store) forEachRow(ctx context.Context, relation string, required []string, visit func(*rowView)) error {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+relation) //nolint:gosec // relation names are compile-time constants
	if err != nil {
		return &MissingRelationError{Relation: relation, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("columns of %s: %w", relation, err)
	}
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[strings.ToLower(c)] = i
	}
	for _, col := range required {
		if _, ok := idx[strings.ToLower(col)]; !ok {
			return &MissingColumnError{Relation: relation, Column: col}
		}
	}

	for rows.Next() {
		raw := make([]any, len(cols))
		for i := range raw {
			raw[i] = new(any)
		}
		if err := rows.Scan(raw...); err != nil {
			return fmt.Errorf("scan %s: %w", relation, err)
		}
		visit(&rowView{idx: idx, raw: raw})
	}
	return rows.Err()
}

func (s *Store) loadUsers(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "users", []string{"id"}, func(r *rowView) {
		snap.Users = append(snap.Users, models.User{
			ID:         r.String("id"),
			RoleID:     r.String("roleId"),
			Email:      r.String("email"),
			CreatedAt:  r.Time("createdAt"),
			UpdatedAt:  r.Time("updatedAt"),
			LastActive: r.Time("lastActive"),
		})
	})
}

func (s *Store) loadRoles(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "roles", []string{"id", "name"}, func(r *rowView) {
		snap.Roles = append(snap.Roles, models.Role{ID: r.String("id"), Name: r.String("name")})
	})
}

func (s *Store) loadCourses(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "courses", []string{"id"}, func(r *rowView) {
		snap.Courses = append(snap.Courses, models.Course{ID: r.String("id"), Title: r.String("title")})
	})
}

func (s *Store) loadModules(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "modules", []string{"id", "courseId"}, func(r *rowView) {
		snap.Modules = append(snap.Modules, models.Module{ID: r.String("id"), CourseID: r.String("courseId")})
	})
}

func (s *Store) loadAssignments(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "assignments", []string{"id", "moduleId"}, func(r *rowView) {
		snap.Assignments = append(snap.Assignments, models.Assignment{
			ID:          r.String("id"),
			ModuleID:    r.String("moduleId"),
			PublishedAt: r.Time("publishedAt"),
			CreatedAt:   r.Time("createdAt"),
			DueDate:     r.Time("dueDate"),
		})
	})
}

func (s *Store) loadSubmissions(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "assignment_submissions", []string{"assignmentId", "studentId"}, func(r *rowView) {
		snap.AssignmentSubmissions = append(snap.AssignmentSubmissions, models.AssignmentSubmission{
			ID:           r.String("id"),
			AssignmentID: r.String("assignmentId"),
			StudentID:    r.String("studentId"),
			SubmittedAt:  r.Time("submittedAt"),
		})
	})
}

func (s *Store) loadAgreements(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "assignment_user_agreements", []string{"assignmentId", "studentId"}, func(r *rowView) {
		snap.AssignmentAgreements = append(snap.AssignmentAgreements, models.AssignmentAgreement{
			ID:           r.String("id"),
			AssignmentID: r.String("assignmentId"),
			StudentID:    r.String("studentId"),
			AgreedAt:     r.Time("agreedAt"),
		})
	})
}

func (s *Store) loadSessions(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "live_sessions", []string{"id"}, func(r *rowView) {
		snap.LiveSessions = append(snap.LiveSessions, models.LiveSession{
			ID:          r.String("id"),
			Title:       r.String("title"),
			ScheduledAt: r.Time("scheduledAt"),
			CreatedByID: r.String("createdById"),
		})
	})
}

func (s *Store) loadSessionAssignments(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "live_session_assigned_students", []string{"liveSessionId", "userId"}, func(r *rowView) {
		snap.SessionAssignments = append(snap.SessionAssignments, models.SessionAssignment{
			LiveSessionID: r.String("liveSessionId"),
			UserID:        r.String("userId"),
		})
	})
}

func (s *Store) loadAttendance(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "live_session_attendance", []string{"liveSessionId", "studentId"}, func(r *rowView) {
		snap.SessionAttendance = append(snap.SessionAttendance, models.SessionAttendance{
			LiveSessionID: r.String("liveSessionId"),
			StudentID:     r.String("studentId"),
			AttendedAt:    r.Time("attendedAt"),
		})
	})
}

func (s *Store) loadProducts(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "products", []string{"id"}, func(r *rowView) {
		snap.Products = append(snap.Products, models.Product{
			ID:            r.String("id"),
			Title:         r.String("title"),
			Price:         r.Float("price"),
			DiscountPrice: r.Float("discountPrice"),
		})
	})
}

func (s *Store) loadProductAssets(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "product_assets", []string{"productId", "courseId"}, func(r *rowView) {
		snap.ProductAssets = append(snap.ProductAssets, models.ProductAsset{
			ProductID: r.String("productId"),
			CourseID:  r.String("courseId"),
		})
	})
}

func (s *Store) loadProductAccesses(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "product_accesses", []string{"userId", "productId"}, func(r *rowView) {
		snap.ProductAccesses = append(snap.ProductAccesses, models.ProductAccess{
			UserID:    r.String("userId"),
			ProductID: r.String("productId"),
			StartDate: r.Time("startDate"),
			CreatedAt: r.Time("createdAt"),
			IsActive:  r.Bool("isActive"),
		})
	})
}

func (s *Store) loadPayments(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "payments", []string{"id", "userId", "productId", "status"}, func(r *rowView) {
		var amount float64
		if f := r.Float("amount"); f != nil {
			amount = *f
		}
		snap.Payments = append(snap.Payments, models.Payment{
			ID:                r.String("id"),
			UserID:            r.String("userId"),
			ProductID:         r.String("productId"),
			Status:            r.String("status"),
			Amount:            amount,
			PaidAt:            r.Time("paidAt"),
			CreatedAt:         r.Time("createdAt"),
			DueDate:           r.Time("dueDate"),
			TotalInstallments: r.Int("totalInstallments"),
		})
	})
}

func (s *Store) loadCommitments(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "payment_commitments", []string{"id", "userId", "status"}, func(r *rowView) {
		var amount float64
		if f := r.Float("amount"); f != nil {
			amount = *f
		}
		snap.PaymentCommitments = append(snap.PaymentCommitments, models.PaymentCommitment{
			ID:                 r.String("id"),
			UserID:             r.String("userId"),
			ProductID:          r.String("productId"),
			PaymentAgreementID: r.String("paymentAgreementId"),
			Status:             r.String("status"),
			Amount:             amount,
		})
	})
}

func (s *Store) loadPaymentAgreements(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "payment_agreements", []string{"id", "userId"}, func(r *rowView) {
		snap.PaymentAgreements = append(snap.PaymentAgreements, models.PaymentAgreement{
			ID:     r.String("id"),
			UserID: r.String("userId"),
			Reason: r.String("reason"),
		})
	})
}

func (s *Store) loadExceptions(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "payment_exceptions", []string{"id", "userId"}, func(r *rowView) {
		snap.PaymentExceptions = append(snap.PaymentExceptions, models.PaymentException{
			ID:        r.String("id"),
			UserID:    r.String("userId"),
			Reason:    r.String("reason"),
			StartDate: r.Time("startDate"),
			EndDate:   r.Time("endDate"),
		})
	})
}

func (s *Store) loadCustomProducts(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "custom_products", []string{"userId"}, func(r *rowView) {
		snap.CustomProducts = append(snap.CustomProducts, models.CustomProduct{
			UserID:      r.String("userId"),
			ProductID:   r.String("productId"),
			PaymentType: r.String("paymentType"),
			TotalPrice:  r.Float("totalPrice"),
		})
	})
}

func (s *Store) loadForms(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "form", []string{"id"}, func(r *rowView) {
		snap.Forms = append(snap.Forms, models.Form{ID: r.String("id"), Title: r.String("title")})
	})
}

func (s *Store) loadFormSubmissions(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "form_submission", []string{"id", "formId"}, func(r *rowView) {
		snap.FormSubmissions = append(snap.FormSubmissions, models.FormSubmission{
			ID:          r.String("id"),
			FormID:      r.String("formId"),
			SubmittedAt: r.Time("submittedAt"),
			Data:        r.String("data"),
		})
	})
}

func (s *Store) loadLogins(ctx context.Context, snap *models.Snapshot) error {
	return s.forEachRow(ctx, "login_history", []string{"userId", "status"}, func(r *rowView) {
		snap.LoginHistory = append(snap.LoginHistory, models.LoginEvent{
			UserID:    r.String("userId"),
			Status:    r.String("status"),
			Timestamp: r.Time("timestamp"),
		})
	})
}
