package models

import "time"

// Payment statuses as they appear in the platform snapshots.
const (
	PaymentSucceeded = "succeeded"
	PaymentPending   = "pending"
	PaymentNotPaid   = "not_paid"

	LoginSuccess = "success"
)

// User is an immutable platform account snapshot row.
type User struct {
	ID         string
	RoleID     string
	Email      string
	CreatedAt  *time.Time
	UpdatedAt  *time.Time
	LastActive *time.Time
}

// Role maps role identifiers to names ("student", "admin", ...).
type Role struct {
	ID   string
	Name string
}

// Course is a course catalog row.
type Course struct {
	ID    string
	Title string
}

// Module links assignments to courses.
type Module struct {
	ID       string
	CourseID string
}

// Assignment is a course assignment row.
type Assignment struct {
	ID          string
	ModuleID    string
	PublishedAt *time.Time
	CreatedAt   *time.Time
	DueDate     *time.Time
}

// AssignmentSubmission records a student submitting an assignment.
type AssignmentSubmission struct {
	ID           string
	AssignmentID string
	StudentID    string
	SubmittedAt  *time.Time
}

// AssignmentAgreement records a student agreeing to an assignment contract.
type AssignmentAgreement struct {
	ID           string
	AssignmentID string
	StudentID    string
	AgreedAt     *time.Time
}

// LiveSession is a scheduled live session row.
type LiveSession struct {
	ID          string
	Title       string
	ScheduledAt *time.Time
	CreatedByID string
}

// SessionAssignment marks a user as assigned to a live session.
type SessionAssignment struct {
	LiveSessionID string
	UserID        string
}

// SessionAttendance records a student attending a live session.
type SessionAttendance struct {
	LiveSessionID string
	StudentID     string
	AttendedAt    *time.Time
}

// Product is a sellable offering row.
type Product struct {
	ID            string
	Title         string
	Price         *float64
	DiscountPrice *float64
}

// ProductAsset links products to the courses they grant.
type ProductAsset struct {
	ProductID string
	CourseID  string
}

// ProductAccess marks a user's access to a product, independent of payment.
type ProductAccess struct {
	UserID    string
	ProductID string
	StartDate *time.Time
	CreatedAt *time.Time
	IsActive  bool
}

// Payment is a payment event row. PaidAt may be absent for pending or
// imported rows; attribution falls back to CreatedAt.
type Payment struct {
	ID                string
	UserID            string
	ProductID         string
	Status            string
	Amount            float64
	PaidAt            *time.Time
	CreatedAt         *time.Time
	DueDate           *time.Time
	TotalInstallments *int
}

// PaymentCommitment is a scheduled installment under a payment agreement.
type PaymentCommitment struct {
	ID                 string
	UserID             string
	ProductID          string
	PaymentAgreementID string
	Status             string
	Amount             float64
}

// PaymentAgreement is a negotiated payment plan.
type PaymentAgreement struct {
	ID     string
	UserID string
	Reason string
}

// PaymentException is a pause or waiver on a payment plan.
type PaymentException struct {
	ID        string
	UserID    string
	Reason    string
	StartDate *time.Time
	EndDate   *time.Time
}

// CustomProduct is a bespoke offering sold off-catalog.
type CustomProduct struct {
	UserID      string
	ProductID   string
	PaymentType string
	TotalPrice  *float64
}

// Form is an intake form definition.
type Form struct {
	ID    string
	Title string
}

// FormSubmission carries the raw JSON payload of one intake submission.
type FormSubmission struct {
	ID          string
	FormID      string
	SubmittedAt *time.Time
	Data        string
}

// LoginEvent is one login attempt from the login history relation.
type LoginEvent struct {
	UserID    string
	Status    string
	Timestamp *time.Time
}

// EffectivePaidAt returns PaidAt, falling back to CreatedAt. Nil when
// neither is set; such payments carry no usable timestamp and are
// excluded from time-based joins.
func (p Payment) EffectivePaidAt() *time.Time {
	if p.PaidAt != nil {
		return p.PaidAt
	}
	return p.CreatedAt
}

// AccessTime returns StartDate, falling back to CreatedAt.
func (a ProductAccess) AccessTime() *time.Time {
	if a.StartDate != nil {
		return a.StartDate
	}
	return a.CreatedAt
}

// EffectivePublishedAt returns PublishedAt, falling back to CreatedAt.
func (a Assignment) EffectivePublishedAt() *time.Time {
	if a.PublishedAt != nil {
		return a.PublishedAt
	}
	return a.CreatedAt
}
