package models

import "time"

// Snapshot holds one immutable set of platform relations. All derived
// tables are pure functions of a Snapshot; nothing in the pipeline
// mutates it.
type Snapshot struct {
	Users                 []User
	Roles                 []Role
	Courses               []Course
	Modules               []Module
	Assignments           []Assignment
	AssignmentSubmissions []AssignmentSubmission
	AssignmentAgreements  []AssignmentAgreement
	LiveSessions          []LiveSession
	SessionAssignments    []SessionAssignment
	SessionAttendance     []SessionAttendance
	Products              []Product
	ProductAssets         []ProductAsset
	ProductAccesses       []ProductAccess
	Payments              []Payment
	PaymentCommitments    []PaymentCommitment
	PaymentAgreements     []PaymentAgreement
	PaymentExceptions     []PaymentException
	CustomProducts        []CustomProduct
	Forms                 []Form
	FormSubmissions       []FormSubmission
	LoginHistory          []LoginEvent
}

// MaxDate returns the run-wide "as-of" time: the maximum timestamp
// observed across payments, logins, product accesses and session
// attendance. Zero time when no behavioral rows carry a timestamp.
func (s *Snapshot) MaxDate() time.Time {
	var max time.Time
	bump := func(t *time.Time) {
		if t != nil && t.After(max) {
			max = *t
		}
	}
	for _, p := range s.Payments {
		bump(p.EffectivePaidAt())
	}
	for _, l := range s.LoginHistory {
		bump(l.Timestamp)
	}
	for _, a := range s.ProductAccesses {
		bump(a.AccessTime())
	}
	for _, a := range s.SessionAttendance {
		bump(a.AttendedAt)
	}
	return max
}

// StudentIDs resolves the set of user ids holding the "student" role.
// Falls back to role id "2" when no role named student exists in the
// snapshot, matching the platform's seeded role table.
func (s *Snapshot) StudentIDs() map[string]bool {
	roleIDs := map[string]bool{}
	for _, r := range s.Roles {
		if equalFoldTrim(r.Name, "student") {
			roleIDs[r.ID] = true
		}
	}
	if len(roleIDs) == 0 {
		roleIDs["2"] = true
	}

	students := map[string]bool{}
	for _, u := range s.Users {
		if roleIDs[u.RoleID] {
			students[u.ID] = true
		}
	}
	return students
}

// FilterStudents returns a copy of the snapshot with payment-family
// relations restricted to student users, excluding admin and test
// activity from revenue and attribution figures. Non-payment relations
// are shared, not copied.
func (s *Snapshot) FilterStudents() *Snapshot {
	students := s.StudentIDs()
	if len(students) == 0 {
		return s
	}

	out := *s
	out.Payments = nil
	for _, p := range s.Payments {
		if students[p.UserID] {
			out.Payments = append(out.Payments, p)
		}
	}
	out.PaymentCommitments = nil
	for _, c := range s.PaymentCommitments {
		if students[c.UserID] {
			out.PaymentCommitments = append(out.PaymentCommitments, c)
		}
	}
	out.PaymentAgreements = nil
	for _, a := range s.PaymentAgreements {
		if students[a.UserID] {
			out.PaymentAgreements = append(out.PaymentAgreements, a)
		}
	}
	out.PaymentExceptions = nil
	for _, e := range s.PaymentExceptions {
		if students[e.UserID] {
			out.PaymentExceptions = append(out.PaymentExceptions, e)
		}
	}
	out.CustomProducts = nil
	for _, c := range s.CustomProducts {
		if students[c.UserID] {
			out.CustomProducts = append(out.CustomProducts, c)
		}
	}
	return &out
}

// CourseByProduct maps product id to the course it grants, derived from
// product assets. First asset wins when a product grants several.
func (s *Snapshot) CourseByProduct() map[string]string {
	m := make(map[string]string, len(s.ProductAssets))
	for _, pa := range s.ProductAssets {
		if pa.CourseID == "" {
			continue
		}
		if _, ok := m[pa.ProductID]; !ok {
			m[pa.ProductID] = pa.CourseID
		}
	}
	return m
}
