// Package attribution implements gateway-touch attribution: finding
// each user's first low-commitment interaction, cohorting users under
// several "newcomer" definitions, and measuring conversion into paid
// and mentorship offerings afterwards.
package attribution

import (
	"sort"
	"time"

	"github.com/mentorlane/insights/pkg/classify"
	"github.com/mentorlane/insights/pkg/models"
)

// TouchType identifies the source of a user's first gateway touch.
const (
	TouchSession = "session"
	TouchProduct = "product"
)

// TouchRecord is the attribution result for one user. At most one
// record exists per user; users with no gateway touch have none.
type TouchRecord struct {
	UserID         string
	FirstTouchTime time.Time
	FirstTouchType string
	AssetName      string

	GatewaySessionID    *string
	GatewaySessionTitle *string
	GatewayProductID    *string
	GatewayProductTitle *string

	// Newcomer predicates are computed independently; Strict is the
	// conjunction of the three and never derived by its own rule.
	NewcomerA      bool
	NewcomerB      bool
	NewcomerC      bool
	NewcomerStrict bool

	// Whole-day deltas (floor) from the touch to the first succeeded
	// payment strictly after it. Nil when the user never converts.
	DaysToAnyPaid        *int
	DaysToMentorshipPaid *int
}

// Inputs bundles the classified relations the attribution engine
// consumes. Joins tolerate missing references: an attendance row whose
// session is unknown simply never matches a gateway session.
type Inputs struct {
	Sessions        []classify.SessionFlag
	Attendance      []models.SessionAttendance
	Payments        []models.Payment
	Products        []classify.ProductFlag
	ProductAccesses []models.ProductAccess
}

type candidateTouch struct {
	at    time.Time
	id    string
	title string
}

// BuildTouches computes one TouchRecord per user holding a gateway
// touch, ordered by user id.
func BuildTouches(in Inputs) []TouchRecord {
	sessionByID := make(map[string]classify.SessionFlag, len(in.Sessions))
	for _, s := range in.Sessions {
		sessionByID[s.SessionID] = s
	}
	productByID := make(map[string]classify.ProductFlag, len(in.Products))
	for _, p := range in.Products {
		productByID[p.ProductID] = p
	}

	// Earliest gateway-session attendance per user.
	sessionTouch := map[string]candidateTouch{}
	for _, a := range in.Attendance {
		if a.AttendedAt == nil {
			continue
		}
		s, ok := sessionByID[a.LiveSessionID]
		if !ok || !s.IsGateway {
			continue
		}
		cur, seen := sessionTouch[a.StudentID]
		if !seen || a.AttendedAt.Before(cur.at) {
			sessionTouch[a.StudentID] = candidateTouch{at: *a.AttendedAt, id: s.SessionID, title: s.Title}
		}
	}

	// Earliest gateway-product succeeded payment per user.
	productTouch := map[string]candidateTouch{}
	for _, p := range in.Payments {
		if p.Status != models.PaymentSucceeded {
			continue
		}
		paidAt := p.EffectivePaidAt()
		if paidAt == nil {
			continue
		}
		prod, ok := productByID[p.ProductID]
		if !ok || !prod.IsGateway {
			continue
		}
		cur, seen := productTouch[p.UserID]
		if !seen || paidAt.Before(cur.at) {
			productTouch[p.UserID] = candidateTouch{at: *paidAt, id: prod.ProductID, title: prod.Title}
		}
	}

	firstPayment := firstSucceededPayment(in.Payments, productByID, anyProduct)
	firstMentorship := firstSucceededPayment(in.Payments, productByID, mentorshipOnly)
	firstAccess := map[string]time.Time{}
	for _, a := range in.ProductAccesses {
		at := a.AccessTime()
		if at == nil {
			continue
		}
		if cur, ok := firstAccess[a.UserID]; !ok || at.Before(cur) {
			firstAccess[a.UserID] = *at
		}
	}

	userIDs := map[string]bool{}
	for id := range sessionTouch {
		userIDs[id] = true
	}
	for id := range productTouch {
		userIDs[id] = true
	}

	records := make([]TouchRecord, 0, len(userIDs))
	for userID := range userIDs {
		st, hasSession := sessionTouch[userID]
		pt, hasProduct := productTouch[userID]

		rec := TouchRecord{UserID: userID}
		// Ties (equal timestamps) resolve to the session touch.
		if hasSession && (!hasProduct || !st.at.After(pt.at)) {
			rec.FirstTouchTime = st.at
			rec.FirstTouchType = TouchSession
			rec.AssetName = st.title
		} else {
			rec.FirstTouchTime = pt.at
			rec.FirstTouchType = TouchProduct
			rec.AssetName = pt.title
		}
		if hasSession {
			rec.GatewaySessionID = strPtr(st.id)
			rec.GatewaySessionTitle = strPtr(st.title)
		}
		if hasProduct {
			rec.GatewayProductID = strPtr(pt.id)
			rec.GatewayProductTitle = strPtr(pt.title)
		}

		touch := rec.FirstTouchTime
		rec.NewcomerA = nilOrNotBefore(firstPayment, userID, touch)
		rec.NewcomerB = nilOrNotBefore(firstMentorship, userID, touch)
		rec.NewcomerC = nilOrNotBefore(firstAccess, userID, touch)
		rec.NewcomerStrict = rec.NewcomerA && rec.NewcomerB && rec.NewcomerC

		rec.DaysToAnyPaid, rec.DaysToMentorshipPaid = conversionDeltas(in.Payments, productByID, userID, touch)
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })
	return records
}

type productFilter func(classify.ProductFlag, bool) bool

func anyProduct(classify.ProductFlag, bool) bool { return true }

func mentorshipOnly(p classify.ProductFlag, known bool) bool { return known && p.IsMentorship }

// firstSucceededPayment returns the earliest effective payment time per
// user over succeeded payments whose product passes the filter.
func firstSucceededPayment(payments []models.Payment, products map[string]classify.ProductFlag, keep productFilter) map[string]time.Time {
	out := map[string]time.Time{}
	for _, p := range payments {
		if p.Status != models.PaymentSucceeded {
			continue
		}
		paidAt := p.EffectivePaidAt()
		if paidAt == nil {
			continue
		}
		prod, known := products[p.ProductID]
		if !keep(prod, known) {
			continue
		}
		if cur, ok := out[p.UserID]; !ok || paidAt.Before(cur) {
			out[p.UserID] = *paidAt
		}
	}
	return out
}

// conversionDeltas finds the earliest succeeded payment strictly after
// the touch, any product and mentorship-only, as whole-day floors.
func conversionDeltas(payments []models.Payment, products map[string]classify.ProductFlag, userID string, touch time.Time) (anyPaid, mentorshipPaid *int) {
	var firstAny, firstMentorship *time.Time
	for _, p := range payments {
		if p.UserID != userID || p.Status != models.PaymentSucceeded {
			continue
		}
		paidAt := p.EffectivePaidAt()
		if paidAt == nil || !paidAt.After(touch) {
			continue
		}
		if firstAny == nil || paidAt.Before(*firstAny) {
			t := *paidAt
			firstAny = &t
		}
		if prod, ok := products[p.ProductID]; ok && prod.IsMentorship {
			if firstMentorship == nil || paidAt.Before(*firstMentorship) {
				t := *paidAt
				firstMentorship = &t
			}
		}
	}
	if firstAny != nil {
		d := wholeDays(touch, *firstAny)
		anyPaid = &d
	}
	if firstMentorship != nil {
		d := wholeDays(touch, *firstMentorship)
		mentorshipPaid = &d
	}
	return anyPaid, mentorshipPaid
}

// nilOrNotBefore is the newcomer predicate: true when the signal is
// absent or occurs at/after the touch time.
func nilOrNotBefore(signal map[string]time.Time, userID string, touch time.Time) bool {
	t, ok := signal[userID]
	if !ok {
		return true
	}
	return !t.Before(touch)
}

func wholeDays(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}

func strPtr(s string) *string { return &s }
