// Package pipeline orchestrates one analytics run: load the snapshot,
// derive every table, publish the results and ship the artifacts.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mentorlane/insights/config"
	"github.com/mentorlane/insights/pkg/attribution"
	"github.com/mentorlane/insights/pkg/classify"
	"github.com/mentorlane/insights/pkg/email"
	"github.com/mentorlane/insights/pkg/engagement"
	"github.com/mentorlane/insights/pkg/enrichment"
	"github.com/mentorlane/insights/pkg/export"
	"github.com/mentorlane/insights/pkg/finance"
	"github.com/mentorlane/insights/pkg/leads"
	"github.com/mentorlane/insights/pkg/logger"
	"github.com/mentorlane/insights/pkg/metrics"
	"github.com/mentorlane/insights/pkg/models"
	"github.com/mentorlane/insights/pkg/ops"
	"github.com/mentorlane/insights/pkg/report"
	"github.com/mentorlane/insights/pkg/store"
)

// Loader produces the snapshot a run consumes.
type Loader interface {
	Load(ctx context.Context) (*models.Snapshot, error)
}

// Runner wires the engines together. Every field except cfg, loader
// and log is optional; nil disables that side effect.
type Runner struct {
	cfg      *config.Config
	loader   Loader
	enricher *enrichment.Enricher
	writer   *export.Writer
	uploader *export.S3Uploader
	mailer   *email.Service
	metrics  *metrics.Metrics
	registry *Registry
	log      logger.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithEnricher attaches LLM skill-gap enrichment.
func WithEnricher(e *enrichment.Enricher) Option { return func(r *Runner) { r.enricher = e } }

// WithWriter attaches CSV and workbook output.
func WithWriter(w *export.Writer) Option { return func(r *Runner) { r.writer = w } }

// WithUploader attaches S3 artifact upload.
func WithUploader(u *export.S3Uploader) Option { return func(r *Runner) { r.uploader = u } }

// WithMailer attaches report email delivery.
func WithMailer(m *email.Service) Option { return func(r *Runner) { r.mailer = m } }

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option { return func(r *Runner) { r.metrics = m } }

// WithRegistry publishes results for the API after each run.
func WithRegistry(g *Registry) Option { return func(r *Runner) { r.registry = g } }

// NewRunner builds a runner over a snapshot loader.
func NewRunner(cfg *config.Config, loader Loader, log logger.Logger, opts ...Option) *Runner {
	if log == nil {
		log = logger.Default()
	}
	r := &Runner{cfg: cfg, loader: loader, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one full pipeline pass.
func (r *Runner) Run(ctx context.Context) (*Results, error) {
	start := time.Now()
	res, err := r.run(ctx)
	if r.metrics != nil {
		tables := 0
		if res != nil {
			tables = len(res.Tables)
		}
		r.metrics.RecordRun(err == nil, time.Since(start), tables)
	}
	if err != nil {
		return nil, err
	}
	r.log.Info("pipeline run complete",
		"tables", len(res.Tables),
		"as_of", res.AsOf,
		"duration", time.Since(start).String(),
	)
	return res, nil
}

func (r *Runner) run(ctx context.Context) (*Results, error) {
	raw, err := r.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	r.recordRelationSizes(raw)

	if len(raw.Payments) == 0 && r.cfg.StripeSecretKey != "" {
		backfilled, err := store.BackfillPayments(r.cfg.StripeSecretKey, 100)
		if err != nil {
			r.log.Warn("stripe payment backfill failed", "error", err)
		} else {
			r.log.Info("payments backfilled from stripe", "rows", len(backfilled))
			raw.Payments = backfilled
		}
	}

	// Payment-family relations are restricted to student accounts so
	// staff test purchases never skew the funnels.
	snap := raw.FilterStudents()
	asOf := raw.MaxDate()
	runAt := time.Now().UTC()

	sessions := classify.Sessions(snap.LiveSessions, classify.GatewaySessionKeywords)
	products := classify.Products(snap.Products, classify.DefaultProductOptions(
		r.cfg.GatewayPriceQuantile, r.cfg.MentorshipPriceQuantile,
	))

	touches := attribution.BuildTouches(attribution.Inputs{
		Sessions:        sessions,
		Attendance:      snap.SessionAttendance,
		Payments:        snap.Payments,
		Products:        products,
		ProductAccesses: snap.ProductAccesses,
	})
	summary := attribution.ConversionSummary(touches, r.cfg.ConversionWindows)
	curve := attribution.ConversionCurve(touches, r.cfg.CurveHorizonDays)
	assets := attribution.AssetConversion(touches)
	mix := attribution.SessionMix(attribution.SessionMixInputs{
		Sessions:        sessions,
		Assigned:        snap.SessionAssignments,
		Attendance:      snap.SessionAttendance,
		Payments:        snap.Payments,
		Products:        products,
		ProductAccesses: snap.ProductAccesses,
	})

	assignmentRates := engagement.AssignmentRates(snap.Assignments, snap.AssignmentSubmissions, snap.Modules)
	attendanceRates := engagement.AttendanceRates(snap.SessionAssignments, snap.SessionAttendance)
	enrollments := engagement.EnrollmentPairs(snap.ProductAccesses, snap.CourseByProduct())
	completion, absconded := engagement.BuildCompletion(enrollments, assignmentRates, attendanceRates, snap.LoginHistory, asOf)
	thresholds := engagement.ThresholdBreakdown(completion)
	remorse := engagement.BehavioralDeltas(snap.Payments, snap.SessionAttendance, snap.AssignmentSubmissions, snap.LoginHistory)
	sessionSummaries := engagement.SessionSummaries(sessions, snap.SessionAssignments, snap.SessionAttendance)
	instructors := engagement.InstructorPerformance(sessionSummaries)
	agreements := engagement.AgreementCompliance(snap.Assignments, snap.AssignmentAgreements)

	leadRows := leads.Parse(snap.FormSubmissions, snap.Forms, r.cfg.LeadsDefaultPhoneRegion)
	skillGaps := r.enrich(ctx, leadRows)

	tables := []models.Table{
		attribution.TouchTable(touches),
		attribution.SummaryTable(summary),
		attribution.CurveTable(curve),
		attribution.AssetTable(assets),
		attribution.SessionMixTable(mix),

		engagement.CompletionTable(completion),
		engagement.AbscondedTable(absconded),
		engagement.ThresholdTable(thresholds),
		engagement.CourseRateTable("completion_by_course", "completion_rate", engagement.CompletionByCourse(completion)),
		engagement.CourseRateTable("absconded_by_course", "absconded_rate", engagement.AbscondedByCourse(absconded)),
		engagement.RemorseTable(remorse),
		engagement.AttendanceTable(attendanceRates),
		engagement.SessionSummaryTable(sessionSummaries),
		engagement.InstructorTable(instructors),
		engagement.AgreementTable(agreements),

		finance.StatusByMonthTable(finance.StatusByMonth(snap.Payments)),
		finance.RevenueTable(finance.RevenueByMonth(snap.Payments)),
		finance.DelinquencyTable(finance.Delinquency(snap.Payments, asOf)),
		finance.PaidInFullTable(finance.PaidInFullByProduct(snap.Payments)),
		finance.DefaultRateTable(finance.PlanDefaultRate(snap.PaymentAgreements, snap.PaymentCommitments)),
		finance.WaterfallTable(finance.CommitmentVsCash(snap.Payments, snap.PaymentCommitments, snap.CustomProducts)),
		finance.DiscountHookTable(finance.DiscountHook(products, snap.Payments)),
		finance.PlanEngagementTable(finance.PlanEngagement(snap.Payments, snap.PaymentCommitments, snap.CustomProducts, snap.AssignmentSubmissions)),
		finance.InvestmentTable(finance.InvestmentVsEngagement(snap.Payments, snap.AssignmentSubmissions)),

		ops.GapTable(ops.GapReport(snap.ProductAccesses, snap.Payments, snap.LoginHistory, asOf)),
		ops.ExceptionSummaryTable(ops.ExceptionDurations(snap.PaymentExceptions)),
		ops.TimelineTable(ops.ExceptionTimeline(snap.PaymentExceptions)),
		ops.SalesLagTable(ops.SalesLag(salesLeads(leadRows), snap.Users, snap.Payments)),

		leads.LeadTable(leadRows),
		leads.TagTable(leads.TagBreakdown(leadRows)),
		enrichment.SkillGapTable(skillGaps),
	}

	res := NewResults(runAt, asOf, tables)
	if r.registry != nil {
		r.registry.Publish(res)
	}
	if err := r.publish(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runner) enrich(ctx context.Context, leadRows []leads.Lead) []enrichment.SkillGapRow {
	if r.enricher == nil {
		return nil
	}
	rows := r.enricher.EnrichLeads(ctx, leadRows)
	if r.metrics != nil {
		for _, row := range rows {
			r.metrics.RecordEnrichment(row.Status)
		}
	}
	return rows
}

// publish writes run artifacts: CSV per table, one workbook, the
// markdown report, then the optional email and S3 upload.
func (r *Runner) publish(ctx context.Context, res *Results) error {
	if r.writer == nil {
		return nil
	}

	var artifacts []string
	for _, table := range res.Tables {
		path, err := r.writer.WriteCSV(table)
		if err != nil {
			return fmt.Errorf("write %s: %w", table.Name, err)
		}
		artifacts = append(artifacts, path)
	}

	workbook, err := r.writer.WriteWorkbook("insights.xlsx", res.Tables)
	if err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	artifacts = append(artifacts, workbook)

	digest := report.Render(res.RunAt, res.AsOf, res.Tables)
	reportPath, err := r.writer.WriteText("report.md", digest)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	artifacts = append(artifacts, reportPath)

	if r.mailer != nil {
		subject := fmt.Sprintf("Insights run %s", res.RunAt.Format("2006-01-02"))
		for _, to := range r.cfg.ReportEmailTo {
			if err := r.mailer.SendReport(to, subject, digest); err != nil {
				r.log.Warn("report email failed", "to", to, "error", err)
			}
		}
	}

	if r.uploader != nil {
		for _, path := range artifacts {
			if _, err := r.uploader.Upload(ctx, path); err != nil {
				r.log.Warn("artifact upload failed", "path", path, "error", err)
			}
		}
	}
	return nil
}

func (r *Runner) recordRelationSizes(snap *models.Snapshot) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordRelationRows("users", len(snap.Users))
	r.metrics.RecordRelationRows("payments", len(snap.Payments))
	r.metrics.RecordRelationRows("product_accesses", len(snap.ProductAccesses))
	r.metrics.RecordRelationRows("live_sessions", len(snap.LiveSessions))
	r.metrics.RecordRelationRows("session_attendance", len(snap.SessionAttendance))
	r.metrics.RecordRelationRows("assignment_submissions", len(snap.AssignmentSubmissions))
	r.metrics.RecordRelationRows("form_submissions", len(snap.FormSubmissions))
	r.metrics.RecordRelationRows("login_history", len(snap.LoginHistory))
}

func salesLeads(rows []leads.Lead) []ops.SalesLead {
	out := make([]ops.SalesLead, len(rows))
	for i, l := range rows {
		out[i] = ops.SalesLead{SubmissionID: l.SubmissionID, Email: l.Email, SubmittedAt: l.SubmittedAt}
	}
	return out
}
