package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-sla/internal/domain"
	apperrors "github.com/spec-kit/maintenance-sla/pkg/util/errorutil"
)

// ErrQueueFull is returned by a CycleQueue that cannot accept another cycle.
var ErrQueueFull = errors.New("sla cycle queue is full")

// CycleQueue accepts monitoring cycles and reports on their progress.
type CycleQueue interface {
	Trigger(ctx context.Context) (domain.CycleJob, error)
	Status(ctx context.Context) (domain.QueueStatus, error)
	ClearHistory(ctx context.Context) (int, error)
}

// SnapshotSource lists every ticket with its SLA bookkeeping.
type SnapshotSource interface {
	ListSLASnapshots(ctx context.Context) ([]domain.Ticket, error)
}

// SLAService backs the admin SLA endpoints.
type SLAService struct {
	queue   CycleQueue
	tickets SnapshotSource
	clock   clockwork.Clock
	logger  *zap.Logger
}

// NewSLAService builds the service.
func NewSLAService(queue CycleQueue, tickets SnapshotSource, clk clockwork.Clock, logger *zap.Logger) *SLAService {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLAService{queue: queue, tickets: tickets, clock: clk, logger: logger}
}

// TriggerCheck enqueues a manual cycle.
func (s *SLAService) TriggerCheck(ctx context.Context) (domain.CycleJob, error) {
	job, err := s.queue.Trigger(ctx)
	if err != nil {
		if errors.Is(err, ErrQueueFull) {
			return domain.CycleJob{}, apperrors.NewUnavailable("sla check queue is full, try again later", err)
		}
		return domain.CycleJob{}, err
	}
	s.logger.Info("manual sla check queued", zap.String("job_id", job.ID))
	return job, nil
}

// QueueStatus returns job counts per state.
func (s *SLAService) QueueStatus(ctx context.Context) (domain.QueueStatus, error) {
	return s.queue.Status(ctx)
}

// ClearCompletedJobs drops completed and failed job records.
func (s *SLAService) ClearCompletedJobs(ctx context.Context) (int, error) {
	removed, err := s.queue.ClearHistory(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("sla job history cleared", zap.Int("removed", removed))
	return removed, nil
}

// DimensionStats counts one SLA dimension within a group.
type DimensionStats struct {
	OnTime         int     `json:"onTime"`
	Warning        int     `json:"warning"`
	Breached       int     `json:"breached"`
	ComplianceRate float64 `json:"complianceRate"`
}

// GroupStats summarizes a status bucket.
type GroupStats struct {
	Total             int                           `json:"total"`
	WithSLA           int                           `json:"withSla"`
	ResponseSLA       DimensionStats                `json:"responseSla"`
	ResolveSLA        DimensionStats                `json:"resolveSla"`
	PriorityBreakdown map[domain.TicketPriority]int `json:"priorityBreakdown"`
}

// SLAStatistics is the payload of the statistics endpoint.
type SLAStatistics struct {
	Timestamp time.Time             `json:"timestamp"`
	Queue     domain.QueueStatus    `json:"queue"`
	Groups    map[string]GroupStats `json:"groups"`
	Summary   StatisticsSummary     `json:"summary"`
}

// StatisticsSummary carries totals across every group.
type StatisticsSummary struct {
	TotalTickets  int     `json:"totalTickets"`
	WithSLA       int     `json:"withSla"`
	SLACompliance float64 `json:"slaCompliance"`
}

// Status buckets reported by Statistics. Cancelled tickets are counted only in the summary.
const (
	GroupWorkDone = "workdone"
	GroupOnRepair = "onrepair"
	GroupOpening  = "opening"
)

var statusGroups = map[domain.TicketStatus]string{
	domain.TicketStatusCompleted:  GroupWorkDone,
	domain.TicketStatusAssigned:   GroupOnRepair,
	domain.TicketStatusInProgress: GroupOnRepair,
	domain.TicketStatusNew:        GroupOpening,
	domain.TicketStatusTriage:     GroupOpening,
}

// Statistics reports SLA compliance by status bucket and priority.
func (s *SLAService) Statistics(ctx context.Context) (*SLAStatistics, error) {
	tickets, err := s.tickets.ListSLASnapshots(ctx)
	if err != nil {
		return nil, err
	}
	queue, err := s.queue.Status(ctx)
	if err != nil {
		return nil, err
	}

	buckets := map[string][]domain.Ticket{
		GroupWorkDone: nil,
		GroupOnRepair: nil,
		GroupOpening:  nil,
	}
	withSLA, compliant := 0, 0
	for _, ticket := range tickets {
		if group, ok := statusGroups[ticket.Status]; ok {
			buckets[group] = append(buckets[group], ticket)
		}
		if ticket.HasSLA() {
			withSLA++
			if !ticket.ResponseBreached && !ticket.ResolvedBreached {
				compliant++
			}
		}
	}

	groups := make(map[string]GroupStats, len(buckets))
	for name, bucket := range buckets {
		groups[name] = groupStats(bucket)
	}

	return &SLAStatistics{
		Timestamp: s.clock.Now().UTC(),
		Queue:     queue,
		Groups:    groups,
		Summary: StatisticsSummary{
			TotalTickets:  len(tickets),
			WithSLA:       withSLA,
			SLACompliance: percent(compliant, withSLA),
		},
	}, nil
}

func groupStats(tickets []domain.Ticket) GroupStats {
	stats := GroupStats{
		Total:             len(tickets),
		PriorityBreakdown: make(map[domain.TicketPriority]int, len(domain.TicketPriorities)),
	}
	for _, priority := range domain.TicketPriorities {
		stats.PriorityBreakdown[priority] = 0
	}
	for i := range tickets {
		ticket := &tickets[i]
		if _, ok := stats.PriorityBreakdown[ticket.Priority]; ok {
			stats.PriorityBreakdown[ticket.Priority]++
		}
		if !ticket.HasSLA() {
			continue
		}
		stats.WithSLA++
		countDimension(&stats.ResponseSLA, ticket, domain.SLADimensionResponse)
		countDimension(&stats.ResolveSLA, ticket, domain.SLADimensionResolve)
	}
	stats.ResponseSLA.ComplianceRate = percent(stats.ResponseSLA.OnTime+stats.ResponseSLA.Warning, stats.WithSLA)
	stats.ResolveSLA.ComplianceRate = percent(stats.ResolveSLA.OnTime+stats.ResolveSLA.Warning, stats.WithSLA)
	return stats
}

func countDimension(stats *DimensionStats, ticket *domain.Ticket, dim domain.SLADimension) {
	switch {
	case ticket.Breached(dim):
		stats.Breached++
	case ticket.WarnAt(dim) != nil:
		stats.Warning++
	default:
		stats.OnTime++
	}
}

// percent returns part/total as a percentage rounded to one decimal.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
