package outreach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"slabdesk/internal/backend"
	"slabdesk/internal/events"
	"slabdesk/internal/listing"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Delivery outcome of one client.
const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Skip reasons.
const (
	ReasonNoContact = "no contact channel"
	ReasonDuplicate = "duplicate recipient"
	ReasonUnknown   = "unknown client"
)

const (
	defaultConcurrency = 4
	directoryPageSize  = listing.MaxPageSize
	maxDirectoryPages  = 100
)

var ErrNoRecipients = errors.New("no recipients")

// Backend is the slice of the inventory API used for delivery.
type Backend interface {
	ListClientes(ctx context.Context, params listing.Params) (*backend.ClienteList, error)
	ShareSalesLink(ctx context.Context, linkID string, req backend.ShareRequest) error
}

// Metrics records delivery counts.
type Metrics interface {
	RecordOutreach(sent, failed, skipped int)
}

// Request is one bulk delivery of a link.
type Request struct {
	LinkID     string
	ClienteIDs []string
	Message    string
	UserID     string
}

// Result is the outcome for one requested client, in request order.
type Result struct {
	ClienteID string `json:"clienteId"`
	Name      string `json:"name,omitempty"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// Summary counts outcomes. A bulk delivery never has a single pass/fail.
type Summary struct {
	Sent    int      `json:"sent"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Results []Result `json:"results"`
}

type Service struct {
	backend     Backend
	publisher   events.EventPublisher
	metrics     Metrics
	logger      *zap.Logger
	concurrency int
}

func NewService(b Backend, publisher events.EventPublisher, metrics Metrics, logger *zap.Logger) *Service {
	return &Service{
		backend:     b,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
		concurrency: defaultConcurrency,
	}
}

// Send shares the link with every requested client once. Shares run
// concurrently and are not retried.
func (s *Service) Send(ctx context.Context, req Request) (*Summary, error) {
	if strings.TrimSpace(req.LinkID) == "" {
		return nil, fmt.Errorf("link id is required")
	}
	if len(req.ClienteIDs) == 0 {
		return nil, ErrNoRecipients
	}

	directory, err := s.loadDirectory(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(req.ClienteIDs))
	seen := make(map[string]bool, len(req.ClienteIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, id := range req.ClienteIDs {
		id = strings.TrimSpace(id)
		results[i] = Result{ClienteID: id}

		if seen[id] {
			results[i].Status, results[i].Reason = StatusSkipped, ReasonDuplicate
			continue
		}
		seen[id] = true

		cliente, ok := directory[id]
		if !ok {
			results[i].Status, results[i].Reason = StatusSkipped, ReasonUnknown
			continue
		}
		results[i].Name = cliente.Name
		if !cliente.HasContact() {
			results[i].Status, results[i].Reason = StatusSkipped, ReasonNoContact
			continue
		}

		i := i
		g.Go(func() error {
			err := s.backend.ShareSalesLink(gctx, req.LinkID, backend.ShareRequest{
				ClienteID: results[i].ClienteID,
				Message:   req.Message,
			})
			if err != nil {
				s.logger.Warn("Failed to share link",
					zap.String("link_id", req.LinkID),
					zap.String("cliente_id", results[i].ClienteID),
					zap.Error(err),
				)
				results[i].Status, results[i].Reason = StatusFailed, err.Error()
				return nil
			}
			results[i].Status = StatusSent
			return nil
		})
	}
	_ = g.Wait()

	summary := &Summary{Results: results}
	for _, r := range results {
		switch r.Status {
		case StatusSent:
			summary.Sent++
		case StatusFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}

	if s.metrics != nil {
		s.metrics.RecordOutreach(summary.Sent, summary.Failed, summary.Skipped)
	}
	s.publish(ctx, req, summary)

	s.logger.Info("Link delivery finished",
		zap.String("link_id", req.LinkID),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (s *Service) publish(ctx context.Context, req Request, summary *Summary) {
	if s.publisher == nil {
		return
	}
	event := events.SalesLinkDeliveredEvent{
		LinkID:     req.LinkID,
		Sent:       summary.Sent,
		Failed:     summary.Failed,
		Skipped:    summary.Skipped,
		UserID:     req.UserID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish delivery event", zap.String("link_id", req.LinkID), zap.Error(err))
	}
}

// loadDirectory pages through the client directory. It stops on a short
// page, once Total is reached, on a page with no new ids or after
// maxDirectoryPages.
func (s *Service) loadDirectory(ctx context.Context) (map[string]backend.Cliente, error) {
	out := make(map[string]backend.Cliente)
	params := listing.Params{Page: 1, PageSize: directoryPageSize}
	for ; params.Page <= maxDirectoryPages; params.Page++ {
		page, err := s.backend.ListClientes(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to load clients: %w", err)
		}
		before := len(out)
		for _, c := range page.Clientes {
			out[c.ID] = c
		}
		if len(page.Clientes) < params.PageSize || len(out) >= page.Total {
			return out, nil
		}
		if len(out) == before {
			s.logger.Warn("Client directory page added no new clients, stopping",
				zap.Int("page", params.Page),
				zap.Int("loaded", len(out)),
				zap.Int("total", page.Total))
			return out, nil
		}
	}
	s.logger.Warn("Client directory page limit reached",
		zap.Int("pages", maxDirectoryPages),
		zap.Int("loaded", len(out)))
	return out, nil
}
