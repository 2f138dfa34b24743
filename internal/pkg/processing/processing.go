package processing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/docmill/docmill/app/models"
	"github.com/docmill/docmill/internal/pkg/assets"
	"github.com/docmill/docmill/internal/pkg/identity"
	"github.com/docmill/docmill/internal/pkg/journal"
	"github.com/docmill/docmill/internal/pkg/quota"
	"github.com/docmill/docmill/internal/pkg/settings"
)

// ErrMaintenanceMode is returned while the maintenance flag is active; all
// operation admission is denied regardless of quota state.
var ErrMaintenanceMode = errors.New("maintenance mode active")

// Request describes one document transformation the user asked for.
type Request struct {
	Operation string
	InputName string
	InputSize int64
}

// Result is what the transformation engine hands back on success.
type Result struct {
	OutputName  string
	OutputSize  int64
	ContentType string
	Output      io.Reader // optional payload stream
}

// Engine is the external document-transformation collaborator. It is only
// invoked after quota admission has been granted.
type Engine interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// Outcome reports what happened to an admitted request.
type Outcome struct {
	User     *models.User
	Decision quota.Decision
	Asset    *models.EphemeralAsset
	Result   Result
}

// Processor drives the request path: maintenance gate, identity resolution,
// quota admission, engine execution, journaling and asset registration.
type Processor struct {
	settings *settings.Registry
	identity *identity.Registry
	ledger   *quota.Ledger
	journal  *journal.Journal
	assets   *assets.Store
	engine   Engine
}

func NewProcessor(
	reg *settings.Registry,
	ident *identity.Registry,
	ledger *quota.Ledger,
	j *journal.Journal,
	store *assets.Store,
	engine Engine,
) *Processor {
	return &Processor{
		settings: reg,
		identity: ident,
		ledger:   ledger,
		journal:  j,
		assets:   store,
		engine:   engine,
	}
}

// Handle runs one operation end to end on behalf of an external identity.
func (p *Processor) Handle(ctx context.Context, externalID string, profile identity.Profile, req Request, now time.Time) (*Outcome, error) {
	// The maintenance flag is read per request; toggling it takes effect on
	// the very next call.
	if p.settings.MaintenanceMode() {
		return nil, ErrMaintenanceMode
	}

	user, err := p.identity.GetOrCreate(externalID, profile)
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{User: user}

	if max := p.settings.MaxFileSize(); max > 0 && req.InputSize > max {
		err := fmt.Errorf("%w: %d > %d bytes", assets.ErrAssetTooLarge, req.InputSize, max)
		p.journalOutcome(ctx, user.ID, req, models.OperationStatusFailure, 0, 0, err.Error())
		return outcome, err
	}

	decision, err := p.ledger.TryConsume(user.ID, now, 1)
	outcome.Decision = decision
	if err != nil {
		if errors.Is(err, quota.ErrQuotaExceeded) {
			// Denied admissions are journaled too: they count toward the
			// day's active users.
			p.journalOutcome(ctx, user.ID, req, models.OperationStatusFailure, 0, 0, err.Error())
		}
		return outcome, err
	}

	started := time.Now()
	result, execErr := p.engine.Execute(ctx, req)
	duration := time.Since(started)

	if execErr != nil {
		// The reservation is compensated so a failed transformation does not
		// permanently consume quota.
		if rerr := p.ledger.Release(user.ID, now, 1); rerr != nil {
			log.Errorf("[Processing] Failed to release quota for user %d: %v", user.ID, rerr)
		}
		p.journalOutcome(ctx, user.ID, req, models.OperationStatusFailure, duration, 0, execErr.Error())
		return outcome, fmt.Errorf("transformation failed: %w", execErr)
	}
	outcome.Result = result

	p.journalOutcome(ctx, user.ID, req, models.OperationStatusSuccess, duration, result.OutputSize, "")

	if result.OutputName != "" {
		asset, err := p.assets.Register(ctx, user.ID, assets.Upload{
			Name:    result.OutputName,
			Size:    result.OutputSize,
			Type:    result.ContentType,
			Payload: result.Output,
		}, 0, now)
		if err != nil {
			return outcome, fmt.Errorf("failed to register output: %w", err)
		}
		outcome.Asset = asset
	}

	return outcome, nil
}

// journalOutcome appends to the log. A journal failure is logged but never
// fails the user's operation; durability is already handled by the journal's
// own retries.
func (p *Processor) journalOutcome(ctx context.Context, userID uint, req Request, status string, duration time.Duration, outputSize int64, detail string) {
	record := &models.OperationRecord{
		UserID:      userID,
		Operation:   req.Operation,
		Status:      status,
		Duration:    duration,
		OutputSize:  outputSize,
		ErrorDetail: detail,
	}
	if err := p.journal.Record(ctx, record); err != nil {
		log.Errorf("[Processing] Journal write failed for user %d op %s: %v", userID, req.Operation, err)
	}
}
