package processing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docmill/docmill/app/models"
	"github.com/docmill/docmill/app/repository"
	"github.com/docmill/docmill/internal/pkg/assets"
	"github.com/docmill/docmill/internal/pkg/identity"
	"github.com/docmill/docmill/internal/pkg/journal"
	"github.com/docmill/docmill/internal/pkg/objectstore"
	"github.com/docmill/docmill/internal/pkg/quota"
	"github.com/docmill/docmill/internal/pkg/settings"
)

// fakeEngine returns a canned result or error and counts invocations.
type fakeEngine struct {
	result Result
	err    error
	calls  int
}

func (e *fakeEngine) Execute(ctx context.Context, req Request) (Result, error) {
	e.calls++
	return e.result, e.err
}

type fixture struct {
	processor *Processor
	engine    *fakeEngine
	registry  *settings.Registry
	repos     *repository.Repositories
	journal   *journal.Journal
	ledger    *quota.Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repos := repository.NewMemoryRepositories()
	registry := settings.NewRegistry(repos.Setting)
	require.NoError(t, registry.Load())

	objects, err := objectstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ident := identity.NewRegistry(repos.User)
	ledger := quota.NewLedger(repos.User, registry)
	j := journal.NewJournal(repos.Op)
	store := assets.NewStore(repos.Asset, objects, registry)
	engine := &fakeEngine{result: Result{
		OutputName:  "merged.pdf",
		OutputSize:  2048,
		ContentType: "application/pdf",
		Output:      strings.NewReader("pdf bytes"),
	}}

	return &fixture{
		processor: NewProcessor(registry, ident, ledger, j, store, engine),
		engine:    engine,
		registry:  registry,
		repos:     repos,
		journal:   j,
		ledger:    ledger,
	}
}

func mergeRequest() Request {
	return Request{Operation: models.OpMergePDF, InputName: "in.pdf", InputSize: 1024}
}

func countJournaled(t *testing.T, f *fixture, status string) int {
	t.Helper()

	cursor := f.journal.QueryByDateRange(time.Time{}, time.Now().Add(time.Hour))
	n := 0
	for {
		rec, err := cursor.Next()
		require.NoError(t, err)
		if rec == nil {
			return n
		}
		if rec.Status == status {
			n++
		}
	}
}

func TestHandleSuccessFlow(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	outcome, err := f.processor.Handle(context.Background(), "ext-1", identity.Profile{Username: "alice"}, mergeRequest(), now)
	require.NoError(t, err)

	assert.True(t, outcome.Decision.Granted)
	assert.Equal(t, 4, outcome.Decision.Remaining)
	require.NotNil(t, outcome.Asset)
	assert.Equal(t, "merged.pdf", outcome.Asset.Name)
	assert.True(t, outcome.Asset.ExpiresAt.Equal(now.Add(24*time.Hour)), "output gets the default asset ttl")

	assert.Equal(t, 1, countJournaled(t, f, models.OperationStatusSuccess))
	assert.Equal(t, 1, f.engine.calls)
}

func TestHandleMaintenanceMode(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Set(settings.KeyMaintenanceMode, "true"))

	_, err := f.processor.Handle(context.Background(), "ext-1", identity.Profile{}, mergeRequest(), time.Now())
	assert.ErrorIs(t, err, ErrMaintenanceMode)
	assert.Zero(t, f.engine.calls, "the engine must never run during maintenance")

	// Toggling the flag back takes effect on the very next request.
	require.NoError(t, f.registry.Set(settings.KeyMaintenanceMode, "false"))
	_, err = f.processor.Handle(context.Background(), "ext-1", identity.Profile{}, mergeRequest(), time.Now())
	assert.NoError(t, err)
}

func TestHandleOversizedInput(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	req := mergeRequest()
	req.InputSize = f.registry.MaxFileSize() + 1

	_, err := f.processor.Handle(context.Background(), "ext-1", identity.Profile{}, req, now)
	require.ErrorIs(t, err, assets.ErrAssetTooLarge)
	assert.Zero(t, f.engine.calls)

	// The rejection is journaled but costs no quota.
	assert.Equal(t, 1, countJournaled(t, f, models.OperationStatusFailure))
	user, err := f.repos.User.GetByExternalID("ext-1")
	require.NoError(t, err)
	remaining, _, err := f.ledger.Remaining(user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, f.registry.FreeDailyLimit(), remaining)
}

func TestHandleQuotaDenial(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	limit := f.registry.FreeDailyLimit()
	for i := 0; i < limit; i++ {
		_, err := f.processor.Handle(context.Background(), "ext-1", identity.Profile{}, mergeRequest(), now)
		require.NoError(t, err)
	}

	outcome, err := f.processor.Handle(context.Background(), "ext-1", identity.Profile{}, mergeRequest(), now)
	require.ErrorIs(t, err, quota.ErrQuotaExceeded)
	assert.False(t, outcome.Decision.Granted)
	assert.Equal(t, limit, f.engine.calls, "a denied request must not reach the engine")

	// The denied attempt still shows up in the log.
	assert.Equal(t, 1, countJournaled(t, f, models.OperationStatusFailure))
}

func TestHandleEngineFailureReleasesQuota(t *testing.T) {
	f := newFixture(t)
	f.engine.err = errors.New("conversion crashed")
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := f.processor.Handle(context.Background(), "ext-1", identity.Profile{}, mergeRequest(), now)
	require.Error(t, err)
	assert.NotErrorIs(t, err, quota.ErrQuotaExceeded)

	assert.Equal(t, 1, countJournaled(t, f, models.OperationStatusFailure))

	// The failed attempt must not permanently consume quota.
	user, err := f.repos.User.GetByExternalID("ext-1")
	require.NoError(t, err)
	remaining, _, err := f.ledger.Remaining(user.ID, now)
	require.NoError(t, err)
	assert.Equal(t, f.registry.FreeDailyLimit(), remaining)
}

func TestHandleResultWithoutOutput(t *testing.T) {
	f := newFixture(t)
	f.engine.result = Result{OutputSize: 0}
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	outcome, err := f.processor.Handle(context.Background(), "ext-1", identity.Profile{}, mergeRequest(), now)
	require.NoError(t, err)
	assert.Nil(t, outcome.Asset, "no output name means nothing to register")
	assert.Equal(t, 1, countJournaled(t, f, models.OperationStatusSuccess))
}
