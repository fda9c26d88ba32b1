package services

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/localnerve/healthsync/internal/config"
	"github.com/localnerve/healthsync/internal/models"
	"github.com/localnerve/healthsync/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fixedSource returns the same reading, or err, on every Read
type fixedSource struct {
	reading RawReading
	err     error
	calls   atomic.Int32
}

func (f *fixedSource) Read(ctx context.Context, device models.PairedDevice) (RawReading, error) {
	f.calls.Add(1)
	if f.err != nil {
		return RawReading{}, f.err
	}
	r := f.reading
	r.Timestamp = time.Now().UTC()
	return r, nil
}

type engineFixture struct {
	engine *Engine
	db     *gorm.DB
	cfg    *config.Config
}

func newEngineFixture(t *testing.T, mutate func(*config.Config), opts ...Option) *engineFixture {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := testutil.NewConfig()
	if mutate != nil {
		mutate(cfg)
	}

	base := []Option{
		WithDataSource(NewSimulatedSource(rand.New(rand.NewPCG(7, 11)))),
		WithSchedulerUnit(time.Hour),
	}
	engine, err := NewEngine(db, cfg, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &engineFixture{engine: engine, db: db, cfg: cfg}
}

func (f *engineFixture) register(t *testing.T, userID string) {
	t.Helper()
	_, err := f.engine.RegisterUser(context.Background(), RegisterInput{
		ID:    userID,
		Name:  "Test " + userID,
		Email: userID + "@example.com",
	})
	require.NoError(t, err)
}

func f64(v float64) *float64 { return &v }

func iptr(v int) *int { return &v }
