package engine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// setFixture builds jobs writing into the given destination tables, each
// with its own transaction mock; begun records the order of Begin calls.
type setFixture struct {
	ctrl  *gomock.Controller
	jobs  []*Job
	txs   []*MockTx
	begun []string
}

func newSetFixture(t *testing.T, dests ...string) *setFixture {
	f := &setFixture{ctrl: gomock.NewController(t)}
	for _, dest := range dests {
		target := NewMockTarget(f.ctrl)
		tx := NewMockTx(f.ctrl)
		target.EXPECT().Table().Return(dest).AnyTimes()
		target.EXPECT().Begin(gomock.Any()).DoAndReturn(func(context.Context) (Tx, error) {
			f.begun = append(f.begun, dest)
			return tx, nil
		}).AnyTimes()

		job, err := NewJob(JobConfig{
			Source:       newLegacySource(fakeLegacyRows(3)),
			SourceFields: legacyFields,
			Target:       target,
			DestFields:   userFields,
		})
		require.NoError(t, err)
		f.jobs = append(f.jobs, job)
		f.txs = append(f.txs, tx)
	}
	return f
}

func (f *setFixture) expectCommitted(i int) {
	f.txs[i].EXPECT().BulkWrite(gomock.Any(), gomock.Any(), gomock.Any()).Return(3, nil)
	f.txs[i].EXPECT().Commit().Return(nil)
}

func TestSetRun_OrderAndFixup(t *testing.T) {
	f := newSetFixture(t, "company", "user", "company", "contract")
	for i := range f.jobs {
		f.expectCommitted(i)
	}
	fixer := NewMockFixer(f.ctrl)
	fixer.EXPECT().ResetSequences(gomock.Any(), []string{"company", "user", "contract"}).Return(nil).Times(1)

	var out bytes.Buffer
	set := NewSet(fixer, &out)
	set.Add(f.jobs...)

	result, err := set.Run(context.Background(), skipOpts(100))
	require.NoError(t, err)

	assert.Equal(t, []string{"company", "user", "company", "contract"}, f.begun)
	assert.Equal(t, []string{"company", "user", "contract"}, result.Fixed)
	assert.NoError(t, result.FixupErr)
	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Jobs, 4)
	for _, s := range result.Jobs {
		assert.Equal(t, 3, s.Succeeded)
	}
	assert.Contains(t, out.String(), "migrate legacy_user to user finished: 3 of 3 succeed.")
	assert.True(t, strings.HasSuffix(out.String(), "4 tables migrated.\n"))
}

func TestSetRun_DryRunSkipsFixup(t *testing.T) {
	f := newSetFixture(t, "company", "user")
	fixer := NewMockFixer(f.ctrl) // ResetSequences must not be called

	var out bytes.Buffer
	set := NewSet(fixer, &out)
	set.Add(f.jobs...)

	opts := skipOpts(100)
	opts.DryRun = true
	result, err := set.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Empty(t, f.begun)
	assert.Empty(t, result.Fixed)
	assert.True(t, strings.HasPrefix(out.String(), strings.Repeat("*", 90)))
	assert.Contains(t, out.String(), "dry-run mode")
	for _, s := range result.Jobs {
		assert.True(t, s.DryRun)
		assert.Equal(t, 3, s.Succeeded)
	}
}

func TestSetRun_FixupFailureIsNotReturned(t *testing.T) {
	f := newSetFixture(t, "user")
	f.expectCommitted(0)
	fixer := NewMockFixer(f.ctrl)
	boom := errors.New("permission denied")
	fixer.EXPECT().ResetSequences(gomock.Any(), []string{"user"}).Return(boom)

	var out bytes.Buffer
	set := NewSet(fixer, &out)
	set.Add(f.jobs...)

	result, err := set.Run(context.Background(), skipOpts(100))
	require.NoError(t, err)
	assert.ErrorIs(t, result.FixupErr, boom)
	assert.Empty(t, result.Fixed)
	assert.Contains(t, out.String(), "reset sequence failed: permission denied")
}

func TestSetRun_JobFailureStopsSet(t *testing.T) {
	f := newSetFixture(t, "company", "user", "contract")
	f.expectCommitted(0)
	boom := errors.New("disk full")
	f.txs[1].EXPECT().BulkWrite(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, boom)
	f.txs[1].EXPECT().Rollback().Return(nil)
	fixer := NewMockFixer(f.ctrl)

	var out bytes.Buffer
	set := NewSet(fixer, &out)
	set.Add(f.jobs...)

	result, err := set.Run(context.Background(), skipOpts(100))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	pe, ok := err.(*PersistenceError)
	require.True(t, ok, "job error is returned unwrapped, got %T", err)
	assert.Equal(t, "bulk write", pe.Op)
	assert.Equal(t, []string{"company", "user"}, f.begun)
	assert.Len(t, result.Jobs, 2)
	assert.Contains(t, out.String(), "aborted")
}

func TestSetRun_NilFixer(t *testing.T) {
	f := newSetFixture(t, "user")
	f.expectCommitted(0)

	var out bytes.Buffer
	set := NewSet(nil, &out)
	set.Add(f.jobs...)

	result, err := set.Run(context.Background(), skipOpts(100))
	require.NoError(t, err)
	assert.Empty(t, result.Fixed)
	assert.NotContains(t, out.String(), "reset sequence")
}

func TestSetRun_InvalidOptions(t *testing.T) {
	set := NewSet(nil, &bytes.Buffer{})
	_, err := set.Run(context.Background(), Options{BatchSize: 1})

	var ce *ConfigurationError
	assert.ErrorAs(t, err, &ce)
}
