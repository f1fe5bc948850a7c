package verification

import (
	"context"
	"errors"
	"testing"

	"github.com/payfone/prefill-verify/internal/domain"
	"github.com/payfone/prefill-verify/internal/infrastructure/prove"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReputationExecute_PersistsScoreSnapshot(t *testing.T) {
	records := newMemRecordStore()
	snapshots := newMemSnapshotStore()
	rec := records.seed(&domain.PrefillRecord{RecordID: "rec-1", State: domain.StateSMSClicked, StateCounter: 2})
	seedPossessionRequest(snapshots, rec.RecordID, "+15551230000")

	pc := &mockProveClient{}
	pc.On("TrustScore", mock.Anything, "+15551230000", "10.0.0.1").
		Return(&prove.TrustResult{TrustScore: 930}, nil)

	out, err := NewReputationOrchestrator(stageDepsWith(records, snapshots, pc, nil), rec.RecordID).Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Verified)

	snap, err := snapshots.GetResponse(context.Background(), rec.RecordID, domain.StageReputation)
	require.NoError(t, err)
	assert.Equal(t, 930, snap.Payload.TrustScore)
	assert.Equal(t, domain.StateSMSClicked, snap.ParentState)

	// The reputation stage never advances the record state.
	got, _ := records.Get(context.Background(), rec.RecordID)
	assert.Equal(t, domain.StateSMSClicked, got.State)
	assert.Equal(t, int64(2), got.StateCounter)
}

func TestReputationExecute_MissingPhone_ReturnsBadRequest(t *testing.T) {
	records := newMemRecordStore()
	rec := seedRecord(records, domain.StateSMSClicked)

	pc := &mockProveClient{}
	_, err := NewReputationOrchestrator(stageDepsWith(records, newMemSnapshotStore(), pc, nil), rec.RecordID).Execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	pc.AssertNotCalled(t, "TrustScore", mock.Anything, mock.Anything, mock.Anything)
}

func TestReputationExecute_ProviderFailure_Propagates(t *testing.T) {
	records := newMemRecordStore()
	snapshots := newMemSnapshotStore()
	rec := seedRecord(records, domain.StateSMSClicked)
	seedPossessionRequest(snapshots, rec.RecordID, "+15551230000")

	pc := &mockProveClient{}
	pc.On("TrustScore", mock.Anything, mock.Anything, mock.Anything).Return(nil, domain.ErrProvider)

	_, err := NewReputationOrchestrator(stageDepsWith(records, snapshots, pc, nil), rec.RecordID).Execute(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProvider))

	_, err = snapshots.GetResponse(context.Background(), rec.RecordID, domain.StageReputation)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestReputationFinalize_Unsupported(t *testing.T) {
	records := newMemRecordStore()
	rec := seedRecord(records, domain.StateSMSClicked)

	_, err := NewReputationOrchestrator(stageDepsWith(records, newMemSnapshotStore(), &mockProveClient{}, nil), rec.RecordID).
		Finalize(context.Background(), FinalizeInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupported))
}
