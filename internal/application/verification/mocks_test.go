package verification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/payfone/prefill-verify/internal/domain"
	"github.com/payfone/prefill-verify/internal/infrastructure/prove"
	"github.com/payfone/prefill-verify/internal/pkg/id"
	"github.com/stretchr/testify/mock"
)

// --- mocks ---

type mockProveClient struct{ mock.Mock }

func (m *mockProveClient) SendInstantLink(ctx context.Context, phoneNumber, sourceIP, finalTargetURL string) (*prove.InstantLink, error) {
	args := m.Called(ctx, phoneNumber, sourceIP, finalTargetURL)
	if v, _ := args.Get(0).(*prove.InstantLink); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProveClient) GetInstantLinkResult(ctx context.Context, fingerprint string) (*prove.InstantLinkResult, error) {
	args := m.Called(ctx, fingerprint)
	if v, _ := args.Get(0).(*prove.InstantLinkResult); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProveClient) TrustScore(ctx context.Context, phoneNumber, sourceIP string) (*prove.TrustResult, error) {
	args := m.Called(ctx, phoneNumber, sourceIP)
	if v, _ := args.Get(0).(*prove.TrustResult); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProveClient) Identity(ctx context.Context, phoneNumber, dob, last4 string) (*prove.IdentityResult, error) {
	args := m.Called(ctx, phoneNumber, dob, last4)
	if v, _ := args.Get(0).(*prove.IdentityResult); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockProveClient) IdentityConfirm(ctx context.Context, req *prove.ConfirmRequest) (*prove.ConfirmResult, error) {
	args := m.Called(ctx, req)
	if v, _ := args.Get(0).(*prove.ConfirmResult); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSMSSender struct{ mock.Mock }

func (m *mockSMSSender) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

type mockJWTSigner struct{ mock.Mock }

func (m *mockJWTSigner) Sign(userID, sessionID, recordID string, isMobile bool) (string, error) {
	args := m.Called(userID, sessionID, recordID, isMobile)
	return args.String(0), args.Error(1)
}

// --- in-memory fakes ---
//
// The record and snapshot fakes behave like the Dynamo repos, including the
// conditional counter check, so stage tests exercise the real optimistic
// locking path instead of scripting it.

type memRecordStore struct {
	mu      sync.Mutex
	records map[string]*domain.PrefillRecord
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{records: map[string]*domain.PrefillRecord{}}
}

func (m *memRecordStore) seed(rec *domain.PrefillRecord) *domain.PrefillRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[cp.RecordID] = &cp
	return &cp
}

func (m *memRecordStore) FindOrCreate(ctx context.Context, userID, sessionID string, isMobile bool, callbackURL string) (*domain.PrefillRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := domain.UserSessionKey(userID, sessionID)
	for _, rec := range m.records {
		if rec.UserSession == key {
			cp := *rec
			return &cp, nil
		}
	}
	rec := &domain.PrefillRecord{
		RecordID:    id.New(),
		UserID:      userID,
		SessionID:   sessionID,
		UserSession: key,
		IsMobile:    isMobile,
		State:       domain.StateInitial,
		CallbackURL: callbackURL,
	}
	m.records[rec.RecordID] = rec
	cp := *rec
	return &cp, nil
}

func (m *memRecordStore) Get(ctx context.Context, recordID string) (*domain.PrefillRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memRecordStore) UpdateWithCounter(ctx context.Context, recordID string, expectedCounter int64, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[recordID]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.StateCounter != expectedCounter {
		return fmt.Errorf("record superseded: %w", domain.ErrConflict)
	}
	for k, v := range updates {
		switch k {
		case "state":
			rec.State = domain.AuthState(v.(string))
		case "sms_sent_count":
			rec.SMSSentCount = v.(int)
		case "sms_sent_at":
			t, _ := time.Parse(time.RFC3339, v.(string))
			rec.SMSSentAt = &t
		case "ownership_check_count":
			rec.OwnershipCheckCount = v.(int)
		case "verified":
			rec.Verified = v.(bool)
		case "manual_entry_required":
			rec.ManualEntryRequired = v.(bool)
		case "user_auth_guid_hash":
			rec.UserAuthGuidHash = v.(string)
		case "user_auth_guid_claimed":
			rec.UserAuthGuidClaimed = v.(bool)
		}
	}
	rec.StateCounter = expectedCounter + 1
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

type memSnapshotStore struct {
	mu        sync.Mutex
	requests  map[string]*domain.RequestSnapshot
	responses map[string]*domain.ResponseSnapshot
}

func newMemSnapshotStore() *memSnapshotStore {
	return &memSnapshotStore{
		requests:  map[string]*domain.RequestSnapshot{},
		responses: map[string]*domain.ResponseSnapshot{},
	}
}

func snapKey(recordID string, stage domain.Stage) string {
	return recordID + "#" + string(stage)
}

func (m *memSnapshotStore) PutRequest(ctx context.Context, s *domain.RequestSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.requests[snapKey(s.RecordID, s.Stage)] = &cp
	return nil
}

func (m *memSnapshotStore) GetRequest(ctx context.Context, recordID string, stage domain.Stage) (*domain.RequestSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.requests[snapKey(recordID, stage)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSnapshotStore) ListRequests(ctx context.Context, recordID string) (map[domain.Stage]*domain.RequestSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.Stage]*domain.RequestSnapshot{}
	for _, s := range m.requests {
		if s.RecordID == recordID {
			cp := *s
			out[s.Stage] = &cp
		}
	}
	return out, nil
}

func (m *memSnapshotStore) PutResponse(ctx context.Context, s *domain.ResponseSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.responses[snapKey(s.RecordID, s.Stage)] = &cp
	return nil
}

func (m *memSnapshotStore) GetResponse(ctx context.Context, recordID string, stage domain.Stage) (*domain.ResponseSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.responses[snapKey(recordID, stage)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSnapshotStore) ListResponses(ctx context.Context, recordID string) (map[domain.Stage]*domain.ResponseSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.Stage]*domain.ResponseSnapshot{}
	for _, s := range m.responses {
		if s.RecordID == recordID {
			cp := *s
			out[s.Stage] = &cp
		}
	}
	return out, nil
}

// --- builders ---

func testCaps() Caps {
	return Caps{SMSResend: 4, SMSResendInterval: 60 * time.Second, OwnershipCheck: 3}
}

func stageDepsWith(records *memRecordStore, snapshots *memSnapshotStore, pc ProveClient, sms *mockSMSSender) StageDeps {
	d := StageDeps{
		Records:        records,
		Snapshots:      snapshots,
		Prove:          pc,
		Caps:           testCaps(),
		FinalTargetURL: "https://example.com/next",
	}
	if sms != nil {
		d.SMS = sms
	}
	return d
}

func seedRecord(records *memRecordStore, state domain.AuthState) *domain.PrefillRecord {
	return records.seed(&domain.PrefillRecord{
		RecordID:    "rec-1",
		UserID:      "u1",
		SessionID:   "s1",
		UserSession: domain.UserSessionKey("u1", "s1"),
		State:       state,
	})
}

func seedPossessionRequest(snapshots *memSnapshotStore, recordID, phone string) {
	_ = snapshots.PutRequest(context.Background(), &domain.RequestSnapshot{
		RecordID: recordID,
		Stage:    domain.StagePossession,
		Payload: domain.RequestPayload{
			MobileNumber: phone,
			SourceIP:     "10.0.0.1",
			Last4:        "1234",
		},
	})
}
