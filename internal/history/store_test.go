package history

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wonny/valuescreener/internal/contracts"
	"github.com/wonny/valuescreener/pkg/errs"
	"github.com/wonny/valuescreener/pkg/logger"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) FetchScreeningHistory(ctx context.Context) ([]contracts.HistoryRecord, error) {
	args := m.Called(ctx)
	var out []contracts.HistoryRecord
	if v := args.Get(0); v != nil {
		out = v.([]contracts.HistoryRecord)
	}
	return out, args.Error(1)
}

func (m *mockGateway) FetchScreeningDetails(ctx context.Context, id int64) (*contracts.HistoryRecord, error) {
	args := m.Called(ctx, id)
	var out *contracts.HistoryRecord
	if v := args.Get(0); v != nil {
		out = v.(*contracts.HistoryRecord)
	}
	return out, args.Error(1)
}

func (m *mockGateway) DeleteScreening(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func sampleHistory() []contracts.HistoryRecord {
	return []contracts.HistoryRecord{
		{ID: 1, IndexName: "CAC 40 (France)", Timestamp: "2024-05-01T10:00:00", TotalResults: 4},
		{ID: 2, IndexName: "DAX (Allemagne)", Timestamp: "2024-05-03T10:00:00", TotalResults: 2},
		{ID: 3, IndexName: "CAC 40 (France)", Timestamp: "2024-05-02T10:00:00", TotalResults: 0},
	}
}

func loadedStore(t *testing.T, m *mockGateway) *Store {
	t.Helper()
	m.On("FetchScreeningHistory", mock.Anything).Return(sampleHistory(), nil).Once()
	s := NewStore(m, logger.Nop())
	require.NoError(t, s.Refresh(context.Background()))
	return s
}

func ids(records []contracts.HistoryRecord) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestRefresh_NewestFirst(t *testing.T) {
	m := &mockGateway{}
	s := loadedStore(t, m)

	assert.Equal(t, []int64{2, 3, 1}, ids(s.Records()))
	assert.NoError(t, s.Err())
	assert.False(t, s.RefreshedAt().IsZero())
}

func TestRefresh_FailureKeepsCollection(t *testing.T) {
	m := &mockGateway{}
	s := loadedStore(t, m)

	m.On("FetchScreeningHistory", mock.Anything).Return(nil, errors.New("Impossible de charger l'historique des screenings.")).Once()

	err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.Len(t, s.Records(), 3)
	assert.EqualError(t, s.Err(), "Impossible de charger l'historique des screenings.")
}

func TestDelete_WithoutConfirmationIssuesNoCall(t *testing.T) {
	m := &mockGateway{}
	s := loadedStore(t, m)

	var asked contracts.HistoryRecord
	declined := ConfirmFunc(func(r contracts.HistoryRecord) bool {
		asked = r
		return false
	})

	err := s.Delete(context.Background(), 2, declined)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.Equal(t, errs.KindNotConfirmed, errs.KindOf(err))
	assert.Equal(t, "DAX (Allemagne)", asked.IndexName)

	assert.ErrorIs(t, s.Delete(context.Background(), 2, nil), ErrNotConfirmed)

	m.AssertNotCalled(t, "DeleteScreening", mock.Anything, mock.Anything)
	assert.Len(t, s.Records(), 3)
}

func TestDelete_ConfirmedRemovesEntry(t *testing.T) {
	m := &mockGateway{}
	s := loadedStore(t, m)
	m.On("DeleteScreening", mock.Anything, int64(3)).Return(nil).Once()

	var notified []contracts.HistoryRecord
	s.OnChange(func(r []contracts.HistoryRecord) { notified = r })

	require.NoError(t, s.Delete(context.Background(), 3, Confirmed))

	m.AssertNumberOfCalls(t, "DeleteScreening", 1)
	m.AssertNumberOfCalls(t, "FetchScreeningHistory", 1)
	assert.Equal(t, []int64{2, 1}, ids(s.Records()))
	assert.Equal(t, []int64{2, 1}, ids(notified))
}

func TestDelete_FailureKeepsEntry(t *testing.T) {
	m := &mockGateway{}
	s := loadedStore(t, m)
	m.On("DeleteScreening", mock.Anything, int64(1)).Return(errors.New("Impossible de supprimer le screening.")).Once()

	err := s.Delete(context.Background(), 1, Confirmed)
	require.Error(t, err)
	assert.Len(t, s.Records(), 3)
	assert.Error(t, s.Err())
}

func TestDetails(t *testing.T) {
	m := &mockGateway{}
	s := NewStore(m, logger.Nop())

	detail := &contracts.HistoryRecord{ID: 2, Results: []contracts.StockResult{{Symbol: "SAP.DE"}}}
	m.On("FetchScreeningDetails", mock.Anything, int64(2)).Return(detail, nil).Once()
	m.On("FetchScreeningDetails", mock.Anything, int64(9)).Return(nil, errors.New("not found")).Once()

	got, err := s.Details(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "SAP.DE", got.Results[0].Symbol)

	_, err = s.Details(context.Background(), 9)
	assert.Error(t, err)
}

// racingGateway serves a refreshed list in which record 2 is already gone
// and record 4 is new
type racingGateway struct{}

func (racingGateway) FetchScreeningHistory(ctx context.Context) ([]contracts.HistoryRecord, error) {
	return []contracts.HistoryRecord{
		{ID: 1, IndexName: "CAC 40 (France)", Timestamp: "2024-05-01T10:00:00"},
		{ID: 3, IndexName: "CAC 40 (France)", Timestamp: "2024-05-02T10:00:00"},
		{ID: 4, IndexName: "DAX (Allemagne)", Timestamp: "2024-05-04T10:00:00"},
	}, nil
}

func (racingGateway) FetchScreeningDetails(ctx context.Context, id int64) (*contracts.HistoryRecord, error) {
	return nil, errors.New("unused")
}

func (racingGateway) DeleteScreening(ctx context.Context, id int64) error {
	return nil
}

func TestDelete_ConcurrentRefreshIsNotOverwritten(t *testing.T) {
	for i := 0; i < 200; i++ {
		s := NewStore(racingGateway{}, logger.Nop())
		s.records = sampleHistory()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Delete(context.Background(), 2, Confirmed))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Refresh(context.Background()))
		}()
		wg.Wait()

		// 어떤 순서로 끝나도 최신 목록이 남아야 함
		require.Equal(t, []int64{4, 3, 1}, ids(s.Records()), "iteration %d", i)
	}
}
