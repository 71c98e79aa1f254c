package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/guild-ledger/internal/domain"
)

var errStorageFailure = errors.New("storage error")

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Load(ctx context.Context, userID int64) (*UserState, error) {
	args := m.Called(ctx, userID)
	st, _ := args.Get(0).(*UserState)
	return st, args.Error(1)
}

func (m *mockStorage) Save(ctx context.Context, st *UserState) error {
	return m.Called(ctx, st).Error(0)
}

func (m *mockStorage) Delete(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockStorage) Take(ctx context.Context, userID int64) (*UserState, error) {
	args := m.Called(ctx, userID)
	st, _ := args.Get(0).(*UserState)
	return st, args.Error(1)
}

func (m *mockStorage) List(ctx context.Context) ([]*UserState, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]*UserState)
	return states, args.Error(1)
}

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return client, func() {
		_ = client.Close()
		mr.Close()
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDraft() DepositDraft {
	return DepositDraft{
		Amount: domain.MustParseAmount("25.00"),
		Method: "Volt",
		Name:   "Alice",
		ChatID: -100500,
	}
}

func TestStateMachine_BeginDeposit(t *testing.T) {
	ctx := context.Background()
	userID := int64(42)

	testCases := []struct {
		name        string
		setupMocks  func(ms *mockStorage)
		expectedErr error
	}{
		{
			name: "from idle",
			setupMocks: func(ms *mockStorage) {
				ms.On("Load", mock.Anything, userID).Return(nil, ErrStateNotFound).Once()
				ms.On("Save", mock.Anything, mock.MatchedBy(func(st *UserState) bool {
					return st.UserID == userID && st.CurrentState == StateAwaitingProof &&
						st.Draft != nil && st.Draft.Method == "Volt"
				})).Return(nil).Once()
			},
		},
		{
			name: "replaces an earlier draft",
			setupMocks: func(ms *mockStorage) {
				ms.On("Load", mock.Anything, userID).
					Return(&UserState{UserID: userID, CurrentState: StateAwaitingProof, Draft: &DepositDraft{Method: "In-game"}}, nil).Once()
				ms.On("Save", mock.Anything, mock.MatchedBy(func(st *UserState) bool {
					return st.Draft.Method == "Volt"
				})).Return(nil).Once()
			},
		},
		{
			name: "unknown stored state",
			setupMocks: func(ms *mockStorage) {
				ms.On("Load", mock.Anything, userID).
					Return(&UserState{UserID: userID, CurrentState: State("legacy")}, nil).Once()
			},
			expectedErr: ErrInvalidTransition,
		},
		{
			name: "load failure",
			setupMocks: func(ms *mockStorage) {
				ms.On("Load", mock.Anything, userID).Return(nil, errStorageFailure).Once()
			},
			expectedErr: errStorageFailure,
		},
		{
			name: "save failure",
			setupMocks: func(ms *mockStorage) {
				ms.On("Load", mock.Anything, userID).Return(nil, ErrStateNotFound).Once()
				ms.On("Save", mock.Anything, mock.Anything).Return(errStorageFailure).Once()
			},
			expectedErr: errStorageFailure,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewStateMachine(ms, testLogger(), nil)
			err := fsm.BeginDeposit(ctx, userID, testDraft())

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_CurrentDefaultsToIdle(t *testing.T) {
	ms := &mockStorage{}
	ms.On("Load", mock.Anything, int64(7)).Return(nil, ErrStateNotFound).Once()

	st, err := NewStateMachine(ms, testLogger(), nil).Current(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st.CurrentState)
	assert.Equal(t, int64(7), st.UserID)
	assert.Nil(t, st.Draft)
}

func TestStateMachine_TakeDraft(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	fsm := NewStateMachine(NewRedisStorage(client, testLogger(), time.Minute), testLogger(), client)

	_, err := fsm.TakeDraft(ctx, 1)
	assert.ErrorIs(t, err, ErrNoDraft)

	require.NoError(t, fsm.BeginDeposit(ctx, 1, testDraft()))

	draft, err := fsm.TakeDraft(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, testDraft(), *draft)

	_, err = fsm.TakeDraft(ctx, 1)
	assert.ErrorIs(t, err, ErrNoDraft)

	st, err := fsm.Current(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st.CurrentState)
}

func TestStateMachine_TakeDraftOnceUnderConcurrency(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	fsm := NewStateMachine(NewRedisStorage(client, testLogger(), time.Minute), testLogger(), client)
	require.NoError(t, fsm.BeginDeposit(ctx, 9, testDraft()))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		taken int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := fsm.TakeDraft(ctx, 9); err == nil {
				mu.Lock()
				taken++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, taken)
}

func TestStateMachine_Reset(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	fsm := NewStateMachine(NewRedisStorage(client, testLogger(), time.Minute), testLogger(), client)
	require.NoError(t, fsm.BeginDeposit(ctx, 3, testDraft()))

	require.NoError(t, fsm.Reset(ctx, 3))

	st, err := fsm.Current(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, st.CurrentState)

	locked, err := client.Exists(ctx, "ledger:state:lock:3").Result()
	require.NoError(t, err)
	assert.Zero(t, locked, "lock must be released")
}

func TestStateMachine_LockBusy(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "ledger:state:lock:5", "someone-else", time.Minute).Err())

	fsm := NewStateMachine(NewRedisStorage(client, testLogger(), time.Minute), testLogger(), client)
	err := fsm.BeginDeposit(ctx, 5, testDraft())
	assert.ErrorIs(t, err, ErrStateLocked)

	// a foreign lock is never released by us
	owner, err := client.Get(ctx, "ledger:state:lock:5").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", owner)
}

func TestStateMachine_RecordsTransitions(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	var got [][2]string
	RegisterTransitionRecorder(func(from, to string) { got = append(got, [2]string{from, to}) })
	t.Cleanup(func() { RegisterTransitionRecorder(nil) })

	ctx := context.Background()
	fsm := NewStateMachine(NewRedisStorage(client, testLogger(), time.Minute), testLogger(), client)
	require.NoError(t, fsm.BeginDeposit(ctx, 4, testDraft()))
	_, err := fsm.TakeDraft(ctx, 4)
	require.NoError(t, err)

	assert.Equal(t, [][2]string{
		{"idle", "awaiting_proof"},
		{"awaiting_proof", "idle"},
	}, got)
}
