package state

import "context"

// Storage persists conversation states. Load and Take return
// ErrStateNotFound when nothing is stored.
type Storage interface {
	Load(ctx context.Context, userID int64) (*UserState, error)
	Save(ctx context.Context, st *UserState) error
	Delete(ctx context.Context, userID int64) error
	// Take loads and deletes in one step, so a state is handed out once.
	Take(ctx context.Context, userID int64) (*UserState, error)
	List(ctx context.Context) ([]*UserState, error)
}
