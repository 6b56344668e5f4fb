package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/izzu/internal/domain/repository"
	"github.com/dropDatabas3/izzu/internal/store/memory"
)

type failingRepo struct{}

func (failingRepo) Append(context.Context, repository.AuditEntry) error { return errors.New("db down") }
func (failingRepo) List(context.Context, string, repository.Page) ([]repository.AuditEntry, error) {
	return nil, nil
}

type captureNotifier struct{ events []string }

func (c *captureNotifier) Publish(_ context.Context, _ string, event string, _ map[string]any) {
	c.events = append(c.events, event)
}

func TestRecord_AppendsAndNotifies(t *testing.T) {
	ctx := context.Background()
	repos := memory.New().Repositories()
	n := &captureNotifier{}
	rec := NewRecorder(repos.Audit, n)

	rec.Record(ctx, repository.AuditEntry{ProjectID: "p1", ActorID: "u1", ActorType: repository.ActorUser, Action: ActionUserSignup, Resource: "user:u1"})
	rec.Record(ctx, repository.AuditEntry{ProjectID: "p1", Action: ActionPasskeyAdded})

	list, err := rec.List(ctx, "p1", repository.Page{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, repository.ActorSystem, list[0].ActorType)
	assert.Equal(t, []string{ActionUserSignup}, n.events)
}

func TestRecord_SwallowsFailures(t *testing.T) {
	n := &captureNotifier{}
	rec := NewRecorder(failingRepo{}, n)
	assert.NotPanics(t, func() {
		rec.Record(context.Background(), repository.AuditEntry{ProjectID: "p1", Action: ActionUserLogin})
	})
	assert.Equal(t, []string{ActionUserLogin}, n.events)
}
