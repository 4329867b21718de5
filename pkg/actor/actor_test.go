package actor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/travelflow/travelflow-backend/pkg/actor"
	"github.com/travelflow/travelflow-backend/pkg/permissions"
)

func TestActorContext(t *testing.T) {
	a := &actor.Actor{ID: "u-1", FullName: "Ada Lovelace", Email: "ada@example.com"}
	ctx := actor.WithActor(context.Background(), a)

	assert.Same(t, a, actor.FromContext(ctx))
	assert.Nil(t, actor.FromContext(context.Background()))
	assert.Equal(t, "Ada Lovelace (ada@example.com)", a.String())
}

func TestActorCapabilities(t *testing.T) {
	manager := &actor.Actor{
		Roles:       []string{permissions.RoleManager},
		Permissions: permissions.ForRoles([]string{permissions.RoleManager}),
	}
	assert.True(t, manager.CanApproveTravel())
	assert.True(t, manager.CanApproveReports())
	assert.False(t, manager.CanManagePolicy())
	assert.True(t, manager.HasRole(permissions.RoleManager))
	assert.False(t, manager.IsAdmin())

	admin := &actor.Actor{Permissions: []string{"*"}}
	assert.True(t, admin.IsAdmin())
	assert.True(t, admin.CanViewAudit())

	var nobody *actor.Actor
	assert.False(t, nobody.Can(permissions.TravelOwn))
	assert.True(t, nobody.IsSystem())
}

func TestSystemActor(t *testing.T) {
	assert.True(t, actor.SystemActor().IsSystem())
	assert.Equal(t, "system", (*actor.Actor)(nil).String())
}
