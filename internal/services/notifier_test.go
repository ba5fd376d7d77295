package services

import (
	"testing"

	"github.com/TraderJoe97/stackflow/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRecipientsFiltersAndDedupes(t *testing.T) {
	active := &models.User{ID: 1, Name: "Alice", Email: "alice@omnitak.com", IsVerified: true}
	deleted := &models.User{ID: 2, Name: "Gabi", Email: "gabi@omnitak.com", IsVerified: true, IsDeleted: true}
	unverified := &models.User{ID: 3, Name: "Pat", Email: "pat@omnitak.com"}

	recipients := Recipients(active, nil, deleted, unverified, active)

	assert.Len(t, recipients, 1)
	assert.Equal(t, "alice@omnitak.com", recipients[0].Email)
}

func TestRecipientsEmptyInput(t *testing.T) {
	assert.Empty(t, Recipients())
	assert.Empty(t, Recipients(nil, &models.User{}))
}

func TestDeepLink(t *testing.T) {
	n := &Notifier{BaseURL: "https://stackflow.omnitak.com"}
	assert.Equal(t, "https://stackflow.omnitak.com/tickets/42", n.DeepLink("/tickets/42"))

	bare := &Notifier{}
	assert.Equal(t, "/tickets/42", bare.DeepLink("/tickets/42"))
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	n.Dispatch(Event{EntityType: EntityTicket, EntityID: 1, Action: ActionCreated})
	n.SendEmail(EmailIntent{})
	assert.Equal(t, "/x", n.DeepLink("/x"))
}
