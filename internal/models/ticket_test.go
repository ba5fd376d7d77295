package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyStatusStampsCompletion(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ticket := Ticket{Status: TicketStatusInProgress}

	ticket.ApplyStatus(TicketStatusDone, now)

	assert.Equal(t, TicketStatusDone, ticket.Status)
	if assert.NotNil(t, ticket.CompletedAt) {
		assert.Equal(t, now, *ticket.CompletedAt)
	}
}

func TestApplyStatusKeepsExistingCompletion(t *testing.T) {
	completed := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	ticket := Ticket{Status: TicketStatusDone, CompletedAt: &completed}

	ticket.ApplyStatus(TicketStatusDone, time.Now())

	if assert.NotNil(t, ticket.CompletedAt) {
		assert.Equal(t, completed, *ticket.CompletedAt)
	}
}

func TestApplyStatusClearsCompletionOnReopen(t *testing.T) {
	completed := time.Now().UTC()
	ticket := Ticket{Status: TicketStatusDone, CompletedAt: &completed}

	ticket.ApplyStatus(TicketStatusToDo, time.Now())

	assert.Equal(t, TicketStatusToDo, ticket.Status)
	assert.Nil(t, ticket.CompletedAt)
}

func TestValidTicketStatus(t *testing.T) {
	for _, status := range TicketStatuses {
		assert.True(t, ValidTicketStatus(status))
	}
	assert.False(t, ValidTicketStatus("Blocked"))
	assert.False(t, ValidTicketStatus("done"))
	assert.False(t, ValidTicketStatus(""))
}
