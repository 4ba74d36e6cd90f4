package email

import (
	"context"
	"testing"

	"github.com/Domenick1991/apptbooking/internal/kafka"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testImage() kafka.RecordImage {
	return kafka.RecordImage{
		PK:                "booking#abc",
		SK:                "2024-01-10T15:00:00Z",
		Status:            "booked",
		Category:          "consultation",
		DurationMinutes:   30,
		CustomerFirstName: "Ada",
		CustomerLastName:  "Lovelace",
		CustomerEmail:     "ada@example.com",
		ProviderFirstName: "Grace",
		ProviderLastName:  "Hopper",
	}
}

func TestSender_SendConfirmation(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewSender(zap.New(core))

	err := sender.SendConfirmation(context.Background(), testImage())

	assert.NoError(t, err)
	entries := logs.FilterMessage("email sent").All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ada@example.com", fields["to"])
	assert.Equal(t, "appointment confirmed", fields["subject"])
	assert.Contains(t, fields["body"], "Ada Lovelace")
	assert.Contains(t, fields["body"], "booking#abc")
	assert.Contains(t, fields["body"], "30 minutes")
}

func TestSender_SendCancellation(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewSender(zap.New(core))

	err := sender.SendCancellation(context.Background(), testImage())

	assert.NoError(t, err)
	entries := logs.FilterMessage("email sent").All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "appointment cancelled", entries[0].ContextMap()["subject"])
}

func TestSender_MissingEmail(t *testing.T) {
	sender := NewSender(zap.NewNop())

	image := testImage()
	image.CustomerEmail = ""

	assert.Error(t, sender.SendConfirmation(context.Background(), image))
	assert.Error(t, sender.SendCancellation(context.Background(), image))
}
