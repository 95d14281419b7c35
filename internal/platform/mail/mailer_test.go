package mail

import (
	"context"
	"testing"

	"github.com/gatherly/gatherly-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPMailerRequiresHost(t *testing.T) {
	t.Parallel()

	_, err := NewSMTPMailer(config.MailConfig{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestNewSMTPMailerWithHost(t *testing.T) {
	t.Parallel()

	mailer, err := NewSMTPMailer(config.MailConfig{
		Host:        "smtp.example.com",
		Port:        587,
		FromAddress: "events@example.com",
		FromName:    "Gatherly",
	}, nil)
	require.NoError(t, err)
	assert.NotNil(t, mailer)
}

func TestSMTPMailerRejectsBadRecipient(t *testing.T) {
	t.Parallel()

	mailer, err := NewSMTPMailer(config.MailConfig{
		Host:        "smtp.example.com",
		Port:        587,
		FromAddress: "events@example.com",
	}, nil)
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{
		To:      "not-an-address",
		Subject: "hi",
		Body:    "hello",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipient")
}

func TestNoopMailerDropsMessages(t *testing.T) {
	t.Parallel()

	mailer := NewNoopMailer(nil)
	err := mailer.Send(context.Background(), Message{
		To:      "ada@example.com",
		Subject: "Registration confirmed",
		Body:    "See you there.",
	})
	assert.NoError(t, err)
}
