package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer("localhost", "1025", "shop@example.com")

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "alice@example.com", "Your order", "line one\nline two"))
	assert.Equal(t, "localhost:1025", gotAddr)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "From: shop@example.com\r\nTo: alice@example.com\r\nSubject: Your order\r\n"))
	assert.True(t, strings.HasSuffix(gotMsg, "line one\r\nline two"))
}

func TestSMTPMailer_RejectsHeaderInjection(t *testing.T) {
	m := NewSMTPMailer("localhost", "1025", "shop@example.com")
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}
	err := m.Send(context.Background(), "alice@example.com\r\nBcc: eve@example.com", "hi", "body")
	assert.Error(t, err)
}

func TestSMTPMailer_WrapsError(t *testing.T) {
	m := NewSMTPMailer("localhost", "1025", "shop@example.com")
	boom := errors.New("connection refused")
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return boom }

	err := m.Send(context.Background(), "alice@example.com", "hi", "body")
	assert.ErrorIs(t, err, boom)
}
