package notify

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lumator/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func writeReport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forecast_out.csv")
	require.NoError(t, os.WriteFile(path, []byte("carrier,sort_code,cpt_time\n"), 0644))
	return path
}

func testConfig(bodyFile string) Config {
	return Config{
		From:     "lumator@example.com",
		To:       []string{"ops@example.com", "planning@example.com"},
		Subject:  "Lumis Forecast",
		BodyFile: bodyFile,
	}
}

func TestSend_AttachesReport(t *testing.T) {
	sender := &fakeSender{}
	m := NewMailer(testConfig(""), sender)

	require.NoError(t, m.Send(context.Background(), writeReport(t)))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"Lumis Forecast"}, msg.GetHeader("Subject"))
	assert.Equal(t, []string{"ops@example.com", "planning@example.com"}, msg.GetHeader("To"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), DefaultBody)
	assert.Contains(t, buf.String(), `filename="forecast_out.csv"`)
}

func TestBody(t *testing.T) {
	dir := t.TempDir()
	custom := filepath.Join(dir, "email_body.txt")
	require.NoError(t, os.WriteFile(custom, []byte("Hello team,\nforecast attached.\n"), 0644))
	blank := filepath.Join(dir, "blank.txt")
	require.NoError(t, os.WriteFile(blank, []byte("  \n"), 0644))

	tests := []struct {
		name     string
		bodyFile string
		want     string
	}{
		{"template", custom, "Hello team,\nforecast attached."},
		{"missing file", filepath.Join(dir, "nope.txt"), DefaultBody},
		{"blank file", blank, DefaultBody},
		{"unset", "", DefaultBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMailer(testConfig(tt.bodyFile), &fakeSender{})
			assert.Equal(t, tt.want, m.Body())
		})
	}
}

func TestSend_MissingAttachment(t *testing.T) {
	sender := &fakeSender{}
	m := NewMailer(testConfig(""), sender)

	err := m.Send(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.Is(err, errs.ErrDelivery))
	assert.Empty(t, sender.sent)
}

func TestSend_RelayFailure(t *testing.T) {
	m := NewMailer(testConfig(""), &fakeSender{err: errors.New("connection refused")})

	err := m.Send(context.Background(), writeReport(t))
	assert.True(t, errors.Is(err, errs.ErrDelivery))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSend_NoRecipients(t *testing.T) {
	cfg := testConfig("")
	cfg.To = nil
	err := NewMailer(cfg, &fakeSender{}).Send(context.Background(), writeReport(t))
	assert.True(t, errors.Is(err, errs.ErrDelivery))
}
