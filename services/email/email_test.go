package emailsvc

import (
	"bytes"
	"log"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
)

func TestConsoleServiceMock(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig())

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Jane", Address: "jane@test.cd"}},
			Subject:      "Absence",
			TemplateName: "notification",
			TemplateData: map[string]string{"Name": "Jane", "Title": "Absent today", "Body": "Paul was absent."},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "lost"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Absence", sent[0].Subject)
	assert.Contains(t, sent[0].TextContent, "Paul was absent.")
	assert.Contains(t, sent[0].HTMLContent, "Paul was absent.")

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestConsoleServiceFormat(t *testing.T) {
	var buf bytes.Buffer
	svc := NewConsoleService(core.NewTestConfig(), log.New(&buf, "", 0))
	msg := core.EmailMessage{
		To:          []mail.Address{{Address: "jane@test.cd"}},
		Subject:     "Report",
		TextContent: "see attached",
	}
	require.NoError(t, msg.Attach(strings.NewReader("a,b\n1,2\n"), "report.csv", "text/csv"))

	body, err := svc.format(msg)
	require.NoError(t, err)
	assert.Contains(t, body, "Subject: [Shule] Report")
	assert.Contains(t, body, "multipart/mixed")
	assert.Contains(t, body, "filename=report.csv")
	assert.Contains(t, body, "see attached")
}

func TestSendgridPrepare(t *testing.T) {
	svc := NewSendgridService(core.NewTestConfig(), nil)
	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Jane", Address: "jane@test.cd"}},
		Subject:     "Hello",
		TextContent: "hi",
	})

	require.Len(t, m.Personalizations, 1)
	assert.Equal(t, "[Shule] Hello", m.Personalizations[0].Subject)
	assert.Equal(t, "jane@test.cd", m.Personalizations[0].To[0].Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}
