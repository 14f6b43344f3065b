package mailer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLayout() *Layout {
	l := NewLayout("")
	l.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	return l
}

func TestRenderDefaults(t *testing.T) {
	msg, err := testLayout().Render("ana@example.com", "  ", "<p>Hola <b>Ana</b></p>", "", "")
	require.NoError(t, err)

	assert.Equal(t, DefaultSubject, msg.Subject)
	assert.Contains(t, msg.HTML, "<title>Notificación</title>")
	assert.Contains(t, msg.HTML, "<p>Hola <b>Ana</b></p>")
	assert.Contains(t, msg.HTML, "© 2026 Meetingday")
	assert.NotContains(t, msg.HTML, `class="btn"`)
	assert.Equal(t, "Hola Ana", msg.Text)
	assert.Equal(t, "Hola Ana", msg.Preheader)
}

func TestRenderAction(t *testing.T) {
	msg, err := testLayout().Render("ana@example.com", "Invitación", "<p>Te han invitado</p>", "https://app.example.com/e/1", "")
	require.NoError(t, err)

	assert.Contains(t, msg.HTML, `href="https://app.example.com/e/1"`)
	assert.Contains(t, msg.HTML, ">Ver detalle</a>")
	assert.True(t, strings.HasSuffix(msg.Text, "Ver detalle: https://app.example.com/e/1"))
}

func TestRenderEscapesSubject(t *testing.T) {
	msg, err := testLayout().Render("ana@example.com", "<script>x</script>", "<p>ok</p>", "", "")
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>x</script>")
}

func TestPreheader(t *testing.T) {
	assert.Equal(t, "a b", Preheader(" a\n\n b "))

	long := strings.Repeat("ñ", 130)
	got := Preheader(long)
	assert.Equal(t, 120, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))
}
