package textrepair

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRepair(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"latin1 double encoding", "InvitaciÃ³n al evento", "Invitación al evento"},
		{"windows1252 quote", "Itâ€™s on", "It’s on"},
		{"several accents", "Â¡CancelaciÃ³n de reuniÃ³n!", "¡Cancelación de reunión!"},
		{"invalid utf8 latin1 byte", "caf\xe9", "café"},
		{"decomposed accent", "cafe\u0301", "caf\u00e9"},
		{"clean spanish", "¿Vienes a la reunión mañana?", "¿Vienes a la reunión mañana?"},
		{"legit circumflex", "Âmbar", "Âmbar"},
		{"ascii", "Meetingday", "Meetingday"},
		{"garbled run after correct accent", "Invitación al evento: CafÃ©", "Invitación al evento: Café"},
		{"garbled run after inverted exclamation", "¡Hola! CafÃ©", "¡Hola! Café"},
		{"emoji kept", "📨 CafÃ©", "📨 Café"},
		{"garbled emoji", "ðŸ“¨ Nuevo evento", "📨 Nuevo evento"},
		{"triple encoding", "CafÃƒÂ©", "Café"},
		{"invalid byte in accented text", "Reunión en caf\xe9", "Reunión en café"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Repair(tc.in))
		})
	}
}

func TestHasMojibake(t *testing.T) {
	require.True(t, HasMojibake("reuniÃ³n"))
	require.True(t, HasMojibake("â€œholaâ€\u009d"))
	require.False(t, HasMojibake("reunión"))
}

func TestRepair_Idempotent(t *testing.T) {
	once := Repair("ConfirmaciÃ³n")
	require.Equal(t, once, Repair(once))
}
