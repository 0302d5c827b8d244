package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstTicketRef(t *testing.T) {
	assert.Equal(t, "#12345", firstTicketRef([]string{"Ticket #12345 emitido"}))
	assert.Equal(t, "#7", firstTicketRef([]string{"sin número", "op #7 ok", "#99"}))
	assert.Equal(t, "", firstTicketRef([]string{"# sin dígitos", "nada"}))
	assert.Equal(t, "", firstTicketRef(nil))
}
