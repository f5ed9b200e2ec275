package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFillsPlaceholders(t *testing.T) {
	var r Renderer

	out, err := r.Render("24h", "Ola {{.PatientName}}, consulta {{.Date}} as {{.Time}} com {{.DoctorName}} na {{.ClinicName}}", TemplateData{
		PatientName: "Maria da Silva",
		Date:        "2026-09-14",
		Time:        "09:00",
		DoctorName:  "Dra. Souza",
		ClinicName:  "Clinica Central",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ola Maria da Silva, consulta 2026-09-14 as 09:00 com Dra. Souza na Clinica Central", out)
}

func TestRenderRejectsUnknownPlaceholder(t *testing.T) {
	var r Renderer

	_, err := r.Render("bad", "Ola {{.Nome}}", TemplateData{PatientName: "Maria"})
	assert.Error(t, err)
}

func TestRenderRejectsEmptyAndMalformedBodies(t *testing.T) {
	var r Renderer

	_, err := r.Render("empty", "", TemplateData{})
	assert.Error(t, err)

	_, err = r.Render("broken", "Ola {{.PatientName", TemplateData{})
	assert.Error(t, err)
}
