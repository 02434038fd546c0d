package notification

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakurah/investors-portal-api/internal/models"
	appErrors "github.com/bakurah/investors-portal-api/pkg/errors"
)

func TestRenderEveryTemplateInBothLanguages(t *testing.T) {
	tc := TemplateContext{
		FullName:      "Sara",
		RequestNumber: "INV-2026-000123",
		RequestType:   models.RequestTypeBuy,
		PortalURL:     "https://portal.example.com/requests/abc",
	}

	for _, id := range models.NotificationTemplateIDs {
		for _, lang := range []models.Language{models.LangArabic, models.LangEnglish} {
			rendered, err := Render(id, lang, tc)
			require.NoError(t, err, "%s/%s", id, lang)

			assert.NotEmpty(t, rendered.Subject)
			assert.Contains(t, rendered.Subject, tc.RequestNumber)
			assert.Contains(t, rendered.Text, tc.RequestNumber, "plaintext must carry the request number")
			assert.Contains(t, rendered.HTML, tc.PortalURL)

			if lang == models.LangArabic {
				assert.Contains(t, rendered.HTML, `dir="rtl"`)
			} else {
				assert.Contains(t, rendered.HTML, `dir="ltr"`)
				assert.NotContains(t, rendered.HTML, `dir="rtl"`)
			}
		}
	}
}

func TestRenderEscapesNoteInHTML(t *testing.T) {
	rendered, err := Render(models.TemplateRequestPendingInfo, models.LangEnglish, TemplateContext{
		FullName:      "Sara",
		RequestNumber: "INV-2026-000001",
		Note:          `<script>alert("x")</script>`,
	})
	require.NoError(t, err)
	assert.NotContains(t, rendered.HTML, "<script>")
	assert.True(t, strings.Contains(rendered.HTML, "&lt;script&gt;"))
	assert.Contains(t, rendered.Text, `<script>alert("x")</script>`)
}

func TestRenderRejectsUnknownTemplateAndLanguage(t *testing.T) {
	_, err := Render("request_exploded", models.LangEnglish, TemplateContext{})
	require.ErrorIs(t, err, appErrors.ErrUnknownTemplate)

	_, err = Render(models.TemplateRequestApproved, "fr", TemplateContext{})
	require.ErrorIs(t, err, appErrors.ErrUnknownTemplate)
}
