package invoice

import (
	"bytes"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/fixdesk/backend/internal/errors"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
)

type recordingRenderer struct {
	got Layout
	err error
}

func (r *recordingRenderer) Render(l Layout) ([]byte, error) {
	r.got = l
	if r.err != nil {
		return nil, r.err
	}
	return []byte("doc"), nil
}

var issued = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

func testJob() *models.RepairJob {
	j := models.NewRepairJob("Ana", "0912345678", "Pixel 7", "356938035643809", "cracked screen")
	j.ID = 42
	return j
}

func newTestGenerator(r Renderer) *Generator {
	g := NewGenerator(Shop{Name: "Corner Repairs", Phone: "09 555 0101"}, r)
	g.now = func() time.Time { return issued }
	return g
}

func TestGenerator_Layout(t *testing.T) {
	rec := &recordingRenderer{}
	g := newTestGenerator(rec)

	doc, err := g.Render(testJob())
	require.NoError(t, err)
	assert.Equal(t, []byte("doc"), doc)

	assert.Equal(t, Layout{
		Title:        Title,
		Shop:         Shop{Name: "Corner Repairs", Phone: "09 555 0101"},
		InvoiceNo:    "invoice-000042",
		IssuedAt:     issued,
		CustomerName: "Ana",
		Phone:        "0912345678",
		Device:       "Pixel 7 (IMEI 356938035643809)",
		Problem:      "cracked screen",
		Status:       "Pending",
		Closing:      ClosingLine,
	}, rec.got)
}

func TestGenerator_LayoutWithoutIMEI(t *testing.T) {
	g := newTestGenerator(&recordingRenderer{})
	j := testJob()
	j.IMEI = ""

	assert.Equal(t, "Pixel 7", g.Layout(j).Device)
}

func TestGenerator_renderFailure(t *testing.T) {
	boom := stderrors.New("font missing")
	g := newTestGenerator(&recordingRenderer{err: boom})

	_, err := g.Render(testJob())
	assert.True(t, errors.Is(err, errors.ErrRender))
	assert.ErrorIs(t, err, boom)
}

func TestGenerator_nilJob(t *testing.T) {
	_, err := newTestGenerator(nil).Render(nil)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestPDFRenderer_singlePage(t *testing.T) {
	g := newTestGenerator(nil)
	j := testJob()
	j.CustomerName = "Zoë Müller"

	doc, err := g.Render(j)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))
	assert.True(t, bytes.Contains(doc, []byte("/Count 1")))
	assert.True(t, bytes.HasSuffix(bytes.TrimSpace(doc), []byte("%%EOF")))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "invoice-000007", FileName(&models.RepairJob{ID: 7}))
}
