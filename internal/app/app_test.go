package app

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/fixdesk/backend/internal/backup"
	"github.com/kimhsiao/fixdesk/backend/internal/config"
	"github.com/kimhsiao/fixdesk/backend/internal/crypto"
	"github.com/kimhsiao/fixdesk/backend/internal/errors"
	"github.com/kimhsiao/fixdesk/backend/internal/logging"
	"github.com/kimhsiao/fixdesk/backend/internal/media"
	"github.com/kimhsiao/fixdesk/backend/internal/models"
	"github.com/kimhsiao/fixdesk/backend/internal/state"
)

var clock = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

type fakeTransport struct {
	err  error
	sent []string
}

func (f *fakeTransport) Send(_ context.Context, to, message string) error {
	f.sent = append(f.sent, to+"|"+message)
	return f.err
}

type fakeCamera struct {
	path string
	err  error
}

func (c fakeCamera) Capture(context.Context) (string, error) { return c.path, c.err }

type fakePrinter struct {
	name string
	doc  []byte
}

func (p *fakePrinter) Print(_ context.Context, name string, doc []byte) error {
	p.name, p.doc = name, doc
	return nil
}

type fakeDialer struct{ uri string }

func (d *fakeDialer) Dial(_ context.Context, uri string) error {
	d.uri = uri
	return nil
}

type harness struct {
	app       *App
	transport *fakeTransport
	printer   *fakePrinter
	dialer    *fakeDialer
	dataDir   string
}

func newHarness(t *testing.T, camera media.Camera) *harness {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = t.TempDir()
	cfg.ConfigDir = cfg.DataDir
	cfg.Backup.Dir = filepath.Join(cfg.DataDir, "backups")
	cfg.DefaultRegion = "US"
	cfg.Shop.Name = "Corner Repairs"

	h := &harness{
		transport: &fakeTransport{},
		printer:   &fakePrinter{},
		dialer:    &fakeDialer{},
		dataDir:   cfg.DataDir,
	}
	a, err := New(context.Background(), Options{
		Config:      cfg,
		Logger:      logging.New(&bytes.Buffer{}, logging.LevelDebug),
		Transport:   h.transport,
		SecureStore: crypto.NewSecureStorage(cfg.ConfigDir, crypto.WithMachineID("test")),
		Camera:      camera,
		Printer:     h.printer,
		Dialer:      h.dialer,
		Now:         func() time.Time { return clock },
	})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	h.app = a
	return h
}

func validInput() RepairInput {
	return RepairInput{
		CustomerName: " Ana ",
		Phone:        "650 253 0000",
		Model:        "Pixel 7",
		IMEI:         "356938035643809",
		Problem:      "cracked screen",
		PIN:          "1234",
	}
}

func TestCreateRepair(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	job, err := h.app.CreateRepair(ctx, validInput())
	require.NoError(t, err)
	assert.NotZero(t, job.ID)
	assert.Equal(t, "Ana", job.CustomerName)
	assert.Equal(t, models.StatusPending, job.Status)
	assert.Equal(t, clock.UnixMilli(), job.CreatedAt)
	assert.Nil(t, job.CompletedAt)
	assert.Equal(t, "1234", job.PIN)

	require.Len(t, h.app.Repairs(), 1)
}

func TestCreateRepair_validationWritesNothing(t *testing.T) {
	h := newHarness(t, nil)

	in := validInput()
	in.CustomerName = "   "
	in.Problem = ""
	_, err := h.app.CreateRepair(context.Background(), in)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Contains(t, err.Error(), "CustomerName required")
	assert.Contains(t, err.Error(), "Problem required")
	assert.Empty(t, h.app.Repairs())
}

func TestCompleteAndReopen(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	job, err := h.app.CreateRepair(ctx, validInput())
	require.NoError(t, err)

	done, err := h.app.CompleteRepair(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, clock.UnixMilli(), *done.CompletedAt)

	again, err := h.app.CompleteRepair(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, *done.CompletedAt, *again.CompletedAt)

	reopened, err := h.app.ReopenRepair(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, reopened.Status)
	assert.Nil(t, reopened.CompletedAt)

	summary := h.app.Dashboard(time.Time{})
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 0, summary.Completed)
}

func TestEditRepair(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	job, err := h.app.CreateRepair(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Problem = "battery swelling"
	in.PIN = ""
	edited, err := h.app.EditRepair(ctx, job.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "battery swelling", edited.Problem)
	assert.Empty(t, edited.PIN)
	assert.Equal(t, job.CreatedAt, edited.CreatedAt)

	_, err = h.app.EditRepair(ctx, 999, in)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeleteRepair(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	job, err := h.app.CreateRepair(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, h.app.DeleteRepair(ctx, 999))
	assert.Len(t, h.app.Repairs(), 1)

	require.NoError(t, h.app.DeleteRepair(ctx, job.ID))
	assert.Empty(t, h.app.Repairs())
}

func TestObserversSeeEveryMutation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	var snaps []state.Snapshot
	h.app.State.Subscribe(func(s state.Snapshot) { snaps = append(snaps, s) })

	job, err := h.app.CreateRepair(ctx, validInput())
	require.NoError(t, err)
	_, err = h.app.CompleteRepair(ctx, job.ID)
	require.NoError(t, err)
	_, err = h.app.SendSms(ctx, "650 253 0000", "hi")
	require.NoError(t, err)

	require.Len(t, snaps, 3)
	assert.Len(t, snaps[2].SmsLogs, 1)
}

func TestNotifyReady(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	job, err := h.app.CreateRepair(ctx, validInput())
	require.NoError(t, err)

	entry, err := h.app.NotifyReady(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SmsSent, entry.Status)
	require.Len(t, h.transport.sent, 1)
	assert.Equal(t,
		"+16502530000|Hello Ana, your Pixel 7 is repaired and ready for pickup at Corner Repairs. Thank you!",
		h.transport.sent[0])
}

func TestSendSms_failureIsLogged(t *testing.T) {
	h := newHarness(t, nil)
	h.transport.err = stderrors.New("no signal")

	_, err := h.app.SendSms(context.Background(), "650 253 0000", "hello")
	assert.True(t, errors.Is(err, errors.ErrTransport))

	logs := h.app.SmsLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, models.SmsFailed, logs[0].Status)
}

func TestCallCustomer(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	job, err := h.app.CreateRepair(ctx, validInput())
	require.NoError(t, err)

	uri, err := h.app.CallCustomer(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "tel:+1-650-253-0000", uri)
	assert.Equal(t, uri, h.dialer.uri)
}

func TestInvoice(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	job, err := h.app.CreateRepair(ctx, validInput())
	require.NoError(t, err)

	doc, err := h.app.RenderInvoice(job.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))

	require.NoError(t, h.app.PrintInvoice(ctx, job.ID))
	assert.Equal(t, doc[:5], h.printer.doc[:5])
	assert.Contains(t, h.printer.name, "invoice-")

	_, err = h.app.RenderInvoice(404)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func writeTestImage(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	p := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0644))
	return p
}

func TestAttachPhoto(t *testing.T) {
	h := newHarness(t, fakeCamera{path: writeTestImage(t)})
	ctx := context.Background()
	job, err := h.app.CreateRepair(ctx, validInput())
	require.NoError(t, err)

	withPhoto, err := h.app.AttachPhoto(ctx, job.ID)
	require.NoError(t, err)
	require.NotEmpty(t, withPhoto.ImagePath)
	assert.Equal(t, filepath.Join(h.dataDir, media.DirName), filepath.Dir(withPhoto.ImagePath))

	require.NoError(t, h.app.DeleteRepair(ctx, job.ID))
	_, err = os.Stat(withPhoto.ImagePath)
	assert.True(t, os.IsNotExist(err))
}

func TestAttachPhoto_cancelIsNoop(t *testing.T) {
	h := newHarness(t, fakeCamera{err: media.ErrNoImage})
	ctx := context.Background()
	job, err := h.app.CreateRepair(ctx, validInput())
	require.NoError(t, err)

	got, err := h.app.AttachPhoto(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ImagePath)
}

func TestAttachPhoto_noCamera(t *testing.T) {
	h := newHarness(t, nil)
	job, err := h.app.CreateRepair(context.Background(), validInput())
	require.NoError(t, err)

	_, err = h.app.AttachPhoto(context.Background(), job.ID)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestCredentials(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	require.NoError(t, h.app.SaveCredential(ctx, models.CredentialEntry{Label: "wifi", Secret: "a"}))
	require.NoError(t, h.app.SaveCredential(ctx, models.CredentialEntry{Label: "wifi", Secret: "b"}))
	require.NoError(t, h.app.DeleteCredential(ctx, "missing"))

	entries, err := h.app.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.CredentialEntry{{Label: "wifi", Secret: "b"}}, entries)
}

func TestExportBackup(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	_, err := h.app.CreateRepair(ctx, validInput())
	require.NoError(t, err)

	res, err := h.app.ExportBackup(ctx, backup.Config{IncludeImages: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.RepairCount)

	archives, err := h.app.Backups()
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, res.FilePath, archives[0].Path)
}

func TestNew_reopensExistingData(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.app.CreateRepair(context.Background(), validInput())
	require.NoError(t, err)
	cfg := h.app.Config()

	again, err := New(context.Background(), Options{
		Config:      cfg,
		Logger:      logging.New(&bytes.Buffer{}, logging.LevelError),
		SecureStore: crypto.NewSecureStorage(cfg.ConfigDir, crypto.WithMachineID("test")),
	})
	require.NoError(t, err)
	defer again.Close()
	assert.Len(t, again.Repairs(), 1)
}
