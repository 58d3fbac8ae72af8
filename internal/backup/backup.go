// Package backup exports the database and repair photos to a single,
// optionally encrypted archive, and verifies such archives.
package backup

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kimhsiao/fixdesk/backend/internal/crypto"
	"github.com/kimhsiao/fixdesk/backend/internal/db"
	"github.com/kimhsiao/fixdesk/backend/internal/errors"
	"github.com/kimhsiao/fixdesk/backend/internal/logging"
)

const (
	// FormatVersion is written to every manifest.
	FormatVersion = "1"

	manifestName = "manifest.json"
	snapshotName = db.FileName
	imagesPrefix = "images/"
)

// encryptedMagic prefixes password-protected archives.
var encryptedMagic = []byte("FDBKENC1")

// Counter reports table sizes for the manifest. *db.Repository satisfies it.
type Counter interface {
	CountRepairs(ctx context.Context) (int, error)
	CountSmsLogs(ctx context.Context) (int, error)
}

// Config holds export options.
type Config struct {
	OutputPath    string
	Password      string
	IncludeImages bool
	Upload        bool
}

// Manifest describes the archive contents.
type Manifest struct {
	Version       string    `json:"version"`
	SchemaVersion int64     `json:"schema_version"`
	ExportedAt    time.Time `json:"exported_at"`
	RepairCount   int       `json:"repair_count"`
	SmsLogCount   int       `json:"sms_log_count"`
	ImageCount    int       `json:"image_count"`
	Checksum      string    `json:"checksum"`
	Encrypted     bool      `json:"encrypted"`
}

// Result is the outcome of an export.
type Result struct {
	FilePath    string        `json:"file_path"`
	SizeBytes   int64         `json:"size_bytes"`
	RepairCount int           `json:"repair_count"`
	SmsLogCount int           `json:"sms_log_count"`
	ImageCount  int           `json:"image_count"`
	Checksum    string        `json:"checksum"`
	Encrypted   bool          `json:"encrypted"`
	UploadedTo  string        `json:"uploaded_to,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Service creates and verifies backup archives.
type Service struct {
	db        *sql.DB
	counter   Counter
	imagesDir string
	outDir    string
	uploader  Uploader
	log       *logging.Logger
	now       func() time.Time
}

// NewService creates a Service. uploader may be nil.
func NewService(database *sql.DB, counter Counter, imagesDir, outDir string, uploader Uploader, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Get()
	}
	return &Service{
		db:        database,
		counter:   counter,
		imagesDir: imagesDir,
		outDir:    outDir,
		uploader:  uploader,
		log:       log.With(map[string]interface{}{"component": "backup"}),
		now:       time.Now,
	}
}

// OutDir returns the directory archives are written to by default.
func (s *Service) OutDir() string {
	return s.outDir
}

// Export writes a backup archive.
func (s *Service) Export(ctx context.Context, cfg Config) (*Result, error) {
	start := s.now()
	if cfg.Upload && s.uploader == nil {
		return nil, errors.New(errors.ErrValidation, "backup upload is not configured")
	}

	tempDir, err := os.MkdirTemp("", "fixdesk-backup-*")
	if err != nil {
		return nil, errors.Wrap(errors.ErrExportFailed, "failed to create temp directory", err)
	}
	defer os.RemoveAll(tempDir)

	snapshot := filepath.Join(tempDir, snapshotName)
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, snapshot); err != nil {
		return nil, errors.Wrap(errors.ErrExportFailed, "failed to snapshot database", err)
	}
	snapData, err := os.ReadFile(snapshot)
	if err != nil {
		return nil, errors.Wrap(errors.ErrExportFailed, "failed to read snapshot", err)
	}

	manifest := Manifest{
		Version:       FormatVersion,
		SchemaVersion: db.SchemaVersion,
		ExportedAt:    start.UTC(),
		Checksum:      checksum(snapData),
		Encrypted:     cfg.Password != "",
	}
	if manifest.RepairCount, err = s.counter.CountRepairs(ctx); err != nil {
		return nil, err
	}
	if manifest.SmsLogCount, err = s.counter.CountSmsLogs(ctx); err != nil {
		return nil, err
	}

	files := []archiveFile{{name: snapshotName, data: snapData}}
	if cfg.IncludeImages {
		images, err := s.collectImages()
		if err != nil {
			return nil, errors.Wrap(errors.ErrExportFailed, "failed to read images", err)
		}
		manifest.ImageCount = len(images)
		files = append(files, images...)
	}

	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrExportFailed, "failed to encode manifest", err)
	}
	files = append([]archiveFile{{name: manifestName, data: manifestData}}, files...)

	archive, err := writeArchive(files, start)
	if err != nil {
		return nil, errors.Wrap(errors.ErrExportFailed, "failed to create archive", err)
	}
	if cfg.Password != "" {
		sealed, err := crypto.EncryptBytes(archive, cfg.Password)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCrypto, "failed to encrypt archive", err)
		}
		archive = append(append([]byte{}, encryptedMagic...), sealed...)
	}

	outPath := cfg.OutputPath
	if outPath == "" {
		outPath = filepath.Join(s.outDir, archiveName(start))
	}
	if err := writeFile(outPath, archive); err != nil {
		return nil, errors.Wrap(errors.ErrExportFailed, "failed to write archive", err)
	}

	result := &Result{
		FilePath:    outPath,
		SizeBytes:   int64(len(archive)),
		RepairCount: manifest.RepairCount,
		SmsLogCount: manifest.SmsLogCount,
		ImageCount:  manifest.ImageCount,
		Checksum:    manifest.Checksum,
		Encrypted:   manifest.Encrypted,
	}

	if cfg.Upload {
		location, err := s.uploader.Upload(ctx, filepath.Base(outPath), bytes.NewReader(archive), int64(len(archive)))
		if err != nil {
			return result, errors.Wrap(errors.ErrTransport, "failed to upload backup", err)
		}
		result.UploadedTo = location
	}

	result.Duration = time.Since(start)
	s.log.Info("backup exported", map[string]interface{}{
		"path":      outPath,
		"size":      result.SizeBytes,
		"repairs":   result.RepairCount,
		"images":    result.ImageCount,
		"encrypted": result.Encrypted,
		"uploaded":  result.UploadedTo != "",
	})
	return result, nil
}

// Verify opens the archive at path, decrypting it with password when it is
// encrypted, and checks the database snapshot against the manifest checksum.
func Verify(path, password string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrNotFound, "failed to read archive", err)
	}

	if bytes.HasPrefix(data, encryptedMagic) {
		if password == "" {
			return nil, errors.New(errors.ErrInvalidPassword, "archive is encrypted")
		}
		data, err = crypto.DecryptBytes(data[len(encryptedMagic):], password)
		if err != nil {
			return nil, errors.Wrap(errors.ErrInvalidPassword, "failed to decrypt archive", err)
		}
	}

	files, err := readArchive(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCorruptedArchive, "failed to read archive", err)
	}

	raw, ok := files[manifestName]
	if !ok {
		return nil, errors.New(errors.ErrCorruptedArchive, "manifest missing")
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, errors.Wrap(errors.ErrCorruptedArchive, "invalid manifest", err)
	}

	snap, ok := files[snapshotName]
	if !ok {
		return nil, errors.New(errors.ErrCorruptedArchive, "database snapshot missing")
	}
	if got := checksum(snap); got != manifest.Checksum {
		return nil, errors.Newf(errors.ErrCorruptedArchive, "checksum mismatch: manifest %s, archive %s", manifest.Checksum, got)
	}

	images := 0
	for name := range files {
		if strings.HasPrefix(name, imagesPrefix) {
			images++
		}
	}
	if images != manifest.ImageCount {
		return nil, errors.Newf(errors.ErrCorruptedArchive, "manifest lists %d images, archive holds %d", manifest.ImageCount, images)
	}
	return &manifest, nil
}

func (s *Service) collectImages() ([]archiveFile, error) {
	entries, err := os.ReadDir(s.imagesDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []archiveFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.imagesDir, e.Name()))
		if err != nil {
			return nil, err
		}
		files = append(files, archiveFile{name: imagesPrefix + e.Name(), data: data})
	}
	return files, nil
}

// archiveName returns a default archive file name. The random suffix keeps
// exports started within the same second apart.
func archiveName(t time.Time) string {
	return fmt.Sprintf("fixdesk_%s_%s.tar.gz", t.Format("20060102_150405"), uuid.NewString()[:8])
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// writeFile writes data to path through a temporary file and a rename.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
