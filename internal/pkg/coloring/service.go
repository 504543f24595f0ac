package coloring

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/jobqueue"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/shortener"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/themes"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/upload"
)

// CreditsPerPage is the price of one generated page.
const CreditsPerPage = 1

var (
	ErrUnknownTheme      = errors.New("unknown theme")
	ErrPageNotFound      = errors.New("coloring page not found")
	ErrTitleTooLong      = errors.New("title must be at most 150 characters")
	ErrUnsupportedFormat = upload.ErrUnsupportedFormat
)

// CreditLedger charges and refunds page credits.
type CreditLedger interface {
	Consume(ctx context.Context, userID uint, amount int, reference string) (int, error)
	Refund(ctx context.Context, userID uint, amount int, reference string) (int, error)
}

// Enqueuer schedules background jobs.
type Enqueuer interface {
	EnqueueJobContext(ctx context.Context, jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
}

// CreateInput is a validated upload request.
type CreateInput struct {
	UserID   uint
	ThemeID  string
	Title    string
	Detail   string
	FileName string
	Data     []byte
}

// Service accepts uploads and hands them to the generation worker.
type Service struct {
	db      *gorm.DB
	credits CreditLedger
	queue   Enqueuer
	status  *StatusStore
	catalog *themes.Catalog
	root    string
	mirror  bool
	now     func() time.Time
}

// Options configures optional Service behaviour.
type Options struct {
	// Root is the directory generated files are written below. Default ".".
	Root string
	// Mirror enqueues an S3 mirror job after generation.
	Mirror bool
}

func NewService(db *gorm.DB, ledger CreditLedger, queue Enqueuer, status *StatusStore, catalog *themes.Catalog, opts Options) *Service {
	root := opts.Root
	if root == "" {
		root = "."
	}
	return &Service{
		db:      db,
		credits: ledger,
		queue:   queue,
		status:  status,
		catalog: catalog,
		root:    root,
		mirror:  opts.Mirror,
		now:     time.Now,
	}
}

// WithClock replaces the time source (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ChargeReference is the credit ledger reference of a page.
func ChargeReference(pageUUID string) string {
	return "coloring:" + pageUUID
}

// Create validates the upload, charges one credit, stores the original and
// queues generation. The returned page is pending.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.ColoringPage, error) {
	if err := upload.ValidateSize(int64(len(in.Data))); err != nil {
		return nil, err
	}
	detail, err := ParseDetail(in.Detail)
	if err != nil {
		return nil, err
	}
	if in.ThemeID != "" {
		if _, ok := s.catalog.Theme(in.ThemeID); !ok {
			return nil, ErrUnknownTheme
		}
	}
	title := strings.TrimSpace(in.Title)
	if len([]rune(title)) > 150 {
		return nil, ErrTitleTooLong
	}
	head := in.Data
	if len(head) > 512 {
		head = head[:512]
	}
	mime, err := upload.ValidateImageBySniff(in.FileName, head)
	if err != nil {
		return nil, err
	}

	slug, err := shortener.GenerateShareSlug()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	page := &models.ColoringPage{
		UUID:         uuid.NewString(),
		UserID:       in.UserID,
		ThemeID:      in.ThemeID,
		Title:        title,
		Detail:       string(detail),
		Status:       models.ColoringStatusPending,
		ShareSlug:    slug,
	}
	page.OriginalPath = OriginalPath(page.UUID, upload.Extension(mime), now)

	reference := ChargeReference(page.UUID)
	if _, err := s.credits.Consume(ctx, in.UserID, CreditsPerPage, reference); err != nil {
		return nil, err
	}

	if err := s.writeOriginal(page.OriginalPath, in.Data); err != nil {
		s.refund(ctx, page, reference)
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(page).Error; err != nil {
		s.refund(ctx, page, reference)
		_ = os.Remove(s.abs(page.OriginalPath))
		return nil, fmt.Errorf("create coloring page: %w", err)
	}

	if err := s.status.Set(ctx, page.UUID, models.ColoringStatusPending); err != nil {
		log.Warnf("[Coloring] Failed to cache status of %s: %v", page.UUID, err)
	}

	payload := jobqueue.ColoringGenerationJobPayload{
		PageID:       page.ID,
		PageUUID:     page.UUID,
		UserID:       page.UserID,
		OriginalPath: page.OriginalPath,
		Detail:       page.Detail,
		Mirror:       s.mirror,
	}
	if _, err := s.queue.EnqueueJobContext(ctx, jobqueue.JobTypeColoringGeneration, payload.ToMap()); err != nil {
		markFailed(ctx, s.db, s.status, page, "could not be queued")
		s.refund(ctx, page, reference)
		return nil, fmt.Errorf("enqueue generation: %w", err)
	}

	log.Infof("[Coloring] Queued page %s for user %d (detail=%s)", page.UUID, page.UserID, page.Detail)
	return page, nil
}

func (s *Service) writeOriginal(rel string, data []byte) error {
	path := s.abs(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error saving original: %w", err)
	}
	return nil
}

func (s *Service) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// AbsPath resolves a stored relative path below the storage root.
func (s *Service) AbsPath(rel string) string {
	return s.abs(rel)
}

func (s *Service) refund(ctx context.Context, page *models.ColoringPage, reference string) {
	if _, err := s.credits.Refund(ctx, page.UserID, CreditsPerPage, reference); err != nil {
		log.Errorf("[Coloring] Refund for %s failed: %v", page.UUID, err)
	}
}

// FindByUUID loads a page by its public UUID.
func (s *Service) FindByUUID(ctx context.Context, pageUUID string) (*models.ColoringPage, error) {
	page, err := models.FindColoringPageByUUID(s.db.WithContext(ctx), pageUUID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPageNotFound
	}
	return page, err
}

// FindBySlug loads a page by its share slug.
func (s *Service) FindBySlug(ctx context.Context, slug string) (*models.ColoringPage, error) {
	if !shortener.IsValidSlug(slug) {
		return nil, ErrPageNotFound
	}
	page, err := models.FindColoringPageBySlug(s.db.WithContext(ctx), slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPageNotFound
	}
	return page, err
}

// ListByUser returns the newest pages of a user.
func (s *Service) ListByUser(ctx context.Context, userID uint, limit int) ([]models.ColoringPage, error) {
	if limit <= 0 {
		limit = 24
	}
	var pages []models.ColoringPage
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&pages).Error
	return pages, err
}

// Status returns the processing state, preferring the Redis cache and
// falling back to the database.
func (s *Service) Status(ctx context.Context, pageUUID string) (string, error) {
	status, err := s.status.Get(ctx, pageUUID)
	if err == nil {
		return status, nil
	}
	if !errors.Is(err, ErrStatusUnknown) {
		log.Warnf("[Coloring] Status cache read for %s failed: %v", pageUUID, err)
	}

	page, err := s.FindByUUID(ctx, pageUUID)
	if err != nil {
		return "", err
	}
	if cerr := s.status.Set(ctx, pageUUID, page.Status); cerr != nil {
		log.Warnf("[Coloring] Failed to cache status of %s: %v", pageUUID, cerr)
	}
	return page.Status, nil
}

func markFailed(ctx context.Context, db *gorm.DB, status *StatusStore, page *models.ColoringPage, reason string) {
	err := db.WithContext(ctx).Model(&models.ColoringPage{}).
		Where("id = ?", page.ID).
		Updates(map[string]interface{}{
			"status":        models.ColoringStatusFailed,
			"error_message": reason,
		}).Error
	if err != nil {
		log.Errorf("[Coloring] Failed to mark page %s as failed: %v", page.UUID, err)
	}
	page.Status = models.ColoringStatusFailed
	page.ErrorMessage = reason
	if err := status.Set(ctx, page.UUID, models.ColoringStatusFailed); err != nil {
		log.Warnf("[Coloring] Failed to cache status of %s: %v", page.UUID, err)
	}
}
