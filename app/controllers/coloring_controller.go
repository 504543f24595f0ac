package controllers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/coloring"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/constants"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/credits"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/upload"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/usercontext"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/viewmodel"
	"github.com/ManuelReschke/ColorCalm/views"
)

// HandleCreateColoringForm renders the generator form.
func (ac *AppController) HandleCreateColoringForm(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	p := ac.page(c, tr(c, "create.title"))

	balance, err := ac.credits.Balance(c.UserContext(), userCtx.UserID)
	if err != nil {
		log.Errorf("[Coloring] Failed to load balance of user %d: %v", userCtx.UserID, err)
	}

	vm := viewmodel.ColoringForm{
		Categories:  ac.catalog.Categories(),
		Balance:     balance,
		MaxUploadMB: upload.MaxImageSize >> 20,
	}
	for _, d := range coloring.Details() {
		vm.Details = append(vm.Details, string(d))
	}
	if theme := c.Query("theme"); theme != "" {
		if _, ok := ac.catalog.Theme(theme); ok {
			vm.SelectedTheme = theme
		}
	}
	return render(c, views.CreateColoring(p, vm))
}

// HandleCreateColoring accepts the uploaded photo and queues generation.
func (ac *AppController) HandleCreateColoring(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	fh, err := c.FormFile("photo")
	if err != nil {
		return redirectWithError(c, "flash.upload_missing", constants.RouteCreateColoring)
	}
	if fh.Size > upload.MaxImageSize {
		return redirectWithError(c, "flash.upload_too_large", constants.RouteCreateColoring)
	}
	f, err := fh.Open()
	if err != nil {
		log.Errorf("[Coloring] Failed to open upload: %v", err)
		return redirectWithError(c, "flash.generation_failed", constants.RouteCreateColoring)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, upload.MaxImageSize+1))
	if err != nil {
		log.Errorf("[Coloring] Failed to read upload: %v", err)
		return redirectWithError(c, "flash.generation_failed", constants.RouteCreateColoring)
	}

	page, err := ac.coloring.Create(c.UserContext(), coloring.CreateInput{
		UserID:   userCtx.UserID,
		ThemeID:  c.FormValue("theme"),
		Title:    c.FormValue("title"),
		Detail:   c.FormValue("detail"),
		FileName: fh.Filename,
		Data:     data,
	})
	if err != nil {
		if errors.Is(err, credits.ErrInsufficientCredits) {
			return redirectWithError(c, "flash.no_credits", constants.RoutePricing)
		}
		return redirectWithError(c, createErrorKey(err), constants.RouteCreateColoring)
	}

	return redirectWithSuccess(c, "flash.generation_started", "/coloring/"+page.UUID)
}

// createErrorKey maps a generator error to its flash message.
func createErrorKey(err error) string {
	switch {
	case errors.Is(err, upload.ErrFileTooLarge):
		return "flash.upload_too_large"
	case errors.Is(err, upload.ErrEmptyFile):
		return "flash.upload_missing"
	case errors.Is(err, upload.ErrUnsupportedFormat), errors.Is(err, upload.ErrScriptableContent):
		return "flash.upload_unsupported"
	case errors.Is(err, coloring.ErrUnknownTheme):
		return "flash.unknown_theme"
	case errors.Is(err, coloring.ErrInvalidDetail):
		return "flash.invalid_detail"
	case errors.Is(err, coloring.ErrTitleTooLong):
		return "flash.title_too_long"
	default:
		log.Errorf("[Coloring] Creating page failed: %v", err)
		return "flash.generation_failed"
	}
}

// HandleColoringResult shows a page by UUID.
func (ac *AppController) HandleColoringResult(c *fiber.Ctx) error {
	page, err := ac.coloring.FindByUUID(c.UserContext(), c.Params("uuid"))
	if err != nil {
		return ac.pageLookupFailed(c, err)
	}
	return ac.renderResult(c, page)
}

// HandleShareLink shows a page by its short share slug.
func (ac *AppController) HandleShareLink(c *fiber.Ctx) error {
	page, err := ac.coloring.FindBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return ac.pageLookupFailed(c, err)
	}
	return ac.renderResult(c, page)
}

func (ac *AppController) pageLookupFailed(c *fiber.Ctx, err error) error {
	if !errors.Is(err, coloring.ErrPageNotFound) {
		log.Errorf("[Coloring] Loading page failed: %v", err)
	}
	return ac.HandleNotFound(c)
}

func (ac *AppController) renderResult(c *fiber.Ctx, page *models.ColoringPage) error {
	userCtx := usercontext.GetUserContext(c)

	vm := viewmodel.ColoringResult{
		UUID:          page.UUID,
		Title:         page.Title,
		Status:        page.Status,
		Detail:        page.Detail,
		Width:         page.Width,
		Height:        page.Height,
		DownloadCount: page.DownloadCount,
		IsOwner:       userCtx.IsLoggedIn && userCtx.UserID == page.UserID,
		ShareURL:      ac.baseURL + "/c/" + page.ShareSlug,
	}
	if ac.counter != nil {
		if pending, err := ac.counter.Pending(c.UserContext(), page.ID); err == nil {
			vm.DownloadCount += int(pending)
		}
	}
	if page.IsReady() {
		vm.PreviewURL = "/" + page.PreviewPath
		vm.DownloadURL = "/coloring/" + page.UUID + "/download"
	}
	if page.ThemeID != "" {
		if t, ok := ac.catalog.Theme(page.ThemeID); ok {
			vm.Theme = &t
			vm.Meditations = ac.catalog.MeditationsForTheme(t.ID)
		}
	}

	title := page.Title
	if title == "" {
		title = tr(c, "result.untitled")
	}
	return render(c, views.ColoringResult(ac.page(c, title), vm))
}

// HandleColoringStatus reports the processing state for polling.
func (ac *AppController) HandleColoringStatus(c *fiber.Ctx) error {
	pageUUID := c.Params("uuid")
	status, err := ac.coloring.Status(c.UserContext(), pageUUID)
	if err != nil {
		if errors.Is(err, coloring.ErrPageNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "not_found",
				"message": "coloring page not found",
			})
		}
		log.Errorf("[Coloring] Status lookup for %s failed: %v", pageUUID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_error",
			"message": "status unavailable",
		})
	}
	return c.JSON(fiber.Map{
		"uuid":     pageUUID,
		"status":   status,
		"complete": status == models.ColoringStatusCompleted,
	})
}

// HandleColoringDownload sends the printable PNG and counts the download.
func (ac *AppController) HandleColoringDownload(c *fiber.Ctx) error {
	page, err := ac.coloring.FindByUUID(c.UserContext(), c.Params("uuid"))
	if err != nil {
		return ac.pageLookupFailed(c, err)
	}
	if !page.IsReady() {
		return ac.HandleNotFound(c)
	}

	if ac.counter != nil {
		if err := ac.counter.AddPageDownload(c.UserContext(), page.ID); err != nil {
			log.Warnf("[Coloring] Failed to count download of %s: %v", page.UUID, err)
		}
	}
	return c.Download(ac.coloring.AbsPath(page.LineArtPath), downloadName(page))
}

func downloadName(page *models.ColoringPage) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ' || r == '-' || r == '_':
			return '-'
		}
		return -1
	}, strings.TrimSpace(page.Title))
	if name == "" {
		name = page.ShareSlug
	}
	return fmt.Sprintf("colorcalm-%s.png", name)
}
