package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/template/html/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ColorCalm/app/models"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/i18n"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/plans"
)

//go:embed templates/*.html
var templateFS embed.FS

// NewTemplateEngine loads the embedded mail templates.
func NewTemplateEngine() (*html.Engine, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load mail templates: %w", err)
	}
	return engine, nil
}

type subscriptionMail struct {
	Name       string
	PlanName   string
	Cadence    string
	Date       string
	AccountURL string
}

// SubscriptionNotifier mails users when their subscription starts or is cancelled.
type SubscriptionNotifier struct {
	db      *gorm.DB
	sender  Sender
	engine  *html.Engine
	baseURL string
}

func NewSubscriptionNotifier(db *gorm.DB, sender Sender, engine *html.Engine, baseURL string) *SubscriptionNotifier {
	return &SubscriptionNotifier{db: db, sender: sender, engine: engine, baseURL: strings.TrimRight(baseURL, "/")}
}

func (n *SubscriptionNotifier) SubscriptionStarted(ctx context.Context, sub *models.Subscription) {
	n.notify(ctx, sub, "subscription_started", "Welcome to ColorCalm Pro", sub.RenewalDate())
}

func (n *SubscriptionNotifier) SubscriptionCancelled(ctx context.Context, sub *models.Subscription) {
	n.notify(ctx, sub, "subscription_cancelled", "Your ColorCalm Pro subscription was cancelled", sub.EndDate)
}

func (n *SubscriptionNotifier) notify(ctx context.Context, sub *models.Subscription, template, subject string, date *time.Time) {
	var user models.User
	if err := n.db.WithContext(ctx).First(&user, sub.UserID).Error; err != nil {
		log.Errorf("[Mail] Cannot load user %d for %s: %v", sub.UserID, template, err)
		return
	}

	msgs := i18n.Default().Messages(i18n.DefaultLocale)
	data := subscriptionMail{
		Name:       user.Name,
		PlanName:   plans.Get(plans.KeyPro).Name,
		Cadence:    sub.Plan,
		AccountURL: n.baseURL + "/account/subscription",
	}
	if date != nil {
		data.Date = msgs.FormatDate(*date)
	}

	var buf bytes.Buffer
	if err := n.engine.Render(&buf, template, data, "layout"); err != nil {
		log.Errorf("[Mail] Rendering %s failed: %v", template, err)
		return
	}
	if err := n.sender.Send(user.Email, subject, buf.String()); err != nil {
		log.Errorf("[Mail] Sending %s to user %d failed: %v", template, user.ID, err)
	}
}
