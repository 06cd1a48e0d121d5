package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/pkg/logger"
	"github.com/sigmarp/medical-api/pkg/metrics"
)

const (
	embedFieldLimit = 1024

	colorEMS    = 0x00ff00
	colorPolice = 0x0099ff
)

type DiscordConfig struct {
	WebhookURL string
	// PanelURL links the embed to the review panel.
	PanelURL string
	Timeout  time.Duration
}

// Discord posts recruitment embeds to a Discord-compatible webhook.
type Discord struct {
	cfg    DiscordConfig
	client *http.Client
	log    *logger.Logger
	now    func() time.Time
}

func NewDiscord(cfg DiscordConfig, log *logger.Logger) *Discord {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Discord{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.With("discord"),
		now:    time.Now,
	}
}

type discordPayload struct {
	Content string         `json:"content"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Footer      discordFooter  `json:"footer"`
	Timestamp   string         `json:"timestamp"`
	URL         string         `json:"url,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// NotifyRecruitment succeeds only on HTTP 204. An unconfigured webhook is
// skipped.
func (d *Discord) NotifyRecruitment(ctx context.Context, rec *model.Recruitment) error {
	if d.cfg.WebhookURL == "" {
		metrics.RecordNotification("discord", "skipped")
		d.log.Warn("discord webhook not configured, skipping notification", "recruitment_id", rec.ID)
		return nil
	}

	body, err := json.Marshal(d.payload(rec))
	if err != nil {
		return fmt.Errorf("encode discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		metrics.RecordNotification("discord", "error")
		return fmt.Errorf("post discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		metrics.RecordNotification("discord", "rejected")
		return fmt.Errorf("discord webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	metrics.RecordNotification("discord", "sent")
	d.log.Info("discord notification sent", "recruitment_id", rec.ID, "name", rec.Name)
	return nil
}

func (d *Discord) payload(rec *model.Recruitment) discordPayload {
	profession := strings.ToUpper(string(rec.Profession))
	color := colorPolice
	if rec.Profession == model.ProfessionEMS {
		color = colorEMS
	}

	fields := []discordField{
		{Name: "👤 Nombre del Personaje", Value: rec.Name, Inline: true},
		{Name: "💬 Discord", Value: rec.Discord, Inline: true},
		{Name: "📱 Teléfono", Value: rec.Phone, Inline: true},
		{Name: "🆔 DNI", Value: rec.DNI, Inline: true},
		{Name: "🎯 Profesión", Value: profession, Inline: true},
		{Name: "📝 Motivación", Value: truncate(rec.Motivation, embedFieldLimit)},
		{Name: "🎮 Experiencia Previa", Value: truncate(rec.Experience, embedFieldLimit)},
	}
	if len(rec.Description) > 0 {
		text := strings.Join(rec.Description, "\n")
		if len([]rune(text)) > embedFieldLimit {
			text = truncate(text, embedFieldLimit-3) + "..."
		}
		fields = append(fields, discordField{Name: "📋 Descripción del Personaje", Value: text})
	}

	return discordPayload{
		Content: "@everyone",
		Embeds: []discordEmbed{{
			Title:       "🆕 Nueva Solicitud de Reclutamiento",
			Description: fmt.Sprintf("Se ha recibido una nueva solicitud para **%s**", profession),
			Color:       color,
			Fields:      fields,
			Footer:      discordFooter{Text: "Sistema de Reclutamiento SIGMA • Revisar solicitud en el panel de administración"},
			Timestamp:   d.now().UTC().Format(time.RFC3339),
			URL:         d.cfg.PanelURL,
		}},
	}
}
