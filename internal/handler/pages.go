package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"

	"github.com/mmeshcher/rewards-site/internal/alert"
	"github.com/mmeshcher/rewards-site/internal/model"
)

//go:embed templates/*.html content/*.md
var assets embed.FS

const noWinners = "No winners yet"

type pages struct {
	home    *template.Template
	aboutUs template.HTML
}

type leaderboardTable struct {
	ID      string
	Title   string
	Winners []model.Winner
	Empty   string
}

type homeView struct {
	AboutUs    template.HTML
	RewardPool decimal.Decimal
	User       *model.User
	Loading    bool
	Alerts     []alert.Alert
	Tables     []leaderboardTable
}

func loadPages() (*pages, error) {
	home, err := template.ParseFS(assets, "templates/home.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	md, err := assets.ReadFile("content/about_us.md")
	if err != nil {
		return nil, fmt.Errorf("read about us: %w", err)
	}

	var buf bytes.Buffer
	if err := goldmark.Convert(md, &buf); err != nil {
		return nil, fmt.Errorf("render about us: %w", err)
	}

	return &pages{
		home: home,
		// без html.WithUnsafe goldmark не пропускает сырой HTML из исходного текста.
		aboutUs: template.HTML(buf.String()),
	}, nil
}

func (p *pages) renderHome(v viewResponse) ([]byte, error) {
	view := homeView{
		AboutUs:    p.aboutUs,
		RewardPool: v.RewardPool,
		User:       v.State.CurrentUser,
		Loading:    v.Loading,
		Alerts:     v.Alerts,
		Tables: []leaderboardTable{
			{ID: "this-week", Title: "Current week leaderboard", Winners: v.State.WinnersThisWeek, Empty: noWinners},
			{ID: "last-week", Title: "Last week leaderboard", Winners: v.State.WinnersLastWeek, Empty: noWinners},
		},
	}

	var buf bytes.Buffer
	if err := p.home.ExecuteTemplate(&buf, "home.html", view); err != nil {
		return nil, fmt.Errorf("execute home: %w", err)
	}
	return buf.Bytes(), nil
}
