package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/club-portal/internal/auth"
	"github.com/club-portal/internal/domain"
	"github.com/club-portal/internal/service"
	"github.com/club-portal/internal/store"
	"github.com/jedib0t/go-pretty/v6/table"
)

type usersLsCmd struct{}

func (c *usersLsCmd) Run(g *globalCmd) error {
	ctx := context.Background()
	cfg, backend, logger, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	admins := service.NewAdminService(backend.Docs, backend.Accounts, nil, cfg.Club.Location(), logger)
	users, err := admins.Users(ctx)
	if err != nil {
		return fmt.Errorf("loading users: %w", err)
	}

	t := newTable(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Email", "Name", "Admin", "Coach", "Player"})
	for _, u := range users {
		t.AppendRow(table.Row{u.ID, u.Email, u.DisplayName, yesNo(u.IsAdmin), yesNo(u.IsCoach), yesNo(u.IsPlayer)})
	}
	t.SetCaption("%d users", len(users))
	t.Render()
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

type accountsAddCmd struct {
	Email    string `arg:"" help:"Login email."`
	Name     string `help:"Display name." short:"n"`
	Password string `help:"Password; prompted for when omitted." env:"CLUB_ACCOUNT_PASSWORD"`
	Admin    bool   `help:"Grant access to the admin console."`
	Coach    bool   `help:"Mark the user as coaching staff."`
}

func (c *accountsAddCmd) Run(g *globalCmd) error {
	password := c.Password
	if password == "" {
		prompt := &survey.Password{Message: fmt.Sprintf("Password for %s:", c.Email)}
		if err := survey.AskOne(prompt, &password, survey.WithValidator(survey.MinLength(6))); err != nil {
			return err
		}
	}

	ctx := context.Background()
	cfg, backend, logger, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	setter, ok := backend.Docs.(store.Setter)
	if !ok {
		return errors.New("store backend cannot write documents under a chosen id")
	}

	// Registration only touches the account store
	gateway := auth.NewGateway(backend.Accounts, nil, backend.Docs, nil, cfg.Auth.BcryptCost, logger)
	identity, err := gateway.Register(ctx, c.Email, password, c.Name)
	if err != nil {
		return err
	}

	fields, err := store.Encode(domain.UserRecord{
		Email:   identity.Email,
		Name:    c.Name,
		IsAdmin: c.Admin,
		IsCoach: c.Coach,
	})
	if err != nil {
		return err
	}
	if err := setter.Set(ctx, domain.CollectionUsers, identity.ID, fields); err != nil {
		return fmt.Errorf("writing user record: %w", err)
	}

	fmt.Printf("created account %s for %s\n", identity.ID, identity.Email)
	return nil
}
