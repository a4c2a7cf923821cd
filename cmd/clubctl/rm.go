package main

import (
	"context"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/club-portal/internal/domain"
)

type rmCmd struct {
	Collection string `arg:"" help:"Collection holding the document." enum:"players,coaches,matches,news,training,users,tactics"`
	ID         string `arg:"" help:"Document ID."`
	Yes        bool   `help:"Do not ask for confirmation." short:"y"`
}

func (c *rmCmd) Run(g *globalCmd) error {
	ctx := context.Background()
	_, backend, _, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	doc, err := backend.Docs.Get(ctx, c.Collection, c.ID)
	if err != nil {
		return fmt.Errorf("loading %s/%s: %w", c.Collection, c.ID, err)
	}

	if !c.Yes {
		confirmed := false
		prompt := &survey.Confirm{
			Message: fmt.Sprintf("Delete %s/%s (%s)?", c.Collection, c.ID, describe(doc.Fields)),
		}
		if err := survey.AskOne(prompt, &confirmed); err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("aborted")
			return nil
		}
	}

	if err := backend.Docs.Delete(ctx, c.Collection, c.ID); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", c.Collection, c.ID, err)
	}
	if c.Collection == domain.CollectionUsers {
		fmt.Println("the login account was kept; only the role record is gone")
	}
	fmt.Printf("deleted %s/%s\n", c.Collection, c.ID)
	return nil
}

// describe picks a human label out of a document's fields
func describe(fields map[string]any) string {
	for _, key := range []string{"name", "title", "opponent", "email", "focus"} {
		if v, ok := fields[key].(string); ok && v != "" {
			return v
		}
	}
	return "untitled"
}
